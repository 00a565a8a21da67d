package program

import (
	"bytes"
	"testing"

	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackAll(t *testing.T, p *Program) {
	t.Helper()
	var err error
	func() {
		defer rawdex.Recover(&err)
		for _, c := range p.MutatableCodes() {
			p.translator.MutatableCodeToCodeItem(p.Dex().CodeItems[c.CodeItemIdx], c)
		}
	}()
	require.NoError(t, err)
}

func TestTranslatorRoundTrip(t *testing.T) {
	_, data, dex := parseSample(t)
	p, err := New(dex, defaultOptions(1), flipFactory)
	require.NoError(t, err)

	writeBackAll(t, p)
	out, err := dex.Marshal()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, out), "translated file differs from input")
}

func locations(c *MutatableCode) []int {
	var locs []int
	for _, m := range c.Instructions() {
		locs = append(locs, m.Location)
	}
	return locs
}

func TestTranslatorLinks(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	codes := p.MutatableCodes()

	t.Run("switch", func(t *testing.T) {
		c := codes[pickCode]
		if diff := cmp.Diff([]int{0, 3, 4, 5, 6, 7, 8}, locations(c)); diff != "" {
			t.Errorf("locations mismatch (-want +got):\n%s", diff)
		}
		sw := c.InstructionAt(0)
		require.True(t, sw.IsSwitch())
		assert.True(t, sw.Packed)
		assert.Same(t, c.InstructionAt(6), sw.DataTarget)
		assert.Equal(t, []int32{0}, sw.SwitchKeys)
		require.Len(t, sw.SwitchTargets, 1)
		assert.Same(t, c.InstructionAt(3), sw.SwitchTargets[0])
		assert.True(t, sw.DataTarget.IsRaw())
	})

	t.Run("branch", func(t *testing.T) {
		c := codes[branchCode]
		br := c.InstructionAt(0)
		require.True(t, br.IsBranch())
		assert.Same(t, c.InstructionAt(2), br.Target)
	})

	t.Run("try", func(t *testing.T) {
		c := codes[makeCode]
		require.Len(t, c.TryBlocks(), 1)
		try := c.TryBlocks()[0]
		assert.Same(t, c.InstructionAt(0), try.Start)
		assert.Same(t, c.InstructionAt(0), try.End)
		assert.Same(t, c.InstructionAt(2), try.CatchAll)
	})
}

func TestTranslatorRealignsPayload(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[pickCode]

	// dropping the nop leaves the payload on an odd location
	c.DeleteInstructionAt(5)
	require.Equal(t, 7, c.InstructionAt(5).Location)
	writeBackAll(t, p)

	ci := p.Dex().CodeItems[pickCode]
	require.Len(t, ci.Insns, 7)
	assert.Equal(t, rawdex.OpNop, ci.Insns[5].Opcode())
	assert.Equal(t, 8, c.InstructionAt(6).Location)
	assert.EqualValues(t, 14, ci.InsnsSize)

	out, err := p.Dex().Marshal()
	require.NoError(t, err)
	_, err = rawdex.Parse(out)
	require.NoError(t, err)
}

func TestTranslatorRewritesSwitch(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[pickCode]
	sw := c.InstructionAt(0)
	sw.SwitchKeys = []int32{4}
	sw.SwitchTargets[0] = c.InstructionAt(1)
	writeBackAll(t, p)

	out, err := p.Dex().Marshal()
	require.NoError(t, err)
	dex, err := rawdex.Parse(out)
	require.NoError(t, err)

	q, err := New(dex, defaultOptions(1), flipFactory)
	require.NoError(t, err)
	sw = q.MutatableCodes()[pickCode].InstructionAt(0)
	assert.Equal(t, []int32{4}, sw.SwitchKeys)
	assert.Equal(t, 3, sw.SwitchTargets[0].Location)
}

func TestTranslatorFixesTryBlocks(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[makeCode]
	try := c.TryBlocks()[0]
	// an inverted range is written back in order
	try.Start, try.End = c.InstructionAt(1), c.InstructionAt(0)
	writeBackAll(t, p)

	ci := p.Dex().CodeItems[makeCode]
	require.Len(t, ci.Tries, 1)
	assert.EqualValues(t, 0, ci.Tries[0].StartAddr)
	assert.EqualValues(t, 3, ci.Tries[0].InsnCount)
	assert.EqualValues(t, 3, ci.Handlers[ci.Tries[0].HandlerIdx].CatchAllAddr)
}
