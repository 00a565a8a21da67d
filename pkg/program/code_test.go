package program

import (
	"testing"

	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opcodes(c *MutatableCode) []rawdex.Opcode {
	var ops []rawdex.Opcode
	for _, m := range c.Instructions() {
		ops = append(ops, m.Insn.Opcode())
	}
	return ops
}

func TestInsertInstruction(t *testing.T) {
	tests := []struct {
		name     string
		insert   func(c *MutatableCode, m *MInsn)
		wantOps  []rawdex.Opcode
		wantLocs []int
	}{
		{
			name:     "at start",
			insert:   func(c *MutatableCode, m *MInsn) { c.InsertInstructionAt(m, 0) },
			wantOps:  []rawdex.Opcode{rawdex.OpNop, rawdex.OpAddInt, rawdex.OpReturn},
			wantLocs: []int{0, 1, 3},
		},
		{
			name:     "after first",
			insert:   func(c *MutatableCode, m *MInsn) { c.InsertInstructionAfter(m, 0) },
			wantOps:  []rawdex.Opcode{rawdex.OpAddInt, rawdex.OpNop, rawdex.OpReturn},
			wantLocs: []int{0, 2, 3},
		},
		{
			name:     "past the end",
			insert:   func(c *MutatableCode, m *MInsn) { c.InsertInstructionAt(m, 10) },
			wantOps:  []rawdex.Opcode{rawdex.OpAddInt, rawdex.OpReturn, rawdex.OpNop},
			wantLocs: []int{0, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newSampleProgram(t, defaultOptions(1))
			c := p.MutatableCodes()[addCode]
			tt.insert(c, NewMInsn(rawdex.NewInstruction(rawdex.OpNop)))
			if diff := cmp.Diff(tt.wantOps, opcodes(c)); diff != "" {
				t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLocs, locations(c)); diff != "" {
				t.Errorf("locations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteRetargetsBranch(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[branchCode]
	c.DeleteInstructionAt(2)

	require.Equal(t, 2, c.InstructionCount())
	br := c.InstructionAt(0)
	assert.Same(t, c.InstructionAt(1), br.Target)

	writeBackAll(t, p)
	assert.EqualValues(t, 2, target(br.Insn))
}

func TestDeletePayloadTakesOwner(t *testing.T) {
	tests := []struct {
		name string
		idx  int
	}{
		{"switch", 0},
		{"payload", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newSampleProgram(t, defaultOptions(1))
			c := p.MutatableCodes()[pickCode]
			before := c.InstructionCount()
			c.DeleteInstructionAt(tt.idx)

			assert.Equal(t, before-2, c.InstructionCount())
			for _, m := range c.Instructions() {
				assert.False(t, m.IsSwitch() || m.IsRaw(), "%s survived", m)
			}
			if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, locations(c)); diff != "" {
				t.Errorf("locations mismatch (-want +got):\n%s", diff)
			}
			writeBackAll(t, p)
		})
	}
}

func TestDeleteMovesTryBlock(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[makeCode]
	c.DeleteInstructionAt(0)

	try := c.TryBlocks()[0]
	assert.Same(t, c.InstructionAt(0), try.Start)
	assert.Same(t, c.InstructionAt(0), try.End)
	assert.Same(t, c.InstructionAt(1), try.CatchAll)
}

func TestSwapKeepsTryBlockPosition(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[makeCode]
	first, second := c.InstructionAt(0), c.InstructionAt(1)
	c.SwapInstructionsByIndex(0, 1)

	assert.Same(t, second, c.InstructionAt(0))
	assert.Same(t, first, c.InstructionAt(1))
	if diff := cmp.Diff([]int{0, 1, 3, 4}, locations(c)); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
	try := c.TryBlocks()[0]
	assert.Same(t, second, try.Start)
	assert.Same(t, second, try.End)
}

func TestTemporaryVRegs(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[addCode]

	c.AllocateTemporaryVRegs(2)
	assert.EqualValues(t, 4, c.RegistersSize)
	assert.Equal(t, 2, c.TemporaryVReg(0))
	assert.Equal(t, 3, c.TemporaryVReg(1))
	assert.Panics(t, func() { c.TemporaryVReg(2) })

	c.FinishedUsingTemporaryVRegs()
	require.Equal(t, 4, c.InstructionCount())
	for i := range 2 {
		mv := c.InstructionAt(i).Insn
		assert.Equal(t, rawdex.OpMove16, mv.Opcode())
		assert.EqualValues(t, i, mv.VRegA)
		assert.EqualValues(t, i+2, mv.VRegB)
	}
	assert.Equal(t, rawdex.OpAddInt, c.InstructionAt(2).Insn.Opcode())

	// growing the allocation regenerates the moves
	c.AllocateTemporaryVRegs(3)
	c.FinishedUsingTemporaryVRegs()
	assert.EqualValues(t, 5, c.RegistersSize)
	require.Equal(t, 4, c.InstructionCount())
	assert.EqualValues(t, 3, c.InstructionAt(0).Insn.VRegB)

	writeBackAll(t, p)
	assert.EqualValues(t, 5, p.Dex().CodeItems[addCode].RegistersSize)
}

func TestTemporaryVRegsWideAndThis(t *testing.T) {
	c := &MutatableCode{
		Name:          "LTest;.wide",
		Shorty:        "VJ",
		RegistersSize: 4,
		InsSize:       3,
		insns:         []*MInsn{NewMInsn(rawdex.NewInstruction(rawdex.OpReturnVoid))},
	}
	c.AllocateTemporaryVRegs(2)
	c.FinishedUsingTemporaryVRegs()

	tests := []struct {
		op   rawdex.Opcode
		a, b int64
	}{
		{rawdex.OpMoveObject16, 1, 3},
		{rawdex.OpMoveWide16, 2, 4},
	}
	require.Equal(t, len(tests)+1, c.InstructionCount())
	for i, tt := range tests {
		insn := c.InstructionAt(i).Insn
		if insn.Opcode() != tt.op || insn.VRegA != tt.a || insn.VRegB != tt.b {
			t.Errorf("move %d = %s v%d, v%d, want %s v%d, v%d", i, insn.Opcode(), insn.VRegA, insn.VRegB, tt.op, tt.a, tt.b)
		}
	}
}

func TestCloneSharesLinks(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	c := p.MutatableCodes()[pickCode]
	sw := c.InstructionAt(0)
	cl := sw.Clone()

	assert.NotSame(t, sw.Insn, cl.Insn)
	assert.Same(t, sw.DataTarget, cl.DataTarget)
	cl.SwitchTargets[0] = c.InstructionAt(1)
	assert.Same(t, c.InstructionAt(3), sw.SwitchTargets[0])
}
