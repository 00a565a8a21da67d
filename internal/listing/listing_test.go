package listing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/blacktop/dexfuzz/internal/dextest"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T, last uint16) (*rawdex.RawDexFile, int) {
	t.Helper()
	b := &dextest.Builder{
		Class:  "LTest;",
		Fields: []dextest.Field{{Name: "count", Type: "I", Static: true}},
	}
	count := uint16(b.FieldIdx("count"))
	b.Methods = []dextest.Method{{
		Name: "run", Proto: dextest.Proto{Return: "I", Params: []string{"I"}}, Static: true,
		Registers: 2, Ins: 1,
		Insns: []uint16{
			0x0138, 0x0005, // if-eqz v1, +5
			0x0060, count,  // sget v0, LTest;.count
			0x000f,         // return v0
			last,           // const/4 v0, ?
			0x000f,         // return v0
		},
	}}
	dex, err := rawdex.Parse(b.Build())
	require.NoError(t, err)
	return dex, int(count)
}

func TestMethods(t *testing.T) {
	dex, count := sample(t, 0x0012)
	methods, err := Methods(dex, "")
	require.NoError(t, err)
	require.Len(t, methods, 1)

	m := methods[0]
	assert.Equal(t, "LTest;.run", m.Name)
	assert.EqualValues(t, 2, m.Registers)
	want := []Line{
		{Addr: 0, Text: "if-eqz v1 +5", Comment: "-> 0005"},
		{Addr: 2, Text: fmt.Sprintf("sget v0 pool@%d", count), Comment: "LTest;.count:I"},
		{Addr: 4, Text: "return v0"},
		{Addr: 5, Text: "const/4 v0 #0"},
		{Addr: 6, Text: "return v0"},
	}
	if diff := cmp.Diff(want, m.Lines); diff != "" {
		t.Errorf("Methods() lines mismatch (-want +got):\n%s", diff)
	}

	none, err := Methods(dex, "nosuch")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestText(t *testing.T) {
	dex, _ := sample(t, 0x0012)
	methods, err := Methods(dex, "run")
	require.NoError(t, err)
	text := Text(methods)
	assert.True(t, strings.HasPrefix(text, "LTest;.run (code item 0, registers 2, ins 1, outs 0)\n"), text)
	assert.Contains(t, text, "  0000: if-eqz v1 +5  // -> 0005\n")
	assert.NotContains(t, text, "\x1b[")
}

func TestGoDiff(t *testing.T) {
	a, _ := sample(t, 0x0012)
	b, _ := sample(t, 0x1012)
	ma, err := Methods(a, "")
	require.NoError(t, err)
	mb, err := Methods(b, "")
	require.NoError(t, err)

	out, err := Diff(Text(ma), Text(mb), &DiffConfig{Tool: "go"})
	require.NoError(t, err)
	assert.Contains(t, out, "-   0005: const/4 v0 #0\n")
	assert.Contains(t, out, "+   0005: const/4 v0 #1\n")
	assert.Contains(t, out, "    0004: return v0\n")

	same, err := Diff(Text(ma), Text(ma), &DiffConfig{Tool: "go"})
	require.NoError(t, err)
	assert.Empty(t, same)

	_, err = Diff("a", "b", &DiffConfig{Tool: "meld"})
	assert.Error(t, err)
}
