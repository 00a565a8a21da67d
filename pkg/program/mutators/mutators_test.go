package mutators

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/blacktop/dexfuzz/internal/dextest"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *dextest.Builder {
	b := &dextest.Builder{
		Class:  "LTest;",
		Fields: []dextest.Field{{Name: "count", Type: "I"}},
		Types:  []string{"[I"},
	}
	arr := uint16(b.TypeIdx("[I"))
	self := uint16(b.TypeIdx("LTest;"))
	b.Methods = []dextest.Method{
		{
			Name: "calc", Proto: dextest.Proto{Return: "I", Params: []string{"I", "I"}}, Static: true,
			Registers: 4, Ins: 2,
			Insns: []uint16{
				0x0090, 0x0302, // add-int v0, v2, v3
				0x2081,         // int-to-long v0, v2
				0x012d, 0x0302, // cmpl-float v1, v2, v3
				0x0113, 0x0007, // const/16 v1, 7
				0x3235, 0x0003, // if-ge v2, v3, +3
				0x1012,         // const/4 v0, 1
				0x000f,         // return v0
			},
		},
		{
			Name: "<init>", Proto: dextest.Proto{Return: "V"},
			Registers: 1, Ins: 1,
			Insns: []uint16{0x000e},
		},
		{
			Name: "pick", Proto: dextest.Proto{Return: "I", Params: []string{"I"}}, Static: true,
			Registers: 2, Ins: 1,
			Insns: []uint16{
				0x012b, 0x0008, 0x0000, // packed-switch v1, +8
				0x0012,                 // const/4 v0, 0
				0x000f,                 // return v0
				0x1012,                 // const/4 v0, 1
				0x000f,                 // return v0
				0x0000,                 // nop
				0x0100, 0x0001, 0x0000, 0x0000, 0x0005, 0x0000,
			},
		},
	}
	b.Methods = append(b.Methods, dextest.Method{
		Name: "alloc", Proto: dextest.Proto{Return: "Ljava/lang/Object;"}, Static: true,
		Registers: 2, Outs: 1,
		Tries: []dextest.Try{{Start: 3, Count: 5, CatchAll: 11}},
	})
	// method and field indices are known once every method is listed
	initIdx := uint16(b.MethodIdx("LTest;", "<init>"))
	count := uint16(b.FieldIdx("count"))
	b.Methods[len(b.Methods)-1].Insns = []uint16{
		0x3012,                  // const/4 v0, 3
		0x0123, arr,             // new-array v1, v0, [I
		0x0022, self,            // new-instance v0, LTest;
		0x1070, initIdx, 0x0000, // invoke-direct {v0}, LTest;.<init>
		0x0152, count,           // iget v1, v0, LTest;.count
		0x0011,                  // return-object v0
		0x000d,                  // move-exception v0
		0x0011,                  // return-object v0
	}
	return b
}

func options(seed int64) program.Options {
	return program.Options{Seed: seed, MethodMutations: 3, MinMethods: 2, MaxMethods: 10}
}

func newProgram(t *testing.T, opts program.Options) *program.Program {
	t.Helper()
	dex, err := rawdex.Parse(fixture().Build())
	require.NoError(t, err)
	p, err := program.New(dex, opts, All)
	require.NoError(t, err)
	return p
}

func codeNamed(t *testing.T, p *program.Program, name string) *program.MutatableCode {
	t.Helper()
	for _, c := range p.MutatableCodes() {
		if c.Name == "LTest;."+name {
			return c
		}
	}
	t.Fatalf("no method %s", name)
	return nil
}

// replay applies log to a fresh program and returns the file it writes
// back, parsed again.
func replay(t *testing.T, log string) *rawdex.RawDexFile {
	t.Helper()
	parsed, err := program.ReadMutations(strings.NewReader(log))
	require.NoError(t, err)
	opts := options(1)
	opts.Replay = parsed
	p := newProgram(t, opts)
	require.NoError(t, p.MutateTheProgram())
	_, err = p.UpdateRawDexFile()
	require.NoError(t, err)

	var written bytes.Buffer
	require.NoError(t, p.WriteMutations(&written))
	assert.Equal(t, log, written.String())

	out, err := p.Dex().Marshal()
	require.NoError(t, err)
	dex, err := rawdex.Parse(out)
	require.NoError(t, err)
	_, err = program.New(dex, options(1), All)
	require.NoError(t, err, "mutated file does not translate")
	return dex
}

func insnOps(ci *rawdex.CodeItem) []rawdex.Opcode {
	var ops []rawdex.Opcode
	for _, insn := range ci.Insns {
		if !insn.JustRaw {
			ops = append(ops, insn.Opcode())
		}
	}
	return ops
}

func methodName(dex *rawdex.RawDexFile, idx int) string {
	return dex.StringAt(int(dex.MethodIDs[idx].NameIdx))
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 23)
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate mutator %s", n)
		seen[n] = true
	}
	assert.Contains(t, names, "ArithOpChanger")
	assert.Contains(t, names, "VRegChanger")
}

func TestEveryMutatorRoundTrips(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			applied := 0
			for seed := int64(1); seed <= 4; seed++ {
				p := newProgram(t, options(seed))
				m, ok := p.Mutator(name)
				require.True(t, ok)

				var mutable []*program.MutatableCode
				for _, c := range p.MutatableCodes() {
					if m.CanMutate(c) {
						mutable = append(mutable, c)
					}
				}
				if len(mutable) == 0 {
					continue
				}
				c := mutable[int(seed)%len(mutable)]
				mut := m.Generate(c)
				fields := mut.Fields()

				again := m.NewMutation()
				again.SetMutatableCode(c)
				require.NoError(t, again.Parse(fields))
				if diff := cmp.Diff(fields, again.Fields()); diff != "" {
					t.Fatalf("fields mismatch (-want +got):\n%s", diff)
				}

				rec := program.MutationRecord{Mutator: name, CodeIdx: c.MutatableCodeIdx, Mutation: mut}
				replay(t, rec.String()+"\n")
				applied++
			}
			assert.Positive(t, applied, "%s never applied to the fixture", name)
		})
	}
}

func TestArithOpChangerAddToSub(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "calc")
	dex := replay(t, fmt.Sprintf("ArithOpChanger %d 0 %d\n", c.MutatableCodeIdx, rawdex.OpSubInt))

	insn := dex.CodeItems[c.CodeItemIdx].Insns[0]
	assert.Equal(t, rawdex.OpSubInt, insn.Opcode())
	assert.EqualValues(t, 0, insn.VRegA)
	assert.EqualValues(t, 2, insn.VRegB)
	assert.EqualValues(t, 3, insn.VRegC)
}

func TestArithOpChangerStaysInGroup(t *testing.T) {
	p := newProgram(t, options(7))
	c := codeNamed(t, p, "calc")
	m, _ := p.Mutator("ArithOpChanger")
	for range 50 {
		mut := m.Generate(c).(*ArithOpChangerMutation)
		assert.NotEqual(t, rawdex.OpAddInt, mut.NewOpcode)
		assert.True(t, mut.NewOpcode.Between(rawdex.OpAddInt, rawdex.OpUshrInt), "%s", mut.NewOpcode)
	}
}

func TestOppositeBias(t *testing.T) {
	tests := []struct {
		op, want rawdex.Opcode
	}{
		{rawdex.OpCmplFloat, rawdex.OpCmpgFloat},
		{rawdex.OpCmpgFloat, rawdex.OpCmplFloat},
		{rawdex.OpCmplDouble, rawdex.OpCmpgDouble},
		{rawdex.OpCmpgDouble, rawdex.OpCmplDouble},
		// anything else falls back to cmpl-float
		{rawdex.OpCmpLong, rawdex.OpCmplFloat},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := oppositeBias(tt.op); got != tt.want {
				t.Errorf("oppositeBias(%s) = %s, want %s", tt.op, got, tt.want)
			}
		})
	}
}

func TestOppositeBranchChanger(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "calc")
	dex := replay(t, fmt.Sprintf("OppositeBranchChanger %d 4\n", c.MutatableCodeIdx))

	ci := dex.CodeItems[c.CodeItemIdx]
	assert.Equal(t, rawdex.OpIfLt, ci.Insns[4].Opcode())
	assert.EqualValues(t, 3, ci.Insns[4].VRegC, "branch offset kept")
}

func TestRegisterClobber(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "calc")
	dex := replay(t, fmt.Sprintf("RegisterClobber %d 2 3\n", c.MutatableCodeIdx))

	ci := dex.CodeItems[c.CodeItemIdx]
	clobber := ci.Insns[2]
	assert.Equal(t, rawdex.OpConst16, clobber.Opcode())
	assert.EqualValues(t, 3, clobber.VRegA)
	assert.EqualValues(t, 0, clobber.VRegB)
	// the if-ge moved by two units and still reaches the return
	assert.EqualValues(t, 3, ci.Insns[5].VRegC)
}

func TestNonsenseStringPrinter(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "calc")
	dex := replay(t, fmt.Sprintf("NonsenseStringPrinter %d 0 hello\n", c.MutatableCodeIdx))

	ci := dex.CodeItems[c.CodeItemIdx]
	assert.EqualValues(t, 6, ci.RegistersSize)
	assert.EqualValues(t, 2, ci.OutsSize)
	want := []rawdex.Opcode{
		rawdex.OpMove16, rawdex.OpMove16,
		rawdex.OpSgetObject, rawdex.OpConstString, rawdex.OpInvokeVirtual,
		rawdex.OpAddInt,
	}
	if diff := cmp.Diff(want, insnOps(ci)[:len(want)]); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "hello", dex.StringAt(int(ci.Insns[3].VRegB)))
	call := ci.Insns[4]
	assert.Equal(t, "print", methodName(dex, int(call.VRegB)))
	assert.EqualValues(t, 2, call.VRegA)
	assert.EqualValues(t, 4, call.VRegC)
	assert.EqualValues(t, 5, call.Invoke.VRegD)
}

func TestValuePrinter(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "calc")
	dex := replay(t, fmt.Sprintf("ValuePrinter %d 0\n", c.MutatableCodeIdx))

	ci := dex.CodeItems[c.CodeItemIdx]
	assert.EqualValues(t, 5, ci.RegistersSize)
	want := []rawdex.Opcode{
		rawdex.OpMove16, rawdex.OpMove16,
		rawdex.OpAddInt, rawdex.OpSgetObject, rawdex.OpInvokeVirtual,
		rawdex.OpIntToLong,
	}
	if diff := cmp.Diff(want, insnOps(ci)[:len(want)]); diff != "" {
		t.Errorf("opcodes mismatch (-want +got):\n%s", diff)
	}
	call := ci.Insns[4]
	assert.Equal(t, "println", methodName(dex, int(call.VRegB)))
	assert.EqualValues(t, 4, call.VRegC)
	assert.EqualValues(t, 0, call.Invoke.VRegD)
}

func TestResultType(t *testing.T) {
	tests := []struct {
		op   rawdex.Opcode
		want string
	}{
		{rawdex.OpMulInt, "I"},
		{rawdex.OpAddLong2Addr, "J"},
		{rawdex.OpRemFloat, "F"},
		{rawdex.OpDivDouble2Addr, "D"},
		{rawdex.OpXorIntLit8, "I"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultType(tt.op), tt.op.String())
	}
}

func TestTryBlockShifterMovesStart(t *testing.T) {
	p := newProgram(t, options(1))
	c := codeNamed(t, p, "alloc")
	dex := replay(t, fmt.Sprintf("TryBlockShifter %d 0 %d 0 1\n", c.MutatableCodeIdx, TryStart))

	tries := dex.CodeItems[c.CodeItemIdx].Tries
	require.Len(t, tries, 1)
	assert.EqualValues(t, 1, tries[0].StartAddr)
	assert.EqualValues(t, 7, tries[0].InsnCount)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		mutator string
		fields  []string
	}{
		{"ArithOpChanger", []string{"1"}},
		{"ArithOpChanger", []string{"x", "1"}},
		{"ArithOpChanger", []string{"1", "256"}},
		{"FieldFlagChanger", []string{"0", "maybe"}},
		{"NewMethodCaller", []string{"0"}},
		{"NewMethodCaller", []string{"0", "9"}},
		{"NewMethodCaller", []string{"0", "0", "1"}},
		{"TryBlockShifter", []string{"0", "7", "0", "1"}},
		{"VRegChanger", []string{"0", "1", "2", "3"}},
	}
	p := newProgram(t, options(1))
	for _, tt := range tests {
		t.Run(tt.mutator+" "+strings.Join(tt.fields, " "), func(t *testing.T) {
			m, ok := p.Mutator(tt.mutator)
			require.True(t, ok)
			assert.Error(t, m.NewMutation().Parse(tt.fields))
		})
	}
}

func TestRandomConst(t *testing.T) {
	rng := program.NewRand(3)
	for _, bits := range []int{4, 8, 16, 32} {
		lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
		for range 100 {
			v := randomConst(rng, bits)
			assert.True(t, v >= lo && v <= hi, "%d does not fit %d bits", v, bits)
		}
	}
}

func TestFitsInvoke(t *testing.T) {
	c := &program.MutatableCode{RegistersSize: 14}
	assert.True(t, fitsInvoke(c, 2))
	assert.False(t, fitsInvoke(c, 3))
	assert.Equal(t, 14, maxVReg(c, 8))
	assert.Equal(t, 14, maxVReg(c, 4))
	c.RegistersSize = 40
	assert.Equal(t, 16, maxVReg(c, 4))
	assert.Equal(t, 40, maxVReg(c, 16))
}

func TestNearestOther(t *testing.T) {
	tests := []struct {
		name       string
		candidates []int
		cur        int
		want       int
	}{
		{"next", []int{0, 9, 12}, 0, 9},
		{"previous", []int{1, 2, 30}, 30, 2},
		{"tie takes the earlier", []int{2, 11, 20}, 11, 2},
		{"cur not a candidate", []int{3, 40}, 20, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nearestOther(tt.candidates, tt.cur))
		})
	}
}

// linked renders the instructions and try blocks of c with every link
// given as an instruction index.
func linked(c *program.MutatableCode) []string {
	idx := func(m *program.MInsn) int {
		if m == nil {
			return -1
		}
		return c.InstructionIndex(m)
	}
	out := []string{fmt.Sprintf("registers=%d ins=%d outs=%d", c.RegistersSize, c.InsSize, c.OutsSize)}
	for _, m := range c.Instructions() {
		s := fmt.Sprintf("%s target=%d data=%d", m, idx(m.Target), idx(m.DataTarget))
		for _, st := range m.SwitchTargets {
			s += fmt.Sprintf(" case=%d", idx(st))
		}
		out = append(out, s)
	}
	for _, tb := range c.TryBlocks() {
		s := fmt.Sprintf("try %d..%d catch-all=%d", idx(tb.Start), idx(tb.End), idx(tb.CatchAll))
		for _, h := range tb.Handlers {
			s += fmt.Sprintf(" catch=%d", idx(h))
		}
		out = append(out, s)
	}
	return out
}

func TestApplyMatchesReplay(t *testing.T) {
	kinds := []rawdex.PoolIndexKind{rawdex.PoolString, rawdex.PoolType, rawdex.PoolField, rawdex.PoolMethod}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			applied := 0
			for seed := int64(1); seed <= 8; seed++ {
				direct := newProgram(t, options(seed))
				m, ok := direct.Mutator(name)
				require.True(t, ok)

				var mutable []*program.MutatableCode
				for _, c := range direct.MutatableCodes() {
					if m.CanMutate(c) {
						mutable = append(mutable, c)
					}
				}
				if len(mutable) == 0 {
					continue
				}
				c := mutable[int(seed)%len(mutable)]
				mut := m.Generate(c)
				m.Apply(mut)
				rec := program.MutationRecord{Mutator: name, CodeIdx: c.MutatableCodeIdx, Mutation: mut}

				parsed, err := program.ReadMutations(strings.NewReader(rec.String() + "\n"))
				require.NoError(t, err)
				opts := options(seed)
				opts.Replay = parsed
				replayed := newProgram(t, opts)
				require.NoError(t, replayed.MutateTheProgram())

				want, got := direct.MutatableCodes(), replayed.MutatableCodes()
				require.Len(t, got, len(want))
				for i := range want {
					if diff := cmp.Diff(linked(want[i]), linked(got[i])); diff != "" {
						t.Fatalf("seed %d, %s: replay differs (-applied +replayed):\n%s", seed, want[i].Name, diff)
					}
				}
				for _, k := range kinds {
					assert.Equal(t, direct.TotalPoolIndicesByKind(k), replayed.TotalPoolIndicesByKind(k), "seed %d %s pool", seed, k)
				}
				applied++
			}
			assert.Positive(t, applied, "%s never applied to the fixture", name)
		})
	}
}
