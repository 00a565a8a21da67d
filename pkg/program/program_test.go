package program

import (
	"bytes"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/blacktop/dexfuzz/internal/dextest"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sbType = "Ljava/lang/StringBuilder;"

// Code item order of sampleBuilder.
const (
	addCode = iota
	pickCode
	branchCode
	makeCode
)

func sampleBuilder() *dextest.Builder {
	b := &dextest.Builder{
		Class: "LTest;",
		Fields: []dextest.Field{
			{Name: "count", Type: "I"},
			{Name: "flag", Type: "Z"},
		},
		Types: []string{sbType},
	}
	sb := uint16(b.TypeIdx(sbType))
	b.Methods = []dextest.Method{
		{
			Name: "add", Proto: dextest.Proto{Return: "I", Params: []string{"I", "I"}}, Static: true,
			Registers: 2, Ins: 2,
			// add-int v0, v0, v1; return v0
			Insns: []uint16{0x0090, 0x0100, 0x000f},
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
				// packed-switch-payload, one case at key 0 jumping to +5
				0x0100, 0x0001, 0x0000, 0x0000, 0x0005, 0x0000,
			},
		},
		{
			Name: "branch", Proto: dextest.Proto{Return: "I", Params: []string{"I"}}, Static: true,
			Registers: 1, Ins: 1,
			Insns: []uint16{
				0x0038, 0x0003, // if-eqz v0, +3
				0x2012,         // const/4 v0, 2
				0x000f,         // return v0
			},
		},
		{
			Name: "make", Proto: dextest.Proto{Return: "Ljava/lang/Object;"}, Static: true,
			Registers: 1,
			// new-instance v0, StringBuilder; return-object v0; move-exception v0; return-object v0
			Insns: []uint16{0x0022, sb, 0x0011, 0x000d, 0x0011},
			Tries: []dextest.Try{{Start: 0, Count: 2, CatchAll: 3}},
		},
	}
	return b
}

// flipMutation turns the add-int at Idx into a sub-int.
type flipMutation struct {
	MutationBase
	Idx int
}

func (m *flipMutation) Fields() []string { return []string{strconv.Itoa(m.Idx)} }

func (m *flipMutation) Parse(fields []string) error {
	if len(fields) != 1 {
		return errors.Errorf("want 1 field, got %d", len(fields))
	}
	idx, err := strconv.Atoi(fields[0])
	m.Idx = idx
	return err
}

type flipMutator struct {
	rng        *rand.Rand
	likelihood int
}

func flipFactory(rng *rand.Rand) []Mutator {
	return []Mutator{&flipMutator{rng: rng, likelihood: 100}}
}

func (f *flipMutator) Name() string          { return "ArithFlipper" }
func (f *flipMutator) Likelihood() int       { return f.likelihood }
func (f *flipMutator) SetLikelihood(l int)   { f.likelihood = l }
func (f *flipMutator) NewMutation() Mutation { return &flipMutation{} }

func (f *flipMutator) adds(c *MutatableCode) []int {
	var idx []int
	for i, m := range c.Instructions() {
		if !m.IsRaw() && m.Insn.Opcode() == rawdex.OpAddInt {
			idx = append(idx, i)
		}
	}
	return idx
}

func (f *flipMutator) CanMutate(c *MutatableCode) bool { return len(f.adds(c)) > 0 }

func (f *flipMutator) Generate(c *MutatableCode) Mutation {
	adds := f.adds(c)
	return &flipMutation{MutationBase: MutationBase{Code: c}, Idx: adds[f.rng.IntN(len(adds))]}
}

func (f *flipMutator) Apply(mut Mutation) {
	m := mut.(*flipMutation)
	m.Code.InstructionAt(m.Idx).Insn.Info = rawdex.OpSubInt.Info()
}

func parseSample(t *testing.T) (*dextest.Builder, []byte, *rawdex.RawDexFile) {
	t.Helper()
	b := sampleBuilder()
	data := b.Build()
	dex, err := rawdex.Parse(data)
	require.NoError(t, err)
	return b, data, dex
}

func newSampleProgram(t *testing.T, opts Options) (*dextest.Builder, *Program) {
	t.Helper()
	b, _, dex := parseSample(t)
	p, err := New(dex, opts, flipFactory)
	require.NoError(t, err)
	return b, p
}

func defaultOptions(seed int64) Options {
	return Options{Seed: seed, MethodMutations: 3, MinMethods: 2, MaxMethods: 10}
}

func TestNewAssociatesMethods(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	codes := p.MutatableCodes()
	require.Len(t, codes, 4)

	tests := []struct {
		idx    int
		name   string
		shorty string
	}{
		{addCode, "LTest;.add", "III"},
		{pickCode, "LTest;.pick", "II"},
		{branchCode, "LTest;.branch", "II"},
		{makeCode, "LTest;.make", "L"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := codes[tt.idx]
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.shorty, c.Shorty)
			assert.True(t, c.IsStatic)
			assert.Equal(t, tt.idx, c.MutatableCodeIdx)
		})
	}
}

func TestMutateLimit(t *testing.T) {
	b := sampleBuilder()
	b.Methods[addCode].Name = "add_MUTATE"
	dex, err := rawdex.Parse(b.Build())
	require.NoError(t, err)

	opts := defaultOptions(1)
	opts.MutateLimit = true
	p, err := New(dex, opts, flipFactory)
	require.NoError(t, err)
	require.Len(t, p.MutatableCodes(), 1)
	assert.Equal(t, "LTest;.add_MUTATE", p.MutatableCodes()[0].Name)
}

func TestLikelihoodOverride(t *testing.T) {
	tests := []struct {
		name      string
		override  int
		want      int
		mutateErr bool
	}{
		{"clamped high", 150, 100, false},
		{"clamped low", -3, 0, true},
		{"disabled", 0, 0, true},
		{"lowered", 25, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions(1)
			opts.Likelihoods = map[string]int{"ArithFlipper": tt.override, "NoSuchMutator": 10}
			_, p := newSampleProgram(t, opts)
			m, ok := p.Mutator("ArithFlipper")
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Likelihood())
			err := p.MutateTheProgram()
			if tt.mutateErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNumberOfMutationsToPerform(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		opts := defaultOptions(7)
		opts.MethodMutations = n
		_, p := newSampleProgram(t, opts)
		seen := make(map[int]int)
		for range 2000 {
			got := p.numberOfMutationsToPerform()
			if got < 0 || got > n {
				t.Fatalf("numberOfMutationsToPerform() = %d, want 0..%d", got, n)
			}
			seen[got]++
		}
		// fewer mutations are more likely
		if seen[0] <= seen[n] {
			t.Errorf("MethodMutations=%d: zero drawn %d times, %d drawn %d times", n, seen[0], n, seen[n])
		}
	}
}

func TestMutateTheProgramValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no mutations", Options{Seed: 1, MethodMutations: 0, MinMethods: 1, MaxMethods: 2}},
		{"inverted range", Options{Seed: 1, MethodMutations: 3, MinMethods: 5, MaxMethods: 2}},
		{"negative min", Options{Seed: 1, MethodMutations: 3, MinMethods: -1, MaxMethods: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newSampleProgram(t, tt.opts)
			assert.Error(t, p.MutateTheProgram())
		})
	}
}

// mutateSample runs a full mutation pass and returns the log and the
// resulting file.
func mutateSample(t *testing.T, opts Options) (string, []byte) {
	t.Helper()
	_, p := newSampleProgram(t, opts)
	require.NoError(t, p.MutateTheProgram())
	_, err := p.UpdateRawDexFile()
	require.NoError(t, err)
	var log bytes.Buffer
	require.NoError(t, p.WriteMutations(&log))
	out, err := p.Dex().Marshal()
	require.NoError(t, err)
	return log.String(), out
}

func TestMutateTheProgramIsDeterministic(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		log1, out1 := mutateSample(t, defaultOptions(seed))
		log2, out2 := mutateSample(t, defaultOptions(seed))
		assert.Equal(t, log1, log2, "seed %d", seed)
		assert.True(t, bytes.Equal(out1, out2), "seed %d gave different files", seed)
	}
}

func TestReplayReproducesFile(t *testing.T) {
	var log string
	var want []byte
	for seed := int64(1); seed < 50 && log == ""; seed++ {
		log, want = mutateSample(t, defaultOptions(seed))
	}
	require.NotEmpty(t, log, "no seed produced a mutation")
	assert.Contains(t, log, "ArithFlipper 0 0\n")

	parsed, err := ReadMutations(bytes.NewBufferString(log))
	require.NoError(t, err)
	opts := defaultOptions(999)
	opts.Replay = parsed
	gotLog, got := mutateSample(t, opts)
	assert.Equal(t, log, gotLog)
	assert.True(t, bytes.Equal(want, got), "replayed file differs")

	dex, err := rawdex.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, rawdex.OpSubInt, dex.CodeItems[addCode].Insns[0].Opcode())
}

func TestReplayErrors(t *testing.T) {
	tests := []struct {
		name   string
		replay []ParsedMutation
	}{
		{"unknown mutator", []ParsedMutation{{Mutator: "Nope", CodeIdx: 0, Fields: []string{"0"}}}},
		{"method out of range", []ParsedMutation{{Mutator: "ArithFlipper", CodeIdx: 9, Fields: []string{"0"}}}},
		{"bad fields", []ParsedMutation{{Mutator: "ArithFlipper", CodeIdx: 0, Fields: []string{"x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions(1)
			opts.Replay = tt.replay
			_, p := newSampleProgram(t, opts)
			assert.Error(t, p.MutateTheProgram())
		})
	}
}

func TestUpdateRawDexFileUnchanged(t *testing.T) {
	_, data, dex := parseSample(t)
	p, err := New(dex, defaultOptions(1), flipFactory)
	require.NoError(t, err)
	changed, err := p.UpdateRawDexFile()
	require.NoError(t, err)
	assert.False(t, changed)
	out, err := dex.Marshal()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, out))
}

func TestProgramLookups(t *testing.T) {
	b, p := newSampleProgram(t, defaultOptions(1))
	add := b.MethodIdx("LTest;", "add")
	assert.Equal(t, "add", p.MethodName(add))
	assert.Equal(t, "(II)I", p.MethodProto(add))
	assert.Equal(t, "()Ljava/lang/Object;", p.MethodProto(b.MethodIdx("LTest;", "make")))
	assert.Equal(t, sbType, p.TypeString(b.TypeIdx(sbType)))

	assert.Equal(t, 2, p.TotalPoolIndicesByKind(rawdex.PoolField))
	assert.Equal(t, len(p.Dex().MethodIDs), p.TotalPoolIndicesByKind(rawdex.PoolMethod))
	assert.Zero(t, p.TotalPoolIndicesByKind(rawdex.PoolNone))

	ef := p.EncodedField(b.FieldIdx("flag"))
	require.NotNil(t, ef)
	assert.False(t, ef.IsVolatile())
	assert.Nil(t, p.EncodedField(42))
}
