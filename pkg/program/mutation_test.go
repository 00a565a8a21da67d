package program

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMutations(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		want    []ParsedMutation
		wantErr bool
	}{
		{
			name: "fields",
			log:  "ArithOpChanger 2 5 153\nInstructionDeleter 0 1\n",
			want: []ParsedMutation{
				{Mutator: "ArithOpChanger", CodeIdx: 2, Fields: []string{"5", "153"}},
				{Mutator: "InstructionDeleter", CodeIdx: 0, Fields: []string{"1"}},
			},
		},
		{
			name: "blank lines and no fields",
			log:  "\nTryBlockShifter 1\n\n",
			want: []ParsedMutation{{Mutator: "TryBlockShifter", CodeIdx: 1, Fields: []string{}}},
		},
		{name: "empty", log: ""},
		{name: "missing index", log: "ArithOpChanger\n", wantErr: true},
		{name: "bad index", log: "ArithOpChanger two 1\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMutations(strings.NewReader(tt.log))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadMutations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ReadMutations() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteMutations(t *testing.T) {
	records := []MutationRecord{
		{Mutator: "ArithFlipper", CodeIdx: 3, Mutation: &flipMutation{Idx: 7}},
		{Mutator: "ArithFlipper", CodeIdx: 0, Mutation: &flipMutation{Idx: 0}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMutations(&buf, records))
	assert.Equal(t, "ArithFlipper 3 7\nArithFlipper 0 0\n", buf.String())

	parsed, err := ReadMutations(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	m := &flipMutation{}
	require.NoError(t, m.Parse(parsed[0].Fields))
	assert.Equal(t, 7, m.Idx)
}

func TestAttemptToMutate(t *testing.T) {
	_, p := newSampleProgram(t, defaultOptions(1))
	rng := NewRand(1)
	codes := p.MutatableCodes()

	never := &flipMutator{rng: rng, likelihood: 0}
	_, ok := AttemptToMutate(rng, never, codes[addCode])
	assert.False(t, ok)

	always := &flipMutator{rng: rng, likelihood: 100}
	_, ok = AttemptToMutate(rng, always, codes[makeCode])
	assert.False(t, ok, "make has no add-int")

	mut, ok := AttemptToMutate(rng, always, codes[addCode])
	require.True(t, ok)
	assert.Same(t, codes[addCode], mut.MutatableCode())
	assert.Equal(t, []string{"0"}, mut.Fields())
	assert.False(t, always.CanMutate(codes[addCode]))
}

func TestMutationStats(t *testing.T) {
	s := NewMutationStats()
	s.Increment("b")
	s.Increment("a")
	s.Add("b", 2)

	o := NewMutationStats()
	o.Increment("c")
	o.Increment("a")
	s.Merge(o)

	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	assert.Equal(t, 2, s.Get("a"))
	assert.Equal(t, 3, s.Get("b"))
	assert.Zero(t, s.Get("missing"))
	assert.Equal(t, "a: 2\nb: 3\nc: 1\n", s.String())
}
