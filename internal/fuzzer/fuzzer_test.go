package fuzzer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/dexfuzz/internal/config"
	"github.com/blacktop/dexfuzz/internal/dextest"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []byte {
	b := &dextest.Builder{Class: "LSample;"}
	b.Methods = []dextest.Method{
		{
			Name: "calc", Proto: dextest.Proto{Return: "I", Params: []string{"I", "I"}}, Static: true,
			Registers: 4, Ins: 2,
			Insns: []uint16{
				0x0090, 0x0302, // add-int v0, v2, v3
				0x0191, 0x0302, // sub-int v1, v2, v3
				0x3235, 0x0003, // if-ge v2, v3, +3
				0x1012,         // const/4 v0, 1
				0x000f,         // return v0
			},
		},
		{
			Name: "twice", Proto: dextest.Proto{Return: "I", Params: []string{"I"}}, Static: true,
			Registers: 2, Ins: 1,
			Insns: []uint16{
				0x0092, 0x0101, // mul-int v0, v1, v1
				0x0113, 0x0010, // const/16 v1, 16
				0x01b0,         // add-int/2addr v1, v0
				0x010f,         // return v1
			},
		},
	}
	return b.Build()
}

func setup(t *testing.T, edit func(o *config.Options)) (*Fuzzer, *config.Options) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.dex")
	require.NoError(t, os.WriteFile(in, sample(), 0o644))
	o := &config.Options{
		Input:           in,
		Output:          filepath.Join(dir, "out.dex"),
		Seed:            1,
		MethodMutations: 3,
		MinMethods:      1,
		MaxMethods:      2,
		DumpFile:        filepath.Join(dir, "mutations.dump"),
		Report:          "report.log",
		Repeat:          1,
		Jobs:            1,
	}
	if edit != nil {
		edit(o)
	}
	f, err := New(o)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f, o
}

func readChecked(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	integrity, err := rawdex.CheckIntegrity(data)
	require.NoError(t, err)
	assert.True(t, integrity.OK(), "header fixups of %s", path)
	_, err = rawdex.Parse(data)
	require.NoError(t, err)
	return data
}

func TestNewErrors(t *testing.T) {
	_, err := New(&config.Options{})
	assert.Error(t, err)
	_, err = New(&config.Options{Input: filepath.Join(t.TempDir(), "missing.dex")})
	assert.Error(t, err)
	_, err = New(&config.Options{Input: "x", Likelihoods: map[string]int{"nosuchmutator": 5}})
	assert.ErrorContains(t, err, "unknown mutator")
}

func TestFuzzDumpsAndReplays(t *testing.T) {
	f, o := setup(t, func(o *config.Options) { o.DumpMutations = true })

	// a run may draw zero mutations for every method
	var res *Result
	for seed := int64(1); ; seed++ {
		require.Less(t, seed, int64(20), "no seed produced a mutation")
		o.Seed = seed
		var err error
		res, err = f.Fuzz()
		require.NoError(t, err)
		if len(res.Mutations) > 0 {
			break
		}
	}
	assert.True(t, res.Changed)
	first := readChecked(t, o.Output)
	assert.Equal(t, res.Size, len(first))

	dump, err := os.ReadFile(o.DumpFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(dump)), "\n"), len(res.Mutations))

	o.DumpMutations = false
	o.LoadMutations = true
	o.Seed = 99
	o.Output = filepath.Join(filepath.Dir(o.Output), "replayed.dex")
	again, err := f.Fuzz()
	require.NoError(t, err)
	assert.Equal(t, res.Hash, again.Hash)
	assert.True(t, bytes.Equal(first, readChecked(t, o.Output)), "replay differs from the dumped run")
}

func TestSkipMutationRewritesInput(t *testing.T) {
	f, o := setup(t, func(o *config.Options) { o.SkipMutation = true })
	res, err := f.Fuzz()
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Mutations)
	assert.Equal(t, sample(), readChecked(t, o.Output))
}

func TestSameSeedSameOutput(t *testing.T) {
	f, o := setup(t, nil)
	dir := filepath.Dir(o.Output)
	a, err := f.Run(Job{Seed: 7, Output: filepath.Join(dir, "a.dex")})
	require.NoError(t, err)
	b, err := f.Run(Job{Seed: 7, Output: filepath.Join(dir, "b.dex")})
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, readChecked(t, a.Output), readChecked(t, b.Output))
}

func TestUniqueDBSkipsDuplicates(t *testing.T) {
	for _, name := range []string{"unique.db", "unique.gob"} {
		t.Run(name, func(t *testing.T) {
			f, o := setup(t, func(o *config.Options) {
				o.SkipMutation = true
				o.UniqueDB = filepath.Join(t.TempDir(), name)
			})
			dir := filepath.Dir(o.Output)

			first, err := f.Run(Job{Seed: 1, Output: filepath.Join(dir, "first.dex")})
			require.NoError(t, err)
			assert.False(t, first.Duplicate)

			second, err := f.Run(Job{Seed: 2, Output: filepath.Join(dir, "second.dex")})
			require.NoError(t, err)
			assert.True(t, second.Duplicate)
			assert.Equal(t, first.Hash, second.Hash)
			assert.Empty(t, second.Output)
			assert.NoFileExists(t, filepath.Join(dir, "second.dex"))
		})
	}
}

func TestRepeat(t *testing.T) {
	f, o := setup(t, func(o *config.Options) {
		o.Jobs = 3
		o.DumpMutations = true
	})
	dir := filepath.Join(filepath.Dir(o.Output), "runs")

	var calls int
	sum, err := f.Repeat(context.Background(), dir, 6, func(*Result, error) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Runs)
	assert.Equal(t, 6, calls)
	assert.Equal(t, 6, sum.Written)
	assert.Zero(t, sum.Failed)

	total := 0
	for _, name := range sum.Stats.Names() {
		total += sum.Stats.Get(name)
	}
	assert.Positive(t, total)

	for i := range 6 {
		readChecked(t, filepath.Join(dir, OutputName(i)))
		assert.FileExists(t, filepath.Join(dir, strings.TrimSuffix(OutputName(i), ".dex")+".mutations"))
	}
	report, err := os.ReadFile(filepath.Join(dir, "report.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(report)), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "000000.dex seed=1 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[5], "000005.dex seed=6 "), lines[5])
}

func TestRepeatCancelled(t *testing.T) {
	f, o := setup(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := f.Repeat(ctx, filepath.Join(filepath.Dir(o.Output), "runs"), 4, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Runs)
}

func TestLoadMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dump")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	replay, err := LoadMutations(path)
	require.NoError(t, err)
	assert.NotNil(t, replay)
	assert.Empty(t, replay)

	require.NoError(t, os.WriteFile(path, []byte("ArithOpChanger x\n"), 0o644))
	_, err = LoadMutations(path)
	assert.Error(t, err)

	_, err = LoadMutations(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
