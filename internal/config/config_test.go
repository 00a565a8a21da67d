package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	o, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "out.dex", o.Output)
	assert.Equal(t, 3, o.MethodMutations)
	assert.Equal(t, 2, o.MinMethods)
	assert.Equal(t, 10, o.MaxMethods)
	assert.Equal(t, "mutations.dump", o.DumpFile)
	assert.Equal(t, "report.log", o.Report)
	assert.Equal(t, 1, o.Repeat)
	assert.Empty(t, o.Likelihoods)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("DEXFUZZ_SEED", "42")
	t.Setenv("DEXFUZZ_MAX_METHODS", "20")

	v := viper.New()
	o, err := Load(v)
	require.NoError(t, err)
	assert.EqualValues(t, 42, o.Seed)
	assert.Equal(t, 20, o.MaxMethods)

	v.Set("fuzz.seed", "7")
	o, err = Load(v)
	require.NoError(t, err)
	assert.EqualValues(t, 7, o.Seed, "viper wins over the environment")
	assert.Equal(t, 20, o.MaxMethods)
}

func TestLoadConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
fuzz:
  method-mutations: 5
  mutate-limit: true
  unique-db: progs.db
  likelihoods:
    ArithOpChanger: 90
    VRegChanger: 250
`)))
	o, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, o.MethodMutations)
	assert.True(t, o.MutateLimit)
	assert.Equal(t, "progs.db", o.UniqueDB)
	want := map[string]int{"arithopchanger": 90, "vregchanger": 100}
	if diff := cmp.Diff(want, o.Likelihoods); diff != "" {
		t.Errorf("likelihoods mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadLikelihoodsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "likelihoods")
	require.NoError(t, os.WriteFile(path, []byte("ArithOpChanger 0\n# comment\nValuePrinter 60\n"), 0o644))

	v := viper.New()
	v.Set("fuzz.likelihoods-file", path)
	o, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"arithopchanger": 0, "valueprinter": 60}, o.Likelihoods)

	v.Set("fuzz.likelihoods-file", filepath.Join(t.TempDir(), "missing"))
	_, err = Load(v)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"no mutations", "fuzz.method-mutations", 0},
		{"inverted range", "fuzz.min-methods", 11},
		{"negative min", "fuzz.min-methods", -1},
		{"no repeats", "fuzz.repeat", 0},
		{"no jobs", "fuzz.jobs", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}

	v := viper.New()
	v.Set("fuzz.dump-mutations", true)
	v.Set("fuzz.load-mutations", true)
	_, err := Load(v)
	assert.Error(t, err)
}

func TestParseLikelihoods(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    map[string]int
		wantErr bool
	}{
		{
			name: "lines",
			data: "ArithOpChanger 10\n\nInstructionDeleter -5 # never\n",
			want: map[string]int{"arithopchanger": 10, "instructiondeleter": 0},
		},
		{
			name: "yaml",
			data: "ArithOpChanger: 10\nInstructionDeleter: 101\n",
			want: map[string]int{"arithopchanger": 10, "instructiondeleter": 100},
		},
		{name: "empty", data: "", want: map[string]int{}},
		{name: "not a number", data: "ArithOpChanger: lots\n", wantErr: true},
		{name: "garbage", data: "a b c\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLikelihoods([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLikelihoods() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); !tt.wantErr && diff != "" {
				t.Errorf("ParseLikelihoods() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveLikelihoods(t *testing.T) {
	names := []string{"ArithOpChanger", "VRegChanger"}
	o := &Options{Likelihoods: map[string]int{"arithopchanger": 5}}
	got, err := o.ResolveLikelihoods(names)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ArithOpChanger": 5}, got)

	o.Likelihoods["nope"] = 1
	_, err = o.ResolveLikelihoods(names)
	assert.Error(t, err)

	po := o.ProgramOptions(got)
	assert.Equal(t, got, po.Likelihoods)
}
