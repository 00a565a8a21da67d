// Package config is used to load the fuzzer configuration
package config

import (
	"strings"

	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/caarlos0/env/v8"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// Section is the viper key prefix of the fuzzer options.
	Section = "fuzz"
	// EnvPrefix is the prefix of the environment overrides.
	EnvPrefix = "DEXFUZZ_"
)

// Options holds every fuzzer setting.
type Options struct {
	Input           string `mapstructure:"input" env:"INPUT"`
	Output          string `mapstructure:"output" env:"OUTPUT" envDefault:"out.dex"`
	Seed            int64  `mapstructure:"seed" env:"SEED"`
	MethodMutations int    `mapstructure:"method-mutations" env:"METHOD_MUTATIONS" envDefault:"3"`
	MinMethods      int    `mapstructure:"min-methods" env:"MIN_METHODS" envDefault:"2"`
	MaxMethods      int    `mapstructure:"max-methods" env:"MAX_METHODS" envDefault:"10"`
	MutateLimit     bool   `mapstructure:"mutate-limit" env:"MUTATE_LIMIT"`
	SkipMutation    bool   `mapstructure:"skip-mutation" env:"SKIP_MUTATION"`
	DumpMutations   bool   `mapstructure:"dump-mutations" env:"DUMP_MUTATIONS"`
	LoadMutations   bool   `mapstructure:"load-mutations" env:"LOAD_MUTATIONS"`
	DumpFile        string `mapstructure:"dump-file" env:"DUMP_FILE" envDefault:"mutations.dump"`
	UniqueDB        string `mapstructure:"unique-db" env:"UNIQUE_DB"`
	CacheSize       int    `mapstructure:"cache-size" env:"CACHE_SIZE" envDefault:"4096"`
	Report          string `mapstructure:"report" env:"REPORT" envDefault:"report.log"`
	Repeat          int    `mapstructure:"repeat" env:"REPEAT" envDefault:"1"`
	Jobs            int    `mapstructure:"jobs" env:"JOBS" envDefault:"1"`
	LikelihoodsFile string `mapstructure:"likelihoods-file" env:"LIKELIHOODS_FILE"`
	// Likelihoods maps lower case mutator names to 0..100.
	Likelihoods map[string]int `mapstructure:"-"`
}

// Load returns the defaults, overridden by DEXFUZZ_* environment variables,
// overridden by every fuzz.* key set in v.
func Load(v *viper.Viper) (*Options, error) {
	o := &Options{}
	if err := env.ParseWithOptions(o, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "config: failed to parse environment")
	}

	set := make(map[string]any)
	for _, key := range v.AllKeys() {
		name, ok := strings.CutPrefix(key, Section+".")
		if !ok || !v.IsSet(key) {
			continue
		}
		if head, _, nested := strings.Cut(name, "."); nested {
			// likelihoods.<name> keys from a config file
			if head == "likelihoods" {
				set[head] = v.Get(Section + "." + head)
			}
			continue
		}
		set[name] = v.Get(key)
	}

	var raw any
	if l, ok := set["likelihoods"]; ok {
		raw = l
		delete(set, "likelihoods")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           o,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "config: failed to create decoder")
	}
	if err := dec.Decode(set); err != nil {
		return nil, errors.Wrap(err, "config: failed to decode")
	}

	o.Likelihoods = make(map[string]int)
	if raw != nil {
		if err := mergeLikelihoods(o.Likelihoods, raw); err != nil {
			return nil, errors.Wrap(err, "config: bad likelihoods")
		}
	}
	if o.LikelihoodsFile != "" {
		l, err := ReadLikelihoods(o.LikelihoodsFile)
		if err != nil {
			return nil, err
		}
		for k, v := range l {
			o.Likelihoods[k] = v
		}
	}

	if err := o.verify(); err != nil {
		return nil, errors.Wrap(err, "config: failed to verify")
	}
	return o, nil
}

func (o *Options) verify() error {
	switch {
	case o.MethodMutations < 1:
		return errors.Errorf("method-mutations must be at least 1, got %d", o.MethodMutations)
	case o.MinMethods < 0 || o.MaxMethods < o.MinMethods:
		return errors.Errorf("invalid method range %d..%d", o.MinMethods, o.MaxMethods)
	case o.Repeat < 1:
		return errors.Errorf("repeat must be at least 1, got %d", o.Repeat)
	case o.Jobs < 1:
		return errors.Errorf("jobs must be at least 1, got %d", o.Jobs)
	case o.DumpMutations && o.LoadMutations:
		return errors.New("dump-mutations and load-mutations cannot be set at the same time")
	case o.SkipMutation && o.LoadMutations:
		return errors.New("skip-mutation and load-mutations cannot be set at the same time")
	}
	return nil
}

// ResolveLikelihoods maps the configured overrides onto the given mutator
// names. Unknown names are an error.
func (o *Options) ResolveLikelihoods(names []string) (map[string]int, error) {
	byLower := make(map[string]string, len(names))
	for _, n := range names {
		byLower[strings.ToLower(n)] = n
	}
	out := make(map[string]int, len(o.Likelihoods))
	for k, v := range o.Likelihoods {
		name, ok := byLower[strings.ToLower(k)]
		if !ok {
			return nil, errors.Errorf("unknown mutator %q", k)
		}
		out[name] = v
	}
	return out, nil
}

// ProgramOptions returns the options the mutation engine needs.
func (o *Options) ProgramOptions(likelihoods map[string]int) program.Options {
	return program.Options{
		Seed:            o.Seed,
		MethodMutations: o.MethodMutations,
		MinMethods:      o.MinMethods,
		MaxMethods:      o.MaxMethods,
		MutateLimit:     o.MutateLimit,
		Likelihoods:     likelihoods,
	}
}
