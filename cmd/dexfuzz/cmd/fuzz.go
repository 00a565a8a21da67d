/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/internal/config"
	"github.com/blacktop/dexfuzz/internal/fuzzer"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(fuzzCmd)

	mutationFlags(fuzzCmd)
	fuzzCmd.Flags().StringP("output", "o", "out.dex", "mutated output file")
	fuzzCmd.Flags().Bool("dump-mutations", false, "write the applied mutations to --dump-file")
	fuzzCmd.Flags().Bool("load-mutations", false, "replay the mutations in --dump-file instead of mutating")
	fuzzCmd.Flags().String("dump-file", "mutations.dump", "mutation log file")
	fuzzCmd.Flags().Bool("skip-mutation", false, "rewrite the input without mutating it")
	fuzzCmd.MarkFlagsMutuallyExclusive("dump-mutations", "load-mutations")
	fuzzCmd.MarkFlagsMutuallyExclusive("skip-mutation", "load-mutations")
}

// mutationFlags registers the options every mutating command takes.
func mutationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64P("seed", "s", 0, "random seed (default is time based)")
	f.Int("method-mutations", 3, "maximum number of mutations per method")
	f.Int("min-methods", 2, "minimum number of methods to mutate")
	f.Int("max-methods", 10, "maximum number of methods to mutate")
	f.Bool("mutate-limit", false, "only mutate methods whose name ends in _MUTATE")
	f.String("unique-db", "", "database of seen programs (sqlite file, .gob file or postgres:// URL)")
	f.Int("cache-size", 4096, "number of hashes cached in front of --unique-db")
	f.String("likelihoods-file", "", "file of mutator likelihoods (\"Name value\" lines or YAML)")
}

// loadOptions binds the local flags of cmd into the fuzz section and loads
// the fuzzer options for input.
func loadOptions(cmd *cobra.Command, input string) (*config.Options, error) {
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(config.Section+"."+f.Name, f)
	})
	opts, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	opts.Input = input
	if !viper.IsSet(config.Section+".seed") && os.Getenv(config.EnvPrefix+"SEED") == "" {
		opts.Seed = time.Now().UnixNano()
	}
	log.WithField("seed", opts.Seed).Info("Using seed")
	return opts, nil
}

func logResult(res *fuzzer.Result) {
	if res.Duplicate {
		log.WithField("hash", res.Hash).Warn("Program was produced before, nothing written")
		return
	}
	log.WithFields(log.Fields{
		"size":      humanize.Bytes(uint64(res.Size)),
		"mutations": len(res.Mutations),
		"changed":   res.Changed,
	}).Infof("Wrote %s", res.Output)
}

// fuzzCmd represents the fuzz command
var fuzzCmd = &cobra.Command{
	Use:   "fuzz <DEX>",
	Short: "Mutate a DEX file once",
	Example: heredoc.Doc(`
		# Mutate classes.dex into out.dex
		❯ dexfuzz fuzz classes.dex
		# Mutate with a fixed seed and keep a log of the mutations
		❯ dexfuzz fuzz classes.dex --seed 42 --dump-mutations --dump-file run42.dump
		# Skip programs a previous run already produced
		❯ dexfuzz fuzz classes.dex --unique-db unique_progs.db`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd, args[0])
		if err != nil {
			return err
		}
		f, err := fuzzer.New(opts)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := f.Fuzz()
		if err != nil {
			return err
		}
		logResult(res)
		if opts.DumpMutations && !res.Duplicate {
			log.Infof("Mutation log written to %s", opts.DumpFile)
		}
		printStats(res.Stats)
		return nil
	},
}
