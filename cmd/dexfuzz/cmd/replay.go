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
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blacktop/dexfuzz/internal/fuzzer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("output", "o", "out.dex", "mutated output file")
	replayCmd.Flags().String("unique-db", "", "database of seen programs (sqlite file, .gob file or postgres:// URL)")
}

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <DEX> <MUTATIONS>",
	Short: "Apply a mutation log to a DEX file",
	Example: heredoc.Doc(`
		# Reproduce a dumped run
		❯ dexfuzz replay classes.dex run42.dump -o reproduced.dex`),
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd, args[0])
		if err != nil {
			return err
		}
		replay, err := fuzzer.LoadMutations(args[1])
		if err != nil {
			return err
		}
		f, err := fuzzer.New(opts)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := f.Run(fuzzer.Job{Seed: opts.Seed, Output: opts.Output, Replay: replay})
		if err != nil {
			return err
		}
		logResult(res)
		printStats(res.Stats)
		return nil
	},
}
