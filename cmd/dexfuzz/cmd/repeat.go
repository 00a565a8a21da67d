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
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/internal/colors"
	"github.com/blacktop/dexfuzz/internal/fuzzer"
	"github.com/caarlos0/ctrlc"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

func init() {
	rootCmd.AddCommand(repeatCmd)

	mutationFlags(repeatCmd)
	repeatCmd.Flags().IntP("repeat", "n", 1, "number of iterations")
	repeatCmd.Flags().IntP("jobs", "j", 1, "iterations to run at the same time")
	repeatCmd.Flags().Bool("dump-mutations", false, "write a mutation log next to every output")
	repeatCmd.Flags().String("report", "report.log", "report file, written in the output folder")
	repeatCmd.Flags().StringP("out-dir", "o", "fuzzed", "output folder")
}

// repeatCmd represents the repeat command
var repeatCmd = &cobra.Command{
	Use:   "repeat <DEX>",
	Short: "Mutate a DEX file many times",
	Example: heredoc.Doc(`
		# Produce 1000 mutants, four at a time, skipping duplicates
		❯ dexfuzz repeat classes.dex -n 1000 -j 4 --unique-db unique_progs.db -o mutants/`),
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
		outDir, _ := cmd.Flags().GetString("out-dir")

		var bar *mpb.Bar
		var p *mpb.Progress
		if !Verbose {
			p = mpb.New(mpb.WithWidth(60))
			name := "fuzzing"
			bar = p.New(int64(opts.Repeat),
				mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
				mpb.PrependDecorators(
					decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
					decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
				),
				mpb.AppendDecorators(
					decor.CountersNoUnit("%d/%d"),
					decor.Name(" ] "),
				),
			)
		}
		tick := func(res *fuzzer.Result, err error) {
			if bar != nil {
				bar.Increment()
			}
		}

		log.WithField("run", f.RunID()).Infof("Running %d iterations into %s", opts.Repeat, outDir)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var sum *fuzzer.Summary
		done := make(chan struct{})
		err = ctrlc.Default.Run(ctx, func() error {
			defer close(done)
			var err error
			sum, err = f.Repeat(ctx, outDir, opts.Repeat, tick)
			return err
		})
		if errors.As(err, &ctrlc.ErrorCtrlC{}) {
			log.Warn("Interrupted, waiting for running iterations")
			cancel()
			<-done
			err = nil
		}
		if p != nil {
			if sum == nil || sum.Runs < opts.Repeat {
				bar.Abort(false)
			}
			p.Wait()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if sum == nil {
			return nil
		}

		fmt.Printf("%s %d runs, %s written, %s duplicates, %s failed\n",
			colors.Header().Sprint("Summary"),
			sum.Runs,
			colors.Good().Sprint(humanize.Comma(int64(sum.Written))),
			colors.Warn().Sprint(humanize.Comma(int64(sum.Duplicates))),
			colors.Bad().Sprint(humanize.Comma(int64(sum.Failed))))
		printStats(sum.Stats)
		return nil
	},
}
