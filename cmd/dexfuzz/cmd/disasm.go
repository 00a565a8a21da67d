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
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/internal/colors"
	"github.com/blacktop/dexfuzz/internal/listing"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(disasmCmd)

	disasmCmd.Flags().StringP("method", "m", "", "only list methods whose name contains this")
	disasmCmd.Flags().StringP("diff", "d", "", "diff the listing against another DEX file")
	disasmCmd.Flags().String("diff-tool", "", "diff tool: delta, git or go (default is the first found)")
	viper.BindPFlag("disasm.method", disasmCmd.Flags().Lookup("method"))
	viper.BindPFlag("disasm.diff", disasmCmd.Flags().Lookup("diff"))
	viper.BindPFlag("disasm.diff-tool", disasmCmd.Flags().Lookup("diff-tool"))
}

func listMethods(path, filter string) ([]listing.Method, error) {
	dex, err := rawdex.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return listing.Methods(dex, filter)
}

// disasmCmd represents the disasm command
var disasmCmd = &cobra.Command{
	Use:   "disasm <DEX>",
	Short: "List the instructions of every method",
	Example: heredoc.Doc(`
		# List one method
		❯ dexfuzz disasm classes.dex --method LMain;.run
		# Show what a mutation run changed
		❯ dexfuzz disasm classes.dex --diff out.dex --diff-tool go`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := viper.GetString("disasm.method")
		other := viper.GetString("disasm.diff")

		methods, err := listMethods(args[0], filter)
		if err != nil {
			return err
		}
		if other == "" {
			if len(methods) == 0 {
				log.Warn("No methods matched")
			}
			listing.Render(os.Stdout, methods)
			return nil
		}

		theirs, err := listMethods(other, filter)
		if err != nil {
			return err
		}
		out, err := listing.Diff(listing.Text(methods), listing.Text(theirs), &listing.DiffConfig{
			Tool:  viper.GetString("disasm.diff-tool"),
			Color: colors.Enabled(),
		})
		if err != nil {
			return err
		}
		if out == "" {
			log.Info("No differences")
			return nil
		}
		fmt.Println(out)
		return nil
	},
}
