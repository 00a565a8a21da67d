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

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blacktop/dexfuzz/internal/colors"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolP("map", "m", false, "list the map items")
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <DEX>",
	Short: "Display the header and sections of a DEX file",
	Example: heredoc.Doc(`
		❯ dexfuzz info classes.dex --map`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		showMap, _ := cmd.Flags().GetBool("map")

		dex, err := rawdex.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args[0])
		}

		fmt.Println(colors.Header().Sprint("Header"))
		fmt.Print(dex.Header.String())
		fmt.Printf("CodeItems     = %d\n", len(dex.CodeItems))
		fmt.Printf("ClassDatas    = %d\n", len(dex.ClassDatas))

		if !showMap {
			return nil
		}
		fmt.Println()
		fmt.Println(colors.Header().Sprint("Map"))
		for i, mi := range dex.MapList.Items {
			start := mi.Offset.OriginalOffset()
			end := dex.MapList.SectionEnd(i, int(dex.Header.FileSize))
			fmt.Printf("  %s %s %6d items  %s\n",
				colors.Address().Sprintf("%#08x", start),
				colors.Label().Sprintf("%-28s", mi.Type),
				mi.Size,
				humanize.Bytes(uint64(max(end-start, 0))))
		}
		return nil
	},
}
