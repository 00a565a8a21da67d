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
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <DEX>...",
	Short: "Check the header fixups of DEX files",
	Example: heredoc.Doc(`
		# Check every mutant of a repeat run
		❯ dexfuzz verify mutants/*.dex`),
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		bad := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", path)
			}
			integrity, err := rawdex.CheckIntegrity(data)
			if err != nil {
				log.WithError(err).Errorf("%s is not a DEX file", path)
				bad++
				continue
			}
			_, parseErr := rawdex.Parse(data)

			fmt.Printf("%s size %s signature %s checksum %s parse %s\n",
				colors.Name().Sprint(path),
				colors.Status(integrity.FileSizeOK()),
				colors.Status(integrity.SignatureOK()),
				colors.Status(integrity.ChecksumOK()),
				colors.Status(parseErr == nil))
			if !integrity.FileSizeOK() {
				log.Debugf("file size is %d, header says %d", integrity.WantFileSize, integrity.FileSize)
			}
			if !integrity.SignatureOK() {
				log.Debugf("signature is %x, header says %x", integrity.WantSignature, integrity.Signature)
			}
			if !integrity.ChecksumOK() {
				log.Debugf("checksum is %#08x, header says %#08x", integrity.WantChecksum, integrity.Checksum)
			}
			if parseErr != nil {
				log.WithError(parseErr).Debug("parse failed")
			}
			if !integrity.OK() || parseErr != nil {
				bad++
			}
		}
		if bad > 0 {
			return errors.Errorf("%d of %d files failed verification", bad, len(args))
		}
		return nil
	},
}
