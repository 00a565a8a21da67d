// Package colors holds the palette used by listings and reports.
//
// Colors are disabled when stdout is not a terminal; fatih/color detects
// that on its own. Init overrides the detection from CLI flags.
package colors

import "github.com/fatih/color"

// Init overrides the detected color setting when forceColor is not nil.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled reports whether colors are on.
func Enabled() bool {
	return !color.NoColor
}

func Header() *color.Color  { return color.New(color.Bold, color.FgHiCyan) }
func Label() *color.Color   { return color.New(color.FgHiBlue) }
func Address() *color.Color { return color.New(color.Faint, color.FgWhite) }
func Opcode() *color.Color  { return color.New(color.Bold) }
func Comment() *color.Color { return color.New(color.Faint, color.FgGreen) }
func Name() *color.Color    { return color.New(color.FgMagenta) }
func Good() *color.Color    { return color.New(color.Bold, color.FgGreen) }
func Bad() *color.Color     { return color.New(color.Bold, color.FgRed) }
func Warn() *color.Color    { return color.New(color.FgYellow) }

// Status returns "OK" or "BAD" in the matching color.
func Status(ok bool) string {
	if ok {
		return Good().Sprint("OK")
	}
	return Bad().Sprint("BAD")
}
