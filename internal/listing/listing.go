// Package listing renders the code items of a file as text.
package listing

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/blacktop/dexfuzz/internal/colors"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// Line is one instruction of a method.
type Line struct {
	Addr    int
	Text    string
	Comment string
}

// Method is the listing of one code item.
type Method struct {
	Name      string
	CodeIdx   int
	Registers uint16
	Ins       uint16
	Outs      uint16
	Tries     []string
	Lines     []Line
}

func noMutators(*rand.Rand) []program.Mutator { return nil }

// Methods lists every code item of dex whose method name contains filter.
func Methods(dex *rawdex.RawDexFile, filter string) ([]Method, error) {
	p, err := program.New(dex, program.Options{}, noMutators)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load code items")
	}
	var out []Method
	for _, c := range p.MutatableCodes() {
		if filter != "" && !strings.Contains(c.Name, filter) {
			continue
		}
		m := Method{
			Name:      c.Name,
			CodeIdx:   c.CodeItemIdx,
			Registers: c.RegistersSize,
			Ins:       c.InsSize,
			Outs:      c.OutsSize,
		}
		for _, t := range c.TryBlocks() {
			m.Tries = append(m.Tries, tryString(t))
		}
		for _, mi := range c.Instructions() {
			m.Lines = append(m.Lines, Line{
				Addr:    mi.Location,
				Text:    mi.Insn.String(),
				Comment: describe(p, mi),
			})
		}
		out = append(out, m)
	}
	return out, nil
}

func tryString(t *program.MTryBlock) string {
	s := fmt.Sprintf("try %04x..%04x", t.Start.Location, t.End.Location)
	for _, h := range t.Handlers {
		s += fmt.Sprintf(" catch %04x", h.Location)
	}
	if t.CatchAll != nil {
		s += fmt.Sprintf(" catch-all %04x", t.CatchAll.Location)
	}
	return s
}

// describe resolves the links and pool index of mi into a comment.
func describe(p *program.Program, mi *program.MInsn) string {
	if mi.IsRaw() {
		return ""
	}
	var parts []string
	switch {
	case mi.Target != nil:
		parts = append(parts, fmt.Sprintf("-> %04x", mi.Target.Location))
	case mi.DataTarget != nil:
		parts = append(parts, fmt.Sprintf("data %04x", mi.DataTarget.Location))
	}
	for _, t := range mi.SwitchTargets {
		parts = append(parts, fmt.Sprintf("case %04x", t.Location))
	}

	insn := mi.Insn
	if cpi, ok := insn.Info.Format.(rawdex.ContainsPoolIndex); ok {
		if s := poolString(p, insn.PoolIndexKind(), cpi.PoolIndex(insn)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func poolString(p *program.Program, kind rawdex.PoolIndexKind, idx int) string {
	if kind == rawdex.PoolNone {
		return ""
	}
	dex := p.Dex()
	if idx < 0 || idx >= p.TotalPoolIndicesByKind(kind) {
		return fmt.Sprintf("%s@%d out of range", kind, idx)
	}
	switch kind {
	case rawdex.PoolString:
		return fmt.Sprintf("%q", dex.StringAt(idx))
	case rawdex.PoolType:
		return p.TypeString(idx)
	case rawdex.PoolField:
		f := dex.FieldIDs[idx]
		return fmt.Sprintf("%s.%s:%s", p.TypeString(int(f.ClassIdx)), dex.StringAt(int(f.NameIdx)), p.TypeString(int(f.TypeIdx)))
	case rawdex.PoolMethod:
		m := dex.MethodIDs[idx]
		return fmt.Sprintf("%s.%s%s", p.TypeString(int(m.ClassIdx)), p.MethodName(idx), p.MethodProto(idx))
	}
	return ""
}

// Text renders methods without color, one instruction per line.
func Text(methods []Method) string {
	var sb strings.Builder
	for _, m := range methods {
		write(&sb, m, false)
	}
	return sb.String()
}

// Render writes methods to w, colored when colors are enabled.
func Render(w io.Writer, methods []Method) {
	for _, m := range methods {
		write(w, m, colors.Enabled())
	}
}

func write(w io.Writer, m Method, colored bool) {
	paint := func(_ func() *color.Color, s string) string { return s }
	if colored {
		paint = func(c func() *color.Color, s string) string { return c().Sprint(s) }
	}
	fmt.Fprintf(w, "%s (code item %d, registers %d, ins %d, outs %d)\n",
		paint(colors.Header, m.Name), m.CodeIdx, m.Registers, m.Ins, m.Outs)
	for _, t := range m.Tries {
		fmt.Fprintf(w, "  %s\n", paint(colors.Label, t))
	}
	for _, l := range m.Lines {
		op, rest, _ := strings.Cut(l.Text, " ")
		line := fmt.Sprintf("  %s: %s", paint(colors.Address, fmt.Sprintf("%04x", l.Addr)), paint(colors.Opcode, op))
		if rest != "" {
			line += " " + rest
		}
		if l.Comment != "" {
			line += "  " + paint(colors.Comment, "// "+l.Comment)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}
