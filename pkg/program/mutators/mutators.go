// Package mutators holds the code mutators of dexfuzz.
package mutators

import (
	"math/rand/v2"
	"strconv"

	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
)

// All returns one of every mutator with its default likelihood.
func All(rng *rand.Rand) []program.Mutator {
	return []program.Mutator{
		NewArithOpChanger(rng),
		NewBranchShifter(rng),
		NewCmpBiasChanger(rng),
		NewConstantValueChanger(rng),
		NewConversionRepeater(rng),
		NewFieldFlagChanger(rng),
		NewInstructionDeleter(rng),
		NewInstructionDuplicator(rng),
		NewInstructionSwapper(rng),
		NewInvokeChanger(rng),
		NewNewArrayLengthChanger(rng),
		NewNewInstanceChanger(rng),
		NewNewMethodCaller(rng),
		NewNonsenseStringPrinter(rng),
		NewOppositeBranchChanger(rng),
		NewPoolIndexChanger(rng),
		NewRandomBranchChanger(rng),
		NewRandomInstructionGenerator(rng),
		NewRegisterClobber(rng),
		NewSwitchBranchShifter(rng),
		NewTryBlockShifter(rng),
		NewValuePrinter(rng),
		NewVRegChanger(rng),
	}
}

// Names returns the names of every mutator in All.
func Names() []string {
	var names []string
	for _, m := range All(program.NewRand(0)) {
		names = append(names, m.Name())
	}
	return names
}

// base carries what every mutator has in common.
type base struct {
	name       string
	likelihood int
	rng        *rand.Rand
}

func (b *base) Name() string        { return b.name }
func (b *base) Likelihood() int     { return b.likelihood }
func (b *base) SetLikelihood(l int) { b.likelihood = l }

// indicesWhere returns the indices of the instructions of c matching keep.
func indicesWhere(c *program.MutatableCode, keep func(m *program.MInsn) bool) []int {
	var idx []int
	for i, m := range c.Instructions() {
		if keep(m) {
			idx = append(idx, i)
		}
	}
	return idx
}

func notRaw(m *program.MInsn) bool { return !m.IsRaw() }

// opIs matches instructions that are not payloads and whose opcode
// satisfies pred.
func opIs(pred func(op rawdex.Opcode) bool) func(*program.MInsn) bool {
	return func(m *program.MInsn) bool { return !m.IsRaw() && pred(m.Insn.Opcode()) }
}

func pick[T any](rng *rand.Rand, s []T) T { return s[rng.IntN(len(s))] }

// pickOther returns a random element of s other than not. s must hold
// at least one such element.
func pickOther(rng *rand.Rand, s []int, not int) int {
	for {
		if v := pick(rng, s); v != not {
			return v
		}
	}
}

// randomConst returns a random value that fits a signed literal of bits.
func randomConst(rng *rand.Rand, bits int) int64 {
	if bits >= 64 {
		return rng.Int64()
	}
	return rng.Int64N(1<<bits) - 1<<(bits-1)
}

// maxVReg returns the number of registers of c that an operand of bits
// can address.
func maxVReg(c *program.MutatableCode, bits int) int {
	if bits >= 16 {
		return int(c.RegistersSize)
	}
	return min(int(c.RegistersSize), 1<<bits)
}

// fitsInvoke reports whether temps new registers on top of the frame of c
// can still be passed to a non-range invoke.
func fitsInvoke(c *program.MutatableCode, temps int) bool {
	return int(c.RegistersSize)+temps <= 16
}

// raiseOuts grows the outgoing argument area of c to hold n registers.
func raiseOuts(c *program.MutatableCode, n int) {
	if int(c.OutsSize) < n {
		c.OutsSize = uint16(n)
	}
}

// setVReg writes register operand n of insn.
func setVReg(insn *rawdex.Instruction, n int, v int64) {
	switch n {
	case 0:
		insn.VRegA = v
	case 1:
		insn.VRegB = v
	default:
		insn.VRegC = v
	}
}

func vreg(insn *rawdex.Instruction, n int) int64 {
	switch n {
	case 0:
		return insn.VRegA
	case 1:
		return insn.VRegB
	}
	return insn.VRegC
}

func itoa(v int) string { return strconv.Itoa(v) }

func i64toa(v int64) string { return strconv.FormatInt(v, 10) }

func btoa(v bool) string { return strconv.FormatBool(v) }

// fieldReader parses the fields of a mutation log line in order. The
// first failure sticks and is reported by done.
type fieldReader struct {
	fields []string
	pos    int
	err    error
}

func newFieldReader(fields []string, want int) *fieldReader {
	r := &fieldReader{fields: fields}
	if len(fields) != want {
		r.err = errors.Errorf("want %d fields, got %d", want, len(fields))
	}
	return r
}

func (r *fieldReader) next() string {
	if r.err != nil || r.pos >= len(r.fields) {
		return ""
	}
	s := r.fields[r.pos]
	r.pos++
	return s
}

func (r *fieldReader) int() int {
	s := r.next()
	if r.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.err = errors.Wrapf(err, "field %d", r.pos)
	}
	return v
}

func (r *fieldReader) int64() int64 {
	s := r.next()
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.err = errors.Wrapf(err, "field %d", r.pos)
	}
	return v
}

func (r *fieldReader) bool() bool {
	s := r.next()
	if r.err != nil {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.err = errors.Wrapf(err, "field %d", r.pos)
	}
	return v
}

func (r *fieldReader) opcode() rawdex.Opcode {
	v := r.int()
	if r.err == nil && (v < 0 || v > 0xff) {
		r.err = errors.Errorf("field %d: opcode %d out of range", r.pos, v)
	}
	return rawdex.Opcode(v)
}

func (r *fieldReader) str() string { return r.next() }

func (r *fieldReader) done() error { return r.err }
