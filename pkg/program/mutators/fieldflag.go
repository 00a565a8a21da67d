package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// FieldFlagChanger toggles the volatile flag of a field that is accessed
// by the method and defined in the same file.
type FieldFlagChanger struct{ base }

type FieldFlagChangerMutation struct {
	program.MutationBase
	FieldInsnIdx int
	SetVolatile  bool
}

func (m *FieldFlagChangerMutation) Fields() []string {
	return []string{itoa(m.FieldInsnIdx), btoa(m.SetVolatile)}
}

func (m *FieldFlagChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.FieldInsnIdx = r.int()
	m.SetVolatile = r.bool()
	return r.done()
}

func NewFieldFlagChanger(rng *rand.Rand) *FieldFlagChanger {
	return &FieldFlagChanger{base{name: "FieldFlagChanger", likelihood: 40, rng: rng}}
}

func isFieldAccess(op rawdex.Opcode) bool { return op.Between(rawdex.OpIget, rawdex.OpSputShort) }

func encodedField(c *program.MutatableCode, m *program.MInsn) *rawdex.EncodedField {
	idx := m.Insn.Info.Format.(rawdex.ContainsPoolIndex).PoolIndex(m.Insn)
	return c.Program.EncodedField(idx)
}

func (ff *FieldFlagChanger) candidates(c *program.MutatableCode) []int {
	return indicesWhere(c, func(m *program.MInsn) bool {
		return !m.IsRaw() && isFieldAccess(m.Insn.Opcode()) && encodedField(c, m) != nil
	})
}

func (ff *FieldFlagChanger) CanMutate(c *program.MutatableCode) bool {
	return len(ff.candidates(c)) > 0
}

func (ff *FieldFlagChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(ff.rng, ff.candidates(c))
	return &FieldFlagChangerMutation{
		MutationBase: program.MutationBase{Code: c},
		FieldInsnIdx: idx,
		SetVolatile:  !encodedField(c, c.InstructionAt(idx)).IsVolatile(),
	}
}

func (ff *FieldFlagChanger) Apply(mut program.Mutation) {
	m := mut.(*FieldFlagChangerMutation)
	insn := m.Code.InstructionAt(m.FieldInsnIdx)
	ef := encodedField(m.Code, insn)
	if ef == nil {
		rawdex.Fatalf("field of %s is not defined in this file", insn)
	}
	ef.SetVolatile(m.SetVolatile)
	log.WithField("volatile", m.SetVolatile).Infof("changed flags of the field accessed by %s", insn)
}

func (ff *FieldFlagChanger) NewMutation() program.Mutation { return &FieldFlagChangerMutation{} }
