package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// ConstantValueChanger replaces the literal of an instruction with a
// random value that fits its format.
type ConstantValueChanger struct{ base }

type ConstantValueChangerMutation struct {
	program.MutationBase
	ConstInsnIdx int
	NewConstant  int64
}

func (m *ConstantValueChangerMutation) Fields() []string {
	return []string{itoa(m.ConstInsnIdx), i64toa(m.NewConstant)}
}

func (m *ConstantValueChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.ConstInsnIdx = r.int()
	m.NewConstant = r.int64()
	return r.done()
}

func NewConstantValueChanger(rng *rand.Rand) *ConstantValueChanger {
	return &ConstantValueChanger{base{name: "ConstantValueChanger", likelihood: 70, rng: rng}}
}

func hasConst(m *program.MInsn) bool {
	if m.IsRaw() {
		return false
	}
	_, ok := m.Insn.Info.Format.(rawdex.ContainsConst)
	return ok
}

func (cv *ConstantValueChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, hasConst)) > 0
}

func (cv *ConstantValueChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(cv.rng, indicesWhere(c, hasConst))
	insn := c.InstructionAt(idx).Insn
	f := insn.Info.Format.(rawdex.ContainsConst)
	old := f.Const(insn)
	v := old
	for v == old {
		v = randomConst(cv.rng, f.ConstBits())
	}
	return &ConstantValueChangerMutation{
		MutationBase: program.MutationBase{Code: c},
		ConstInsnIdx: idx,
		NewConstant:  v,
	}
}

func (cv *ConstantValueChanger) Apply(mut program.Mutation) {
	m := mut.(*ConstantValueChangerMutation)
	insn := m.Code.InstructionAt(m.ConstInsnIdx)
	insn.Insn.Info.Format.(rawdex.ContainsConst).SetConst(insn.Insn, m.NewConstant)
	log.Infof("changed constant of %s", insn)
}

func (cv *ConstantValueChanger) NewMutation() program.Mutation {
	return &ConstantValueChangerMutation{}
}
