package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
)

// VRegChanger renames one register operand of an instruction.
type VRegChanger struct{ base }

type VRegChangerMutation struct {
	program.MutationBase
	VRegInsnIdx     int
	MutatingVReg    int
	ReplacementVReg int
}

func (m *VRegChangerMutation) Fields() []string {
	return []string{itoa(m.VRegInsnIdx), itoa(m.MutatingVReg), itoa(m.ReplacementVReg)}
}

func (m *VRegChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 3)
	m.VRegInsnIdx = r.int()
	m.MutatingVReg = r.int()
	m.ReplacementVReg = r.int()
	return r.done()
}

func NewVRegChanger(rng *rand.Rand) *VRegChanger {
	return &VRegChanger{base{name: "VRegChanger", likelihood: 60, rng: rng}}
}

func (vc *VRegChanger) candidates(c *program.MutatableCode) []int {
	if c.RegistersSize < 2 {
		return nil
	}
	return indicesWhere(c, func(m *program.MInsn) bool {
		return !m.IsRaw() && m.Insn.Info.Format.VRegCount() > 0
	})
}

func (vc *VRegChanger) CanMutate(c *program.MutatableCode) bool {
	return len(vc.candidates(c)) > 0
}

func (vc *VRegChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(vc.rng, vc.candidates(c))
	insn := c.InstructionAt(idx).Insn
	operand := vc.rng.IntN(insn.Info.Format.VRegCount())
	limit := maxVReg(c, insn.Info.Format.RegBits(operand))

	old := int(vreg(insn, operand))
	v := old
	for v == old {
		v = vc.rng.IntN(limit)
	}
	return &VRegChangerMutation{
		MutationBase:    program.MutationBase{Code: c},
		VRegInsnIdx:     idx,
		MutatingVReg:    operand,
		ReplacementVReg: v,
	}
}

func (vc *VRegChanger) Apply(mut program.Mutation) {
	m := mut.(*VRegChangerMutation)
	insn := m.Code.InstructionAt(m.VRegInsnIdx)
	old := vreg(insn.Insn, m.MutatingVReg)
	setVReg(insn.Insn, m.MutatingVReg, int64(m.ReplacementVReg))
	log.Infof("changed v%d to v%d in %s", old, m.ReplacementVReg, insn)
}

func (vc *VRegChanger) NewMutation() program.Mutation { return &VRegChangerMutation{} }
