package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// CmpBiasChanger flips the NaN bias of a float or double comparison.
type CmpBiasChanger struct{ base }

type CmpBiasChangerMutation struct {
	program.MutationBase
	CmpBiasInsnIdx int
}

func (m *CmpBiasChangerMutation) Fields() []string { return []string{itoa(m.CmpBiasInsnIdx)} }

func (m *CmpBiasChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.CmpBiasInsnIdx = r.int()
	return r.done()
}

func NewCmpBiasChanger(rng *rand.Rand) *CmpBiasChanger {
	return &CmpBiasChanger{base{name: "CmpBiasChanger", likelihood: 30, rng: rng}}
}

func isCmpBias(op rawdex.Opcode) bool { return op.Between(rawdex.OpCmplFloat, rawdex.OpCmpgDouble) }

// oppositeBias returns the comparison with the other bias. Anything not
// matched explicitly becomes cmpl-float.
func oppositeBias(op rawdex.Opcode) rawdex.Opcode {
	switch op {
	case rawdex.OpCmpgDouble:
		return rawdex.OpCmplDouble
	case rawdex.OpCmplDouble:
		return rawdex.OpCmpgDouble
	case rawdex.OpCmplFloat:
		return rawdex.OpCmpgFloat
	}
	return rawdex.OpCmplFloat
}

func (cb *CmpBiasChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isCmpBias))) > 0
}

func (cb *CmpBiasChanger) Generate(c *program.MutatableCode) program.Mutation {
	return &CmpBiasChangerMutation{
		MutationBase:   program.MutationBase{Code: c},
		CmpBiasInsnIdx: pick(cb.rng, indicesWhere(c, opIs(isCmpBias))),
	}
}

func (cb *CmpBiasChanger) Apply(mut program.Mutation) {
	m := mut.(*CmpBiasChangerMutation)
	insn := m.Code.InstructionAt(m.CmpBiasInsnIdx)
	newOp := oppositeBias(insn.Insn.Opcode())
	log.Infof("changing %s to %s", insn, newOp)
	insn.Insn.Info = newOp.Info()
}

func (cb *CmpBiasChanger) NewMutation() program.Mutation { return &CmpBiasChangerMutation{} }
