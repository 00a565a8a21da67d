package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// RegisterClobber zeroes a register somewhere in the method.
type RegisterClobber struct{ base }

type RegisterClobberMutation struct {
	program.MutationBase
	InsertionIdx int
	VReg         int
}

func (m *RegisterClobberMutation) Fields() []string {
	return []string{itoa(m.InsertionIdx), itoa(m.VReg)}
}

func (m *RegisterClobberMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.InsertionIdx = r.int()
	m.VReg = r.int()
	return r.done()
}

func NewRegisterClobber(rng *rand.Rand) *RegisterClobber {
	return &RegisterClobber{base{name: "RegisterClobber", likelihood: 40, rng: rng}}
}

func (rc *RegisterClobber) CanMutate(c *program.MutatableCode) bool {
	return c.RegistersSize > 0 && len(indicesWhere(c, notRaw)) > 0
}

func (rc *RegisterClobber) Generate(c *program.MutatableCode) program.Mutation {
	return &RegisterClobberMutation{
		MutationBase: program.MutationBase{Code: c},
		InsertionIdx: pick(rc.rng, indicesWhere(c, notRaw)),
		VReg:         rc.rng.IntN(maxVReg(c, 8)),
	}
}

func (rc *RegisterClobber) Apply(mut program.Mutation) {
	m := mut.(*RegisterClobberMutation)
	insn := rawdex.NewInstruction(rawdex.OpConst16)
	insn.VRegA = int64(m.VReg)
	clobber := program.NewMInsn(insn)
	m.Code.InsertInstructionAt(clobber, m.InsertionIdx)
	log.Infof("clobbering v%d", m.VReg)
}

func (rc *RegisterClobber) NewMutation() program.Mutation { return &RegisterClobberMutation{} }
