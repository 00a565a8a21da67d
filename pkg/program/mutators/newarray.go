package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// maxArrayLength bounds the lengths NewArrayLengthChanger loads.
const maxArrayLength = 1 << 15

// NewArrayLengthChanger makes a new-array take its length from a fresh
// register loaded with a random constant.
type NewArrayLengthChanger struct{ base }

type NewArrayLengthChangerMutation struct {
	program.MutationBase
	NewArrayInsnIdx int
	NewLength       int
}

func (m *NewArrayLengthChangerMutation) Fields() []string {
	return []string{itoa(m.NewArrayInsnIdx), itoa(m.NewLength)}
}

func (m *NewArrayLengthChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.NewArrayInsnIdx = r.int()
	m.NewLength = r.int()
	return r.done()
}

func NewNewArrayLengthChanger(rng *rand.Rand) *NewArrayLengthChanger {
	return &NewArrayLengthChanger{base{name: "NewArrayLengthChanger", likelihood: 50, rng: rng}}
}

func isNewArray(op rawdex.Opcode) bool { return op == rawdex.OpNewArray }

func (n *NewArrayLengthChanger) CanMutate(c *program.MutatableCode) bool {
	// the size operand of new-array is a 4 bit register
	return fitsInvoke(c, 1) && len(indicesWhere(c, opIs(isNewArray))) > 0
}

func (n *NewArrayLengthChanger) Generate(c *program.MutatableCode) program.Mutation {
	return &NewArrayLengthChangerMutation{
		MutationBase:    program.MutationBase{Code: c},
		NewArrayInsnIdx: pick(n.rng, indicesWhere(c, opIs(isNewArray))),
		NewLength:       n.rng.IntN(maxArrayLength),
	}
}

func (n *NewArrayLengthChanger) Apply(mut program.Mutation) {
	m := mut.(*NewArrayLengthChangerMutation)
	c := m.Code
	newArray := c.InstructionAt(m.NewArrayInsnIdx)

	c.AllocateTemporaryVRegs(1)
	tmp := c.TemporaryVReg(0)

	load := rawdex.NewInstruction(rawdex.OpConst16)
	load.VRegA = int64(tmp)
	load.VRegB = int64(m.NewLength)
	c.InsertInstructionAt(program.NewMInsn(load), c.InstructionIndex(newArray))
	newArray.Insn.VRegB = int64(tmp)
	log.Infof("%s now takes its length %d from v%d", newArray, m.NewLength, tmp)

	c.FinishedUsingTemporaryVRegs()
}

func (n *NewArrayLengthChanger) NewMutation() program.Mutation {
	return &NewArrayLengthChangerMutation{}
}
