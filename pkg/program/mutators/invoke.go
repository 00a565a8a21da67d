package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// InvokeChanger changes the kind of an invoke, keeping it range or
// non-range.
type InvokeChanger struct{ base }

type InvokeChangerMutation struct {
	program.MutationBase
	InvokeInsnIdx int
	NewOpcode     rawdex.Opcode
}

func (m *InvokeChangerMutation) Fields() []string {
	return []string{itoa(m.InvokeInsnIdx), itoa(int(m.NewOpcode))}
}

func (m *InvokeChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.InvokeInsnIdx = r.int()
	m.NewOpcode = r.opcode()
	return r.done()
}

func NewInvokeChanger(rng *rand.Rand) *InvokeChanger {
	return &InvokeChanger{base{name: "InvokeChanger", likelihood: 30, rng: rng}}
}

func isInvoke(op rawdex.Opcode) bool { return op.IsInvoke() }

func (ic *InvokeChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isInvoke))) > 0
}

func (ic *InvokeChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(ic.rng, indicesWhere(c, opIs(isInvoke)))
	op := c.InstructionAt(idx).Insn.Opcode()
	lo := rawdex.OpInvokeVirtual
	if op.Between(rawdex.OpInvokeVirtualRange, rawdex.OpInvokeInterfaceRange) {
		lo = rawdex.OpInvokeVirtualRange
	}
	newOp := op
	for newOp == op {
		newOp = lo + rawdex.Opcode(ic.rng.IntN(5))
	}
	return &InvokeChangerMutation{
		MutationBase:  program.MutationBase{Code: c},
		InvokeInsnIdx: idx,
		NewOpcode:     newOp,
	}
}

func (ic *InvokeChanger) Apply(mut program.Mutation) {
	m := mut.(*InvokeChangerMutation)
	insn := m.Code.InstructionAt(m.InvokeInsnIdx)
	log.Infof("changing %s to %s", insn, m.NewOpcode)
	insn.Insn.Info = m.NewOpcode.Info()
}

func (ic *InvokeChanger) NewMutation() program.Mutation { return &InvokeChangerMutation{} }
