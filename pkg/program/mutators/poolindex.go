package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// PoolIndexChanger points an instruction at another entry of the table its
// pool index refers to.
type PoolIndexChanger struct{ base }

type PoolIndexChangerMutation struct {
	program.MutationBase
	PoolIndexInsnIdx int
	NewPoolIndex     int
}

func (m *PoolIndexChangerMutation) Fields() []string {
	return []string{itoa(m.PoolIndexInsnIdx), itoa(m.NewPoolIndex)}
}

func (m *PoolIndexChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.PoolIndexInsnIdx = r.int()
	m.NewPoolIndex = r.int()
	return r.done()
}

func NewPoolIndexChanger(rng *rand.Rand) *PoolIndexChanger {
	return &PoolIndexChanger{base{name: "PoolIndexChanger", likelihood: 30, rng: rng}}
}

// poolSize returns the number of entries an index operand of m may
// address, or 0 when m has no such operand.
func poolSize(c *program.MutatableCode, m *program.MInsn) int {
	if m.IsRaw() {
		return 0
	}
	if _, ok := m.Insn.Info.Format.(rawdex.ContainsPoolIndex); !ok {
		return 0
	}
	n := c.Program.TotalPoolIndicesByKind(m.Insn.Opcode().PoolIndexKind())
	if m.Insn.Opcode() == rawdex.OpConstString {
		n = min(n, 1<<16)
	}
	return n
}

func (pc *PoolIndexChanger) candidates(c *program.MutatableCode) []int {
	return indicesWhere(c, func(m *program.MInsn) bool { return poolSize(c, m) > 1 })
}

func (pc *PoolIndexChanger) CanMutate(c *program.MutatableCode) bool {
	return len(pc.candidates(c)) > 0
}

func (pc *PoolIndexChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(pc.rng, pc.candidates(c))
	m := c.InstructionAt(idx)
	old := m.Insn.Info.Format.(rawdex.ContainsPoolIndex).PoolIndex(m.Insn)
	n := poolSize(c, m)
	v := old
	for v == old {
		v = pc.rng.IntN(n)
	}
	return &PoolIndexChangerMutation{
		MutationBase:     program.MutationBase{Code: c},
		PoolIndexInsnIdx: idx,
		NewPoolIndex:     v,
	}
}

func (pc *PoolIndexChanger) Apply(mut program.Mutation) {
	m := mut.(*PoolIndexChangerMutation)
	insn := m.Code.InstructionAt(m.PoolIndexInsnIdx)
	kind := insn.Insn.Opcode().PoolIndexKind()
	insn.Insn.Info.Format.(rawdex.ContainsPoolIndex).SetPoolIndex(insn.Insn, m.NewPoolIndex)
	log.Infof("changed %s index of %s", kind, insn)
}

func (pc *PoolIndexChanger) NewMutation() program.Mutation { return &PoolIndexChangerMutation{} }
