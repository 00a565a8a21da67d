package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
)

// minInstructionsToDelete is the smallest method InstructionDeleter
// shrinks.
const minInstructionsToDelete = 4

// InstructionDeleter removes one instruction. An instruction with a
// payload and its payload go together.
type InstructionDeleter struct{ base }

type InstructionDeleterMutation struct {
	program.MutationBase
	InsnToDeleteIdx int
}

func (m *InstructionDeleterMutation) Fields() []string { return []string{itoa(m.InsnToDeleteIdx)} }

func (m *InstructionDeleterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.InsnToDeleteIdx = r.int()
	return r.done()
}

func NewInstructionDeleter(rng *rand.Rand) *InstructionDeleter {
	return &InstructionDeleter{base{name: "InstructionDeleter", likelihood: 40, rng: rng}}
}

func (d *InstructionDeleter) CanMutate(c *program.MutatableCode) bool {
	return c.InstructionCount() >= minInstructionsToDelete
}

func (d *InstructionDeleter) Generate(c *program.MutatableCode) program.Mutation {
	return &InstructionDeleterMutation{
		MutationBase:    program.MutationBase{Code: c},
		InsnToDeleteIdx: d.rng.IntN(c.InstructionCount()),
	}
}

func (d *InstructionDeleter) Apply(mut program.Mutation) {
	m := mut.(*InstructionDeleterMutation)
	insn := m.Code.InstructionAt(m.InsnToDeleteIdx)
	log.Infof("deleting %s", insn)
	m.Code.DeleteInstruction(insn)
}

func (d *InstructionDeleter) NewMutation() program.Mutation { return &InstructionDeleterMutation{} }

// duplicable instructions are neither payloads nor owners of one.
func duplicable(m *program.MInsn) bool { return !m.IsRaw() && !m.HasData() }

// InstructionDuplicator inserts a copy of an instruction in front of it.
type InstructionDuplicator struct{ base }

type InstructionDuplicatorMutation struct {
	program.MutationBase
	InsnToDuplicateIdx int
}

func (m *InstructionDuplicatorMutation) Fields() []string {
	return []string{itoa(m.InsnToDuplicateIdx)}
}

func (m *InstructionDuplicatorMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.InsnToDuplicateIdx = r.int()
	return r.done()
}

func NewInstructionDuplicator(rng *rand.Rand) *InstructionDuplicator {
	return &InstructionDuplicator{base{name: "InstructionDuplicator", likelihood: 80, rng: rng}}
}

func (d *InstructionDuplicator) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, duplicable)) > 0
}

func (d *InstructionDuplicator) Generate(c *program.MutatableCode) program.Mutation {
	return &InstructionDuplicatorMutation{
		MutationBase:       program.MutationBase{Code: c},
		InsnToDuplicateIdx: pick(d.rng, indicesWhere(c, duplicable)),
	}
}

func (d *InstructionDuplicator) Apply(mut program.Mutation) {
	m := mut.(*InstructionDuplicatorMutation)
	dup := m.Code.InstructionAt(m.InsnToDuplicateIdx).Clone()
	m.Code.InsertInstructionAt(dup, m.InsnToDuplicateIdx)
	log.Infof("duplicated %s", dup)
}

func (d *InstructionDuplicator) NewMutation() program.Mutation {
	return &InstructionDuplicatorMutation{}
}

// InstructionSwapper exchanges two instructions.
type InstructionSwapper struct{ base }

type InstructionSwapperMutation struct {
	program.MutationBase
	SwapInsnIdx     int
	SwapWithInsnIdx int
}

func (m *InstructionSwapperMutation) Fields() []string {
	return []string{itoa(m.SwapInsnIdx), itoa(m.SwapWithInsnIdx)}
}

func (m *InstructionSwapperMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.SwapInsnIdx = r.int()
	m.SwapWithInsnIdx = r.int()
	return r.done()
}

func NewInstructionSwapper(rng *rand.Rand) *InstructionSwapper {
	return &InstructionSwapper{base{name: "InstructionSwapper", likelihood: 80, rng: rng}}
}

func (s *InstructionSwapper) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, notRaw)) > 1
}

func (s *InstructionSwapper) Generate(c *program.MutatableCode) program.Mutation {
	candidates := indicesWhere(c, notRaw)
	a := pick(s.rng, candidates)
	return &InstructionSwapperMutation{
		MutationBase:    program.MutationBase{Code: c},
		SwapInsnIdx:     a,
		SwapWithInsnIdx: pickOther(s.rng, candidates, a),
	}
}

func (s *InstructionSwapper) Apply(mut program.Mutation) {
	m := mut.(*InstructionSwapperMutation)
	log.Infof("swapping %s and %s", m.Code.InstructionAt(m.SwapInsnIdx), m.Code.InstructionAt(m.SwapWithInsnIdx))
	m.Code.SwapInstructionsByIndex(m.SwapInsnIdx, m.SwapWithInsnIdx)
}

func (s *InstructionSwapper) NewMutation() program.Mutation { return &InstructionSwapperMutation{} }
