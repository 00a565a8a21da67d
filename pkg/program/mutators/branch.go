package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// maxBranchShift is the largest distance, in instructions, a branch
// target is moved by.
const maxBranchShift = 5

// shiftedTarget picks a new target near cur among the non-payload
// instructions of c. When none lies within maxBranchShift the shift is
// clamped to the closest one.
func shiftedTarget(rng *rand.Rand, c *program.MutatableCode, cur int) int {
	all := indicesWhere(c, notRaw)
	var near []int
	for _, i := range all {
		if i != cur && i >= cur-maxBranchShift && i <= cur+maxBranchShift {
			near = append(near, i)
		}
	}
	if len(near) > 0 {
		return pick(rng, near)
	}
	return nearestOther(all, cur)
}

// nearestOther returns the element of candidates closest to cur other than
// cur itself, preferring the earlier one on a tie. candidates is sorted.
func nearestOther(candidates []int, cur int) int {
	best := -1
	for _, i := range candidates {
		if i == cur {
			continue
		}
		if best == -1 || abs(i-cur) < abs(best-cur) {
			best = i
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func isIfTest(op rawdex.Opcode) bool    { return op.Between(rawdex.OpIfEq, rawdex.OpIfLe) }
func isIfTestZ(op rawdex.Opcode) bool   { return op.Between(rawdex.OpIfEqz, rawdex.OpIfLez) }
func isAnyIfTest(op rawdex.Opcode) bool { return isIfTest(op) || isIfTestZ(op) }

// BranchShifter moves the target of a branch by a few instructions.
type BranchShifter struct{ base }

type BranchShifterMutation struct {
	program.MutationBase
	BranchInsnIdx int
	NewTargetIdx  int
}

func (m *BranchShifterMutation) Fields() []string {
	return []string{itoa(m.BranchInsnIdx), itoa(m.NewTargetIdx)}
}

func (m *BranchShifterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.BranchInsnIdx = r.int()
	m.NewTargetIdx = r.int()
	return r.done()
}

func NewBranchShifter(rng *rand.Rand) *BranchShifter {
	return &BranchShifter{base{name: "BranchShifter", likelihood: 30, rng: rng}}
}

func (b *BranchShifter) CanMutate(c *program.MutatableCode) bool {
	branches := indicesWhere(c, func(m *program.MInsn) bool { return m.IsBranch() })
	return len(branches) > 0 && len(indicesWhere(c, notRaw)) > 1
}

func (b *BranchShifter) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(b.rng, indicesWhere(c, func(m *program.MInsn) bool { return m.IsBranch() }))
	cur := c.InstructionIndex(c.InstructionAt(idx).Target)
	return &BranchShifterMutation{
		MutationBase:  program.MutationBase{Code: c},
		BranchInsnIdx: idx,
		NewTargetIdx:  shiftedTarget(b.rng, c, cur),
	}
}

func (b *BranchShifter) Apply(mut program.Mutation) {
	m := mut.(*BranchShifterMutation)
	branch := m.Code.InstructionAt(m.BranchInsnIdx)
	branch.Target = m.Code.InstructionAt(m.NewTargetIdx)
	log.Infof("shifted target of %s to %s", branch, branch.Target)
}

func (b *BranchShifter) NewMutation() program.Mutation { return &BranchShifterMutation{} }

// OppositeBranchChanger replaces an if-test with its negation.
type OppositeBranchChanger struct{ base }

type OppositeBranchChangerMutation struct {
	program.MutationBase
	IfBranchInsnIdx int
}

func (m *OppositeBranchChangerMutation) Fields() []string { return []string{itoa(m.IfBranchInsnIdx)} }

func (m *OppositeBranchChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.IfBranchInsnIdx = r.int()
	return r.done()
}

func NewOppositeBranchChanger(rng *rand.Rand) *OppositeBranchChanger {
	return &OppositeBranchChanger{base{name: "OppositeBranchChanger", likelihood: 40, rng: rng}}
}

var opposites = map[rawdex.Opcode]rawdex.Opcode{
	rawdex.OpIfEq:  rawdex.OpIfNe,
	rawdex.OpIfNe:  rawdex.OpIfEq,
	rawdex.OpIfLt:  rawdex.OpIfGe,
	rawdex.OpIfGe:  rawdex.OpIfLt,
	rawdex.OpIfGt:  rawdex.OpIfLe,
	rawdex.OpIfLe:  rawdex.OpIfGt,
	rawdex.OpIfEqz: rawdex.OpIfNez,
	rawdex.OpIfNez: rawdex.OpIfEqz,
	rawdex.OpIfLtz: rawdex.OpIfGez,
	rawdex.OpIfGez: rawdex.OpIfLtz,
	rawdex.OpIfGtz: rawdex.OpIfLez,
	rawdex.OpIfLez: rawdex.OpIfGtz,
}

func (o *OppositeBranchChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isAnyIfTest))) > 0
}

func (o *OppositeBranchChanger) Generate(c *program.MutatableCode) program.Mutation {
	return &OppositeBranchChangerMutation{
		MutationBase:    program.MutationBase{Code: c},
		IfBranchInsnIdx: pick(o.rng, indicesWhere(c, opIs(isAnyIfTest))),
	}
}

func (o *OppositeBranchChanger) Apply(mut program.Mutation) {
	m := mut.(*OppositeBranchChangerMutation)
	insn := m.Code.InstructionAt(m.IfBranchInsnIdx)
	newOp, ok := opposites[insn.Insn.Opcode()]
	if !ok {
		rawdex.Fatalf("%s is not an if-test", insn)
	}
	log.Infof("changing %s to %s", insn, newOp)
	insn.Insn.Info = newOp.Info()
}

func (o *OppositeBranchChanger) NewMutation() program.Mutation {
	return &OppositeBranchChangerMutation{}
}

// RandomBranchChanger replaces an if-test with any other one that takes
// the same number of registers.
type RandomBranchChanger struct{ base }

type RandomBranchChangerMutation struct {
	program.MutationBase
	IfBranchInsnIdx int
	NewOpcode       rawdex.Opcode
}

func (m *RandomBranchChangerMutation) Fields() []string {
	return []string{itoa(m.IfBranchInsnIdx), itoa(int(m.NewOpcode))}
}

func (m *RandomBranchChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.IfBranchInsnIdx = r.int()
	m.NewOpcode = r.opcode()
	return r.done()
}

func NewRandomBranchChanger(rng *rand.Rand) *RandomBranchChanger {
	return &RandomBranchChanger{base{name: "RandomBranchChanger", likelihood: 30, rng: rng}}
}

func (rb *RandomBranchChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isAnyIfTest))) > 0
}

func (rb *RandomBranchChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(rb.rng, indicesWhere(c, opIs(isAnyIfTest)))
	op := c.InstructionAt(idx).Insn.Opcode()
	lo := rawdex.OpIfEq
	if isIfTestZ(op) {
		lo = rawdex.OpIfEqz
	}
	newOp := op
	for newOp == op {
		newOp = lo + rawdex.Opcode(rb.rng.IntN(6))
	}
	return &RandomBranchChangerMutation{
		MutationBase:    program.MutationBase{Code: c},
		IfBranchInsnIdx: idx,
		NewOpcode:       newOp,
	}
}

func (rb *RandomBranchChanger) Apply(mut program.Mutation) {
	m := mut.(*RandomBranchChangerMutation)
	insn := m.Code.InstructionAt(m.IfBranchInsnIdx)
	log.Infof("changing %s to %s", insn, m.NewOpcode)
	insn.Insn.Info = m.NewOpcode.Info()
}

func (rb *RandomBranchChanger) NewMutation() program.Mutation {
	return &RandomBranchChangerMutation{}
}

// SwitchBranchShifter points one case of a switch somewhere else.
type SwitchBranchShifter struct{ base }

type SwitchBranchShifterMutation struct {
	program.MutationBase
	SwitchInsnIdx   int
	SwitchTargetIdx int
	NewTargetIdx    int
}

func (m *SwitchBranchShifterMutation) Fields() []string {
	return []string{itoa(m.SwitchInsnIdx), itoa(m.SwitchTargetIdx), itoa(m.NewTargetIdx)}
}

func (m *SwitchBranchShifterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 3)
	m.SwitchInsnIdx = r.int()
	m.SwitchTargetIdx = r.int()
	m.NewTargetIdx = r.int()
	return r.done()
}

func NewSwitchBranchShifter(rng *rand.Rand) *SwitchBranchShifter {
	return &SwitchBranchShifter{base{name: "SwitchBranchShifter", likelihood: 30, rng: rng}}
}

func switchesWithCases(c *program.MutatableCode) []int {
	return indicesWhere(c, func(m *program.MInsn) bool { return m.IsSwitch() && len(m.SwitchTargets) > 0 })
}

func (s *SwitchBranchShifter) CanMutate(c *program.MutatableCode) bool {
	return len(switchesWithCases(c)) > 0 && len(indicesWhere(c, notRaw)) > 1
}

func (s *SwitchBranchShifter) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(s.rng, switchesWithCases(c))
	sw := c.InstructionAt(idx)
	k := s.rng.IntN(len(sw.SwitchTargets))
	cur := c.InstructionIndex(sw.SwitchTargets[k])
	return &SwitchBranchShifterMutation{
		MutationBase:    program.MutationBase{Code: c},
		SwitchInsnIdx:   idx,
		SwitchTargetIdx: k,
		NewTargetIdx:    pickOther(s.rng, indicesWhere(c, notRaw), cur),
	}
}

func (s *SwitchBranchShifter) Apply(mut program.Mutation) {
	m := mut.(*SwitchBranchShifterMutation)
	sw := m.Code.InstructionAt(m.SwitchInsnIdx)
	sw.SwitchTargets[m.SwitchTargetIdx] = m.Code.InstructionAt(m.NewTargetIdx)
	log.Infof("shifted case %d of %s to %s", m.SwitchTargetIdx, sw, sw.SwitchTargets[m.SwitchTargetIdx])
}

func (s *SwitchBranchShifter) NewMutation() program.Mutation {
	return &SwitchBranchShifterMutation{}
}
