package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// RandomInstructionGenerator inserts an instruction with a random opcode
// and operands that fit its format.
type RandomInstructionGenerator struct{ base }

type RandomInstructionGeneratorMutation struct {
	program.MutationBase
	InsertionIdx int
	NewOpcode    rawdex.Opcode
	VRegA        int64
	VRegB        int64
	VRegC        int64
	// BranchTargetIdx is -1 unless the new instruction branches.
	BranchTargetIdx int
}

func (m *RandomInstructionGeneratorMutation) Fields() []string {
	return []string{
		itoa(m.InsertionIdx),
		itoa(int(m.NewOpcode)),
		i64toa(m.VRegA),
		i64toa(m.VRegB),
		i64toa(m.VRegC),
		itoa(m.BranchTargetIdx),
	}
}

func (m *RandomInstructionGeneratorMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 6)
	m.InsertionIdx = r.int()
	m.NewOpcode = r.opcode()
	m.VRegA = r.int64()
	m.VRegB = r.int64()
	m.VRegC = r.int64()
	m.BranchTargetIdx = r.int()
	return r.done()
}

func NewRandomInstructionGenerator(rng *rand.Rand) *RandomInstructionGenerator {
	return &RandomInstructionGenerator{base{name: "RandomInstructionGenerator", likelihood: 30, rng: rng}}
}

// generatable reports whether op can be built from nothing but random
// operands. Payload users, invokes and opcodes that only optimized files
// carry are left out, and so is goto, whose 8-bit offset rarely survives
// later insertions.
func generatable(op rawdex.Opcode) bool {
	switch {
	case op.IsUnused(), op.IsQuick(), op.IsWithData(), op.IsInvoke():
		return false
	case op == rawdex.OpFilledNewArray, op == rawdex.OpFilledNewArrayRange:
		return false
	case op == rawdex.OpGoto, op == rawdex.OpReturnVoidNoBarrier:
		return false
	}
	return true
}

func (rg *RandomInstructionGenerator) CanMutate(c *program.MutatableCode) bool {
	return c.RegistersSize > 0 && len(indicesWhere(c, notRaw)) > 0
}

func (rg *RandomInstructionGenerator) randomOpcode(c *program.MutatableCode) rawdex.Opcode {
	for {
		op := rawdex.Opcode(rg.rng.IntN(256))
		if !generatable(op) {
			continue
		}
		if kind := op.PoolIndexKind(); kind != rawdex.PoolNone && c.Program.TotalPoolIndicesByKind(kind) == 0 {
			continue
		}
		return op
	}
}

func (rg *RandomInstructionGenerator) Generate(c *program.MutatableCode) program.Mutation {
	op := rg.randomOpcode(c)
	insn := rawdex.NewInstruction(op)
	f := insn.Info.Format

	for n := range f.VRegCount() {
		setVReg(insn, n, int64(rg.rng.IntN(maxVReg(c, f.RegBits(n)))))
	}
	if cf, ok := f.(rawdex.ContainsConst); ok {
		cf.SetConst(insn, randomConst(rg.rng, cf.ConstBits()))
	}
	if pf, ok := f.(rawdex.ContainsPoolIndex); ok {
		n := c.Program.TotalPoolIndicesByKind(op.PoolIndexKind())
		if op != rawdex.OpConstStringJumbo {
			n = min(n, 1<<16)
		}
		pf.SetPoolIndex(insn, rg.rng.IntN(n))
	}

	targets := indicesWhere(c, notRaw)
	branchTarget := -1
	if _, ok := f.(rawdex.ContainsTarget); ok {
		branchTarget = pick(rg.rng, targets)
	}
	return &RandomInstructionGeneratorMutation{
		MutationBase:    program.MutationBase{Code: c},
		InsertionIdx:    pick(rg.rng, targets),
		NewOpcode:       op,
		VRegA:           insn.VRegA,
		VRegB:           insn.VRegB,
		VRegC:           insn.VRegC,
		BranchTargetIdx: branchTarget,
	}
}

func (rg *RandomInstructionGenerator) Apply(mut program.Mutation) {
	m := mut.(*RandomInstructionGeneratorMutation)
	c := m.Code

	build := func(op rawdex.Opcode) *program.MInsn {
		insn := rawdex.NewInstruction(op)
		insn.VRegA, insn.VRegB, insn.VRegC = m.VRegA, m.VRegB, m.VRegC
		return program.NewMInsn(insn)
	}

	var insns []*program.MInsn
	switch m.NewOpcode {
	case rawdex.OpMonitorEnter, rawdex.OpMonitorExit:
		// monitors are entered and exited in pairs
		insns = append(insns, build(rawdex.OpMonitorEnter), build(rawdex.OpMonitorExit))
	default:
		insns = append(insns, build(m.NewOpcode))
	}
	if m.BranchTargetIdx >= 0 {
		insns[0].Target = c.InstructionAt(m.BranchTargetIdx)
	}
	insertBefore(c, c.InstructionAt(m.InsertionIdx), insns...)
	log.Infof("inserted random %s", insns[0])
}

func (rg *RandomInstructionGenerator) NewMutation() program.Mutation {
	return &RandomInstructionGeneratorMutation{}
}
