package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// arithGroups are the ranges of arithmetic opcodes that share a format
// and operand types.
var arithGroups = [][2]rawdex.Opcode{
	{rawdex.OpAddInt, rawdex.OpUshrInt},
	{rawdex.OpAddLong, rawdex.OpUshrLong},
	{rawdex.OpAddFloat, rawdex.OpRemFloat},
	{rawdex.OpAddDouble, rawdex.OpRemDouble},
	{rawdex.OpAddInt2Addr, rawdex.OpUshrInt2Addr},
	{rawdex.OpAddLong2Addr, rawdex.OpUshrLong2Addr},
	{rawdex.OpAddFloat2Addr, rawdex.OpRemFloat2Addr},
	{rawdex.OpAddDouble2Addr, rawdex.OpRemDouble2Addr},
	{rawdex.OpAddIntLit16, rawdex.OpXorIntLit16},
	{rawdex.OpAddIntLit8, rawdex.OpUshrIntLit8},
}

func isArithmetic(op rawdex.Opcode) bool { return op.Between(rawdex.OpAddInt, rawdex.OpUshrIntLit8) }

func arithGroup(op rawdex.Opcode) [2]rawdex.Opcode {
	for _, g := range arithGroups {
		if op.Between(g[0], g[1]) {
			return g
		}
	}
	rawdex.Fatalf("%s is not an arithmetic opcode", op)
	return [2]rawdex.Opcode{}
}

// ArithOpChanger swaps an arithmetic opcode for another one of its group.
type ArithOpChanger struct{ base }

type ArithOpChangerMutation struct {
	program.MutationBase
	ArithmeticInsnIdx int
	NewOpcode         rawdex.Opcode
}

func (m *ArithOpChangerMutation) Fields() []string {
	return []string{itoa(m.ArithmeticInsnIdx), itoa(int(m.NewOpcode))}
}

func (m *ArithOpChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.ArithmeticInsnIdx = r.int()
	m.NewOpcode = r.opcode()
	return r.done()
}

func NewArithOpChanger(rng *rand.Rand) *ArithOpChanger {
	return &ArithOpChanger{base{name: "ArithOpChanger", likelihood: 75, rng: rng}}
}

func (a *ArithOpChanger) candidates(c *program.MutatableCode) []int {
	return indicesWhere(c, opIs(isArithmetic))
}

func (a *ArithOpChanger) CanMutate(c *program.MutatableCode) bool {
	return len(a.candidates(c)) > 0
}

func (a *ArithOpChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(a.rng, a.candidates(c))
	op := c.InstructionAt(idx).Insn.Opcode()
	g := arithGroup(op)
	newOp := op
	for newOp == op {
		newOp = g[0] + rawdex.Opcode(a.rng.IntN(int(g[1]-g[0])+1))
	}
	return &ArithOpChangerMutation{
		MutationBase:      program.MutationBase{Code: c},
		ArithmeticInsnIdx: idx,
		NewOpcode:         newOp,
	}
}

func (a *ArithOpChanger) Apply(mut program.Mutation) {
	m := mut.(*ArithOpChangerMutation)
	insn := m.Code.InstructionAt(m.ArithmeticInsnIdx)
	log.Infof("changing %s to %s", insn, m.NewOpcode)
	insn.Insn.Info = m.NewOpcode.Info()
}

func (a *ArithOpChanger) NewMutation() program.Mutation { return &ArithOpChangerMutation{} }
