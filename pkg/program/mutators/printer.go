package mutators

import (
	"math/rand/v2"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

const (
	systemClass      = "Ljava/lang/System;"
	printStreamClass = "Ljava/io/PrintStream;"
	// nonsenseAlphabet keeps printed strings free of the whitespace that
	// separates mutation log fields.
	nonsenseAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_$"
	maxNonsenseLength = 16
)

// printIndices are the table indices a printing sequence refers to.
type printIndices struct {
	out, method, str int
}

// printIDs finds or creates System.out, PrintStream.<name><sig> and, when
// str is set, the string. Creating one entry can renumber an earlier one,
// so every entry is created first and looked up again afterwards.
func printIDs(p *program.Program, name, sig, str string) printIndices {
	ic := p.IdCreator()
	lookup := func() printIndices {
		ids := printIndices{str: -1}
		if str != "" {
			ids.str = ic.FindOrCreateString(str)
		}
		ids.out = ic.FindOrCreateField(systemClass, printStreamClass, "out")
		ids.method = ic.FindOrCreateMethod(printStreamClass, name, sig)
		return ids
	}
	lookup()
	return lookup()
}

func sgetOut(reg, field int) *program.MInsn {
	insn := rawdex.NewInstruction(rawdex.OpSgetObject)
	insn.VRegA = int64(reg)
	insn.VRegB = int64(field)
	return program.NewMInsn(insn)
}

func invokePrint(method int, args ...int) *program.MInsn {
	insn := rawdex.NewInstruction(rawdex.OpInvokeVirtual)
	insn.VRegA = int64(len(args))
	insn.VRegB = int64(method)
	setInvokeArgs(insn, args)
	return program.NewMInsn(insn)
}

// insertBefore inserts insns in order in front of at.
func insertBefore(c *program.MutatableCode, at *program.MInsn, insns ...*program.MInsn) {
	idx := c.InstructionIndex(at)
	for i, m := range insns {
		c.InsertInstructionAt(m, idx+i)
		log.Debugf("inserted %s", m)
	}
}

// NonsenseStringPrinter prints a random string through System.out.
type NonsenseStringPrinter struct{ base }

type NonsenseStringPrinterMutation struct {
	program.MutationBase
	InsertionIdx   int
	NonsenseString string
}

func (m *NonsenseStringPrinterMutation) Fields() []string {
	return []string{itoa(m.InsertionIdx), m.NonsenseString}
}

func (m *NonsenseStringPrinterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.InsertionIdx = r.int()
	m.NonsenseString = r.str()
	return r.done()
}

func NewNonsenseStringPrinter(rng *rand.Rand) *NonsenseStringPrinter {
	return &NonsenseStringPrinter{base{name: "NonsenseStringPrinter", likelihood: 10, rng: rng}}
}

func (ns *NonsenseStringPrinter) CanMutate(c *program.MutatableCode) bool {
	return fitsInvoke(c, 2) && len(indicesWhere(c, notRaw)) > 0
}

func (ns *NonsenseStringPrinter) nonsense() string {
	b := make([]byte, 1+ns.rng.IntN(maxNonsenseLength))
	for i := range b {
		b[i] = nonsenseAlphabet[ns.rng.IntN(len(nonsenseAlphabet))]
	}
	return string(b)
}

func (ns *NonsenseStringPrinter) Generate(c *program.MutatableCode) program.Mutation {
	return &NonsenseStringPrinterMutation{
		MutationBase:   program.MutationBase{Code: c},
		InsertionIdx:   pick(ns.rng, indicesWhere(c, notRaw)),
		NonsenseString: ns.nonsense(),
	}
}

func (ns *NonsenseStringPrinter) Apply(mut program.Mutation) {
	m := mut.(*NonsenseStringPrinterMutation)
	c := m.Code
	at := c.InstructionAt(m.InsertionIdx)
	ids := printIDs(c.Program, "print", "(Ljava/lang/String;)V", m.NonsenseString)

	c.AllocateTemporaryVRegs(2)
	stream, str := c.TemporaryVReg(0), c.TemporaryVReg(1)

	constOp := rawdex.OpConstString
	if ids.str > 0xffff {
		constOp = rawdex.OpConstStringJumbo
	}
	load := rawdex.NewInstruction(constOp)
	load.VRegA = int64(str)
	load.VRegB = int64(ids.str)

	insertBefore(c, at, sgetOut(stream, ids.out), program.NewMInsn(load), invokePrint(ids.method, stream, str))
	raiseOuts(c, 2)
	log.Infof("printing %q before %s", m.NonsenseString, at)

	c.FinishedUsingTemporaryVRegs()
}

func (ns *NonsenseStringPrinter) NewMutation() program.Mutation {
	return &NonsenseStringPrinterMutation{}
}

// ValuePrinter prints the result of an arithmetic instruction.
type ValuePrinter struct{ base }

type ValuePrinterMutation struct {
	program.MutationBase
	PrintedInsnIdx int
}

func (m *ValuePrinterMutation) Fields() []string { return []string{itoa(m.PrintedInsnIdx)} }

func (m *ValuePrinterMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 1)
	m.PrintedInsnIdx = r.int()
	return r.done()
}

func NewValuePrinter(rng *rand.Rand) *ValuePrinter {
	return &ValuePrinter{base{name: "ValuePrinter", likelihood: 40, rng: rng}}
}

// resultType returns the descriptor of the value an arithmetic opcode
// produces.
func resultType(op rawdex.Opcode) string {
	switch g := arithGroup(op); g[0] {
	case rawdex.OpAddLong, rawdex.OpAddLong2Addr:
		return "J"
	case rawdex.OpAddFloat, rawdex.OpAddFloat2Addr:
		return "F"
	case rawdex.OpAddDouble, rawdex.OpAddDouble2Addr:
		return "D"
	}
	return "I"
}

func resultRegs(insn *rawdex.Instruction) []int {
	regs := []int{int(insn.VRegA)}
	if t := resultType(insn.Opcode()); t == "J" || t == "D" {
		regs = append(regs, int(insn.VRegA)+1)
	}
	return regs
}

func (vp *ValuePrinter) candidates(c *program.MutatableCode) []int {
	return indicesWhere(c, func(m *program.MInsn) bool {
		if m.IsRaw() || !isArithmetic(m.Insn.Opcode()) {
			return false
		}
		regs := resultRegs(m.Insn)
		return regs[len(regs)-1] < 16
	})
}

func (vp *ValuePrinter) CanMutate(c *program.MutatableCode) bool {
	return fitsInvoke(c, 1) && len(vp.candidates(c)) > 0
}

func (vp *ValuePrinter) Generate(c *program.MutatableCode) program.Mutation {
	return &ValuePrinterMutation{
		MutationBase:   program.MutationBase{Code: c},
		PrintedInsnIdx: pick(vp.rng, vp.candidates(c)),
	}
}

func (vp *ValuePrinter) Apply(mut program.Mutation) {
	m := mut.(*ValuePrinterMutation)
	c := m.Code
	arith := c.InstructionAt(m.PrintedInsnIdx)
	ids := printIDs(c.Program, "println", "("+resultType(arith.Insn.Opcode())+")V", "")

	c.AllocateTemporaryVRegs(1)
	stream := c.TemporaryVReg(0)
	args := append([]int{stream}, resultRegs(arith.Insn)...)

	sget := sgetOut(stream, ids.out)
	call := invokePrint(ids.method, args...)
	c.InsertInstructionAfter(sget, c.InstructionIndex(arith))
	c.InsertInstructionAfter(call, c.InstructionIndex(sget))
	raiseOuts(c, len(args))
	log.Infof("printing the result of %s", arith)

	c.FinishedUsingTemporaryVRegs()
}

func (vp *ValuePrinter) NewMutation() program.Mutation { return &ValuePrinterMutation{} }
