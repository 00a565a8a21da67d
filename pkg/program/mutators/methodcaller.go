package mutators

import (
	"math/rand/v2"
	"strconv"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
	"github.com/pkg/errors"
)

// CallType names a method NewMethodCaller knows how to call.
type CallType int

const (
	CallArraycopy CallType = iota
)

type callee struct {
	class, name, sig string
	static           bool
	args             int
}

var callees = map[CallType]callee{
	CallArraycopy: {"Ljava/lang/System;", "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V", true, 5},
}

// NewMethodCaller inserts a call to a library method with random
// argument registers.
type NewMethodCaller struct{ base }

type NewMethodCallerMutation struct {
	program.MutationBase
	InsertionIdx int
	CallType     CallType
	Args         []int
}

func (m *NewMethodCallerMutation) Fields() []string {
	out := []string{itoa(m.InsertionIdx), itoa(int(m.CallType))}
	for _, a := range m.Args {
		out = append(out, itoa(a))
	}
	return out
}

func (m *NewMethodCallerMutation) Parse(fields []string) error {
	if len(fields) < 2 {
		return errors.Errorf("want at least 2 fields, got %d", len(fields))
	}
	ct, err := strconv.Atoi(fields[1])
	if err != nil {
		return errors.Wrap(err, "bad call type")
	}
	target, ok := callees[CallType(ct)]
	if !ok {
		return errors.Errorf("unknown call type %d", ct)
	}
	r := newFieldReader(fields, 2+target.args)
	m.InsertionIdx = r.int()
	m.CallType = CallType(r.int())
	m.Args = make([]int, target.args)
	for i := range m.Args {
		m.Args[i] = r.int()
	}
	return r.done()
}

func NewNewMethodCaller(rng *rand.Rand) *NewMethodCaller {
	return &NewMethodCaller{base{name: "NewMethodCaller", likelihood: 10, rng: rng}}
}

func (nm *NewMethodCaller) CanMutate(c *program.MutatableCode) bool {
	return c.RegistersSize > 0 && len(indicesWhere(c, notRaw)) > 0
}

func (nm *NewMethodCaller) Generate(c *program.MutatableCode) program.Mutation {
	ct := CallArraycopy
	args := make([]int, callees[ct].args)
	for i := range args {
		args[i] = nm.rng.IntN(maxVReg(c, 4))
	}
	return &NewMethodCallerMutation{
		MutationBase: program.MutationBase{Code: c},
		InsertionIdx: pick(nm.rng, indicesWhere(c, notRaw)),
		CallType:     ct,
		Args:         args,
	}
}

func (nm *NewMethodCaller) Apply(mut program.Mutation) {
	m := mut.(*NewMethodCallerMutation)
	c := m.Code
	target := callees[m.CallType]
	methodIdx := c.Program.IdCreator().FindOrCreateMethod(target.class, target.name, target.sig)

	op := rawdex.OpInvokeVirtual
	if target.static {
		op = rawdex.OpInvokeStatic
	}
	insn := rawdex.NewInstruction(op)
	insn.VRegA = int64(len(m.Args))
	insn.VRegB = int64(methodIdx)
	setInvokeArgs(insn, m.Args)

	call := program.NewMInsn(insn)
	c.InsertInstructionAt(call, m.InsertionIdx)
	raiseOuts(c, len(m.Args))
	log.Infof("inserted call %s", call)
}

func (nm *NewMethodCaller) NewMutation() program.Mutation { return &NewMethodCallerMutation{} }

// setInvokeArgs writes up to five argument registers of a non-range
// invoke.
func setInvokeArgs(insn *rawdex.Instruction, args []int) {
	slots := []*uint8{&insn.Invoke.VRegD, &insn.Invoke.VRegE, &insn.Invoke.VRegF, &insn.Invoke.VRegG}
	for i, a := range args {
		if i == 0 {
			insn.VRegC = int64(a)
			continue
		}
		*slots[i-1] = uint8(a)
	}
}
