package mutators

import (
	"math/rand/v2"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/program"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// initSearchWindow is how many instructions after a new-instance are
// searched for its constructor call.
const initSearchWindow = 5

// NewInstanceChanger changes the class a new-instance creates, and the
// constructor called on it when that call follows closely.
type NewInstanceChanger struct{ base }

type NewInstanceChangerMutation struct {
	program.MutationBase
	NewInstanceInsnIdx int
	NewTypeIdx         int
}

func (m *NewInstanceChangerMutation) Fields() []string {
	return []string{itoa(m.NewInstanceInsnIdx), itoa(m.NewTypeIdx)}
}

func (m *NewInstanceChangerMutation) Parse(fields []string) error {
	r := newFieldReader(fields, 2)
	m.NewInstanceInsnIdx = r.int()
	m.NewTypeIdx = r.int()
	return r.done()
}

func NewNewInstanceChanger(rng *rand.Rand) *NewInstanceChanger {
	return &NewInstanceChanger{base{name: "NewInstanceChanger", likelihood: 10, rng: rng}}
}

func isNewInstance(op rawdex.Opcode) bool { return op == rawdex.OpNewInstance }

// classTypes returns the indices of the class types of the file.
func classTypes(p *program.Program) []int {
	var idx []int
	for i := range p.TotalPoolIndicesByKind(rawdex.PoolType) {
		if strings.HasPrefix(p.TypeString(i), "L") {
			idx = append(idx, i)
		}
	}
	return idx
}

func (ni *NewInstanceChanger) CanMutate(c *program.MutatableCode) bool {
	return len(indicesWhere(c, opIs(isNewInstance))) > 0 && len(classTypes(c.Program)) > 1
}

func (ni *NewInstanceChanger) Generate(c *program.MutatableCode) program.Mutation {
	idx := pick(ni.rng, indicesWhere(c, opIs(isNewInstance)))
	cur := int(c.InstructionAt(idx).Insn.VRegB)
	return &NewInstanceChangerMutation{
		MutationBase:       program.MutationBase{Code: c},
		NewInstanceInsnIdx: idx,
		NewTypeIdx:         pickOther(ni.rng, classTypes(c.Program), cur),
	}
}

// findInit returns the invoke-direct of <init> on the register created by
// newInstance, or nil.
func findInit(c *program.MutatableCode, newInstance *program.MInsn) *program.MInsn {
	p := c.Program
	start := c.InstructionIndex(newInstance) + 1
	for i := start; i < min(start+initSearchWindow, c.InstructionCount()); i++ {
		m := c.InstructionAt(i)
		if m.IsRaw() {
			continue
		}
		op := m.Insn.Opcode()
		if op != rawdex.OpInvokeDirect && op != rawdex.OpInvokeDirectRange {
			continue
		}
		if m.Insn.VRegC == newInstance.Insn.VRegA && p.MethodName(int(m.Insn.VRegB)) == "<init>" {
			return m
		}
	}
	return nil
}

func (ni *NewInstanceChanger) Apply(mut program.Mutation) {
	m := mut.(*NewInstanceChangerMutation)
	c := m.Code
	p := c.Program
	newInstance := c.InstructionAt(m.NewInstanceInsnIdx)
	newInstance.Insn.VRegB = int64(m.NewTypeIdx)
	class := p.TypeString(m.NewTypeIdx)
	log.Infof("%s now creates %s", newInstance, class)

	init := findInit(c, newInstance)
	if init == nil {
		return
	}
	sig := p.MethodProto(int(init.Insn.VRegB))
	// creating the method can renumber the type, which the live
	// new-instance follows
	init.Insn.VRegB = int64(p.IdCreator().FindOrCreateMethod(class, "<init>", sig))
	log.Infof("constructor call changed to %s", init)
}

func (ni *NewInstanceChanger) NewMutation() program.Mutation {
	return &NewInstanceChangerMutation{}
}
