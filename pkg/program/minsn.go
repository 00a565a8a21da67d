package program

import (
	"fmt"

	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// MInsnKind selects which links of an MInsn are in use.
type MInsnKind int

const (
	// KindPlain instructions have no links.
	KindPlain MInsnKind = iota
	// KindBranch instructions (if-*, goto*) have a Target.
	KindBranch
	// KindWithData instructions (fill-array-data) have a DataTarget.
	KindWithData
	// KindSwitch instructions have a DataTarget and SwitchTargets.
	KindSwitch
)

// MInsn is one instruction of a MutatableCode. Branch, switch and payload
// references are held as instruction identities, locations are recomputed
// when the code is written back.
type MInsn struct {
	Insn *rawdex.Instruction
	Kind MInsnKind

	// Location is the position in code units from the start of the method.
	Location        int
	LocationUpdated bool

	Target     *MInsn
	DataTarget *MInsn

	SwitchTargets []*MInsn
	SwitchKeys    []int32
	Packed        bool
}

// NewMInsn wraps insn with the kind its opcode calls for.
func NewMInsn(insn *rawdex.Instruction) *MInsn {
	m := &MInsn{Insn: insn}
	if insn.JustRaw {
		return m
	}
	switch op := insn.Opcode(); {
	case op.IsSwitch():
		m.Kind = KindSwitch
		m.Packed = op == rawdex.OpPackedSwitch
	case op.IsBranch():
		m.Kind = KindBranch
	case op == rawdex.OpFillArrayData:
		m.Kind = KindWithData
	}
	return m
}

// IsBranch reports whether m is an if-test or goto.
func (m *MInsn) IsBranch() bool { return m.Kind == KindBranch }

// IsSwitch reports whether m is a packed or sparse switch.
func (m *MInsn) IsSwitch() bool { return m.Kind == KindSwitch }

// HasData reports whether m owns a raw payload.
func (m *MInsn) HasData() bool { return m.Kind == KindWithData || m.Kind == KindSwitch }

// IsRaw reports whether m is a raw payload.
func (m *MInsn) IsRaw() bool { return m.Insn.JustRaw }

// Clone copies the instruction. Links are shared with m, so a cloned
// branch jumps to the same instruction.
func (m *MInsn) Clone() *MInsn {
	c := *m
	c.Insn = m.Insn.Clone()
	c.LocationUpdated = false
	if m.SwitchTargets != nil {
		c.SwitchTargets = append([]*MInsn(nil), m.SwitchTargets...)
	}
	if m.SwitchKeys != nil {
		c.SwitchKeys = append([]int32(nil), m.SwitchKeys...)
	}
	return &c
}

// retarget moves every link pointing at before to after.
func (m *MInsn) retarget(before, after *MInsn) {
	if m.Target == before {
		m.Target = after
	}
	for i, t := range m.SwitchTargets {
		if t == before {
			m.SwitchTargets[i] = after
		}
	}
}

func (m *MInsn) String() string {
	mark := ""
	if m.LocationUpdated {
		mark = "*"
	}
	return fmt.Sprintf("{%d%s} %s", m.Location, mark, m.Insn)
}

// MTryBlock is a try item whose range and handlers are instructions.
type MTryBlock struct {
	Start    *MInsn
	End      *MInsn
	CatchAll *MInsn
	Handlers []*MInsn

	// handlerIdx is the CodeItem handler the try item uses.
	handlerIdx int
}

func (t *MTryBlock) replace(before, after *MInsn, twoWay bool) {
	swap := func(p **MInsn) {
		switch {
		case *p == before:
			*p = after
		case twoWay && *p == after:
			*p = before
		}
	}
	swap(&t.Start)
	swap(&t.End)
	if t.CatchAll != nil {
		swap(&t.CatchAll)
	}
	for i := range t.Handlers {
		swap(&t.Handlers[i])
	}
}
