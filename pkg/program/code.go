package program

import (
	"slices"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// MutatableCode is the editable form of one code item. The translator
// builds it from a rawdex.CodeItem and writes it back after mutation.
type MutatableCode struct {
	CodeItemIdx      int
	MutatableCodeIdx int

	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16

	Name     string
	Shorty   string
	IsStatic bool

	// Program owns the code and gives mutators access to the file's pools.
	Program *Program

	insns []*MInsn
	tries []*MTryBlock

	originalInVReg        int
	tempVRegsAllocated    int
	initialTempVReg       int
	vregsNeedCopying      bool
	numMoveInsnsGenerated int
}

// Instructions returns a snapshot of the instruction list. Edits made
// through the MutatableCode afterwards are not reflected in it.
func (c *MutatableCode) Instructions() []*MInsn { return slices.Clone(c.insns) }

// TryBlocks returns the try blocks of the method.
func (c *MutatableCode) TryBlocks() []*MTryBlock { return c.tries }

func (c *MutatableCode) InstructionCount() int { return len(c.insns) }

func (c *MutatableCode) InstructionAt(idx int) *MInsn { return c.insns[idx] }

// InstructionIndex returns the current index of m, or -1.
func (c *MutatableCode) InstructionIndex(m *MInsn) int { return slices.Index(c.insns, m) }

// shiftLocationsAfter moves every instruction after m by offset code units.
func (c *MutatableCode) shiftLocationsAfter(m *MInsn, offset int) {
	idx := c.InstructionIndex(m)
	for _, o := range c.insns[idx+1:] {
		o.Location += offset
		o.LocationUpdated = true
	}
}

func (c *MutatableCode) recalculateLocations() {
	loc := 0
	for _, m := range c.insns {
		m.Location = loc
		loc += m.Insn.Size()
	}
}

// InsertInstructionAt inserts m so that it ends up at idx.
func (c *MutatableCode) InsertInstructionAt(m *MInsn, idx int) {
	if idx >= len(c.insns) {
		c.appendInstruction(m)
		return
	}
	m.Location = c.insns[idx].Location
	c.insns = slices.Insert(c.insns, idx, m)
	c.shiftLocationsAfter(m, m.Insn.Size())
}

// InsertInstructionAfter inserts m right after the instruction at idx.
func (c *MutatableCode) InsertInstructionAfter(m *MInsn, idx int) {
	if idx+1 < len(c.insns) {
		c.InsertInstructionAt(m, idx+1)
		return
	}
	c.appendInstruction(m)
}

func (c *MutatableCode) appendInstruction(m *MInsn) {
	if n := len(c.insns); n > 0 {
		last := c.insns[n-1]
		m.Location = last.Location + last.Insn.Size()
	}
	c.insns = append(c.insns, m)
}

// replaceInTryBlocks points try block references at before to after. When
// twoWay is set, references to after are pointed at before as well.
func (c *MutatableCode) replaceInTryBlocks(before, after *MInsn, twoWay bool) {
	for _, t := range c.tries {
		t.replace(before, after, twoWay)
	}
}

// DeleteInstruction removes m. A with-data instruction takes its payload
// with it and a payload takes its owner with it.
func (c *MutatableCode) DeleteInstruction(m *MInsn) {
	switch {
	case m.HasData() && m.DataTarget != nil:
		log.Debugf("deleting payload of %s along with it", m)
		c.deleteInstruction(m.DataTarget)
	case m.IsRaw():
		for _, owner := range c.insns {
			if owner.HasData() && owner.DataTarget == m {
				log.Debugf("deleting owner %s of the payload along with it", owner)
				c.deleteInstruction(owner)
				break
			}
		}
	}
	c.deleteInstruction(m)
}

// DeleteInstructionAt removes the instruction at idx, see DeleteInstruction.
func (c *MutatableCode) DeleteInstructionAt(idx int) {
	c.DeleteInstruction(c.insns[idx])
}

// deleteInstruction removes m alone. Branches, switch cases and try
// blocks that referenced m are moved to the instruction taking its place.
func (c *MutatableCode) deleteInstruction(m *MInsn) {
	idx := c.InstructionIndex(m)
	if idx < 0 {
		rawdex.Fatalf("deleting instruction %s that is not part of %s", m, c.Name)
	}
	c.shiftLocationsAfter(m, -m.Insn.Size())
	c.insns = slices.Delete(c.insns, idx, idx+1)
	if len(c.insns) == 0 {
		return
	}

	if idx == len(c.insns) {
		idx--
	}
	replacement := c.insns[idx]
	for _, o := range c.insns {
		o.retarget(m, replacement)
	}
	c.replaceInTryBlocks(m, replacement, false)
}

// SwapInstructionsByIndex exchanges two instructions. Try blocks keep
// covering the same positions.
func (c *MutatableCode) SwapInstructionsByIndex(a, b int) {
	ma, mb := c.insns[a], c.insns[b]
	c.insns[a], c.insns[b] = mb, ma
	c.replaceInTryBlocks(ma, mb, true)
	c.recalculateLocations()
}

// AllocateTemporaryVRegs reserves count registers at the top of the frame.
// The ins move up with them, so FinishedUsingTemporaryVRegs must be called
// once the registers are in use.
func (c *MutatableCode) AllocateTemporaryVRegs(count int) {
	if count <= c.tempVRegsAllocated {
		return
	}
	if c.tempVRegsAllocated == 0 {
		log.Debugf("allocating temporary vregs for %s", c.Name)
		c.initialTempVReg = int(c.RegistersSize)
		c.originalInVReg = int(c.RegistersSize) - int(c.InsSize)
	} else {
		log.Debugf("extending temporary vregs of %s", c.Name)
	}
	c.RegistersSize = uint16(c.initialTempVReg + count)
	if int(c.OutsSize) < count {
		c.OutsSize = uint16(count)
	}
	c.vregsNeedCopying = true
	c.tempVRegsAllocated = count
}

// TemporaryVReg returns the register number of temporary n.
func (c *MutatableCode) TemporaryVReg(n int) int {
	if n >= c.tempVRegsAllocated {
		rawdex.Fatalf("temporary vreg %d requested, only %d allocated", n, c.tempVRegsAllocated)
	}
	return c.initialTempVReg + n
}

// FinishedUsingTemporaryVRegs inserts the moves that copy the ins back
// to where the method body expects them. Moves generated by an earlier
// call are replaced.
func (c *MutatableCode) FinishedUsingTemporaryVRegs() {
	if c.tempVRegsAllocated == 0 || !c.vregsNeedCopying {
		return
	}
	for ; c.numMoveInsnsGenerated > 0; c.numMoveInsnsGenerated-- {
		c.deleteInstruction(c.insns[0])
	}

	log.Debugf("moving ins of %s below %d temporary vregs", c.Name, c.tempVRegsAllocated)
	shortyIdx := 0
	if c.IsStatic {
		shortyIdx = 1
	}
	at := 0
	for i := 0; i < int(c.InsSize); i++ {
		typ := byte('L')
		if shortyIdx > 0 && shortyIdx < len(c.Shorty) {
			typ = c.Shorty[shortyIdx]
		}
		shortyIdx++

		var insn *rawdex.Instruction
		switch typ {
		case 'L':
			insn = rawdex.NewInstruction(rawdex.OpMoveObject16)
		case 'D', 'J':
			insn = rawdex.NewInstruction(rawdex.OpMoveWide16)
		default:
			insn = rawdex.NewInstruction(rawdex.OpMove16)
		}
		insn.VRegA = int64(c.originalInVReg + i)
		insn.VRegB = int64(c.originalInVReg + i + c.tempVRegsAllocated)
		if typ == 'D' || typ == 'J' {
			i++
		}
		m := NewMInsn(insn)
		c.InsertInstructionAt(m, at)
		at++
		c.numMoveInsnsGenerated++
		log.Debugf("added %s", m)
	}
	c.vregsNeedCopying = false
}

// RequestLatestInstructions returns the instructions as they currently
// are, so index renumbering reaches instructions not yet written back.
func (c *MutatableCode) RequestLatestInstructions() []*rawdex.Instruction {
	out := make([]*rawdex.Instruction, len(c.insns))
	for i, m := range c.insns {
		out[i] = m.Insn
	}
	return out
}

var _ rawdex.LiveInstructions = (*MutatableCode)(nil)
