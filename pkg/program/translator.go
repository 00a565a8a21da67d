package program

import (
	"encoding/binary"
	"slices"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// CodeTranslator converts between code items and their mutatable form.
type CodeTranslator struct{}

func target(insn *rawdex.Instruction) int {
	return int(insn.Info.Format.(rawdex.ContainsTarget).Target(insn))
}

func setTarget(insn *rawdex.Instruction, v int) {
	insn.Info.Format.(rawdex.ContainsTarget).SetTarget(insn, int64(v))
}

// CodeItemToMutatableCode builds the mutatable form of ci and registers it
// as the live instruction view of ci.
func (CodeTranslator) CodeItemToMutatableCode(p *Program, ci *rawdex.CodeItem, codeItemIdx, mutatableCodeIdx int) *MutatableCode {
	log.WithFields(log.Fields{
		"code_item": codeItemIdx,
		"method":    ci.Meta.MethodName,
	}).Debug("translating code item")

	c := &MutatableCode{
		CodeItemIdx:      codeItemIdx,
		MutatableCodeIdx: mutatableCodeIdx,
		RegistersSize:    ci.RegistersSize,
		InsSize:          ci.InsSize,
		OutsSize:         ci.OutsSize,
		Name:             ci.Meta.MethodName,
		Shorty:           ci.Meta.Shorty,
		IsStatic:         ci.Meta.IsStatic,
		Program:          p,
	}
	ci.Live = c

	byLocation := make(map[int]*MInsn, len(ci.Insns))
	loc := 0
	for _, insn := range ci.Insns {
		m := NewMInsn(insn)
		m.Location = loc
		byLocation[loc] = m
		c.insns = append(c.insns, m)
		loc += insn.Size()
	}

	for _, m := range c.insns {
		switch m.Kind {
		case KindSwitch:
			readSwitch(m, byLocation)
		case KindWithData:
			if m.DataTarget = byLocation[m.Location+target(m.Insn)]; m.DataTarget == nil {
				rawdex.Fatalf("bad data target offset in %s of %s", m, c.Name)
			}
		case KindBranch:
			if m.Target = byLocation[m.Location+target(m.Insn)]; m.Target == nil {
				rawdex.Fatalf("bad branch offset in %s of %s", m, c.Name)
			}
		}
	}

	if len(ci.Tries) > 0 {
		c.tries = readTryBlocks(ci, byLocation)
	}
	return c
}

func readSwitch(m *MInsn, byLocation map[int]*MInsn) {
	if m.DataTarget = byLocation[m.Location+target(m.Insn)]; m.DataTarget == nil {
		rawdex.Fatalf("bad data target offset in switch %s", m)
	}
	data := m.DataTarget.Insn
	raw := data.RawBytes()
	le := binary.LittleEndian

	n := int(le.Uint16(raw[2:]))
	ptr := 4
	m.SwitchKeys = make([]int32, n)
	switch data.RawType {
	case rawdex.RawPackedSwitchData:
		m.Packed = true
		first := int32(le.Uint32(raw[ptr:]))
		ptr += 4
		for i := range m.SwitchKeys {
			m.SwitchKeys[i] = first + int32(i)
		}
	case rawdex.RawSparseSwitchData:
		m.Packed = false
		for i := range m.SwitchKeys {
			m.SwitchKeys[i] = int32(le.Uint32(raw[ptr:]))
			ptr += 4
		}
	default:
		rawdex.FatalWrapf(rawdex.ErrUnknownDataBlock, "switch %s points at payload type %d", m, data.RawType)
	}

	m.SwitchTargets = make([]*MInsn, n)
	for i := range m.SwitchTargets {
		rel := int(int32(le.Uint32(raw[ptr:])))
		ptr += 4
		if m.SwitchTargets[i] = byLocation[m.Location+rel]; m.SwitchTargets[i] == nil {
			rawdex.Fatalf("bad case offset %d in switch %s", rel, m)
		}
	}
}

func readTryBlocks(ci *rawdex.CodeItem, byLocation map[int]*MInsn) []*MTryBlock {
	tries := make([]*MTryBlock, len(ci.Tries))
	for i, try := range ci.Tries {
		start := int(try.StartAddr)
		t := &MTryBlock{Start: byLocation[start], handlerIdx: try.HandlerIdx}
		if t.Start == nil {
			rawdex.Fatalf("no instruction at try start 0x%x", start)
		}
		// the last instruction of the block may be wider than one unit
		end := start + int(try.InsnCount) - 1
		t.End = byLocation[end]
		for t.End == nil && end > start {
			end--
			t.End = byLocation[end]
		}
		if t.End == nil {
			rawdex.Fatalf("no instruction at try end 0x%x", end)
		}

		h := ci.Handlers[try.HandlerIdx]
		if h.HasCatchAll() {
			if t.CatchAll = byLocation[int(h.CatchAllAddr)]; t.CatchAll == nil {
				rawdex.Fatalf("no instruction at catch-all 0x%x", h.CatchAllAddr)
			}
		}
		for _, pair := range h.Handlers {
			hm := byLocation[int(pair.Addr)]
			if hm == nil {
				rawdex.Fatalf("no instruction at handler 0x%x", pair.Addr)
			}
			t.Handlers = append(t.Handlers, hm)
		}
		tries[i] = t
	}
	return tries
}

// MutatableCodeToCodeItem writes c back into ci: payloads are realigned,
// every location is checked, branch and switch offsets, switch payloads
// and try items are recomputed.
func (CodeTranslator) MutatableCodeToCodeItem(ci *rawdex.CodeItem, c *MutatableCode) {
	log.WithFields(log.Fields{
		"code_item": c.CodeItemIdx,
		"method":    c.Name,
	}).Debug("translating mutatable code back")

	alignDataInstructions(c)

	loc := 0
	for _, m := range c.insns {
		if m.IsRaw() && loc%2 != 0 {
			loc++
		}
		if m.Location != loc {
			rawdex.Fatalf("%s does not have expected location 0x%x", m, loc)
		}
		m.LocationUpdated = false
		loc += m.Insn.Size()
	}

	insns := make([]*rawdex.Instruction, 0, len(c.insns))
	size := 0
	for _, m := range c.insns {
		switch m.Kind {
		case KindSwitch:
			updateSwitch(m)
		case KindWithData:
			setTarget(m.Insn, m.DataTarget.Location-m.Location)
		case KindBranch:
			setTarget(m.Insn, m.Target.Location-m.Location)
		}
		insns = append(insns, m.Insn)
		size += m.Insn.Size()
	}

	if len(c.tries) > 0 {
		updateTryBlocks(ci, c)
	}
	ci.InsnsSize = uint32(size)
	ci.Insns = insns
	ci.RegistersSize = c.RegistersSize
	ci.InsSize = c.InsSize
	ci.OutsSize = c.OutsSize
}

// switchPayloadSize returns the size in code units of a switch payload
// with n cases.
func switchPayloadSize(packed bool, n int) int {
	if packed {
		return n*2 + 4
	}
	return n*4 + 2
}

// alignDataInstructions puts a nop in front of every payload that does not
// start on a 4 byte boundary.
func alignDataInstructions(c *MutatableCode) {
	var data []*MInsn
	for _, m := range c.insns {
		if m.HasData() && m.DataTarget != nil {
			if m.IsSwitch() {
				m.DataTarget.Insn.RawSize = switchPayloadSize(m.Packed, len(m.SwitchTargets))
			}
			data = append(data, m.DataTarget)
		}
	}
	if len(data) == 0 {
		return
	}
	slices.SortStableFunc(data, func(a, b *MInsn) int { return a.Location - b.Location })
	for _, d := range data {
		if d.Location%2 != 0 {
			log.Debugf("aligning %s with a nop", d)
			c.InsertInstructionAt(NewMInsn(rawdex.NewInstruction(rawdex.OpNop)), c.InstructionIndex(d))
		}
	}
}

func updateSwitch(m *MInsn) {
	setTarget(m.Insn, m.DataTarget.Location-m.Location)

	le := binary.LittleEndian
	data := m.DataTarget.Insn
	raw := data.RawBytes()
	n := len(m.SwitchTargets)

	out := le.AppendUint16(nil, le.Uint16(raw))
	out = le.AppendUint16(out, uint16(n))
	if m.Packed {
		var first int32
		if len(m.SwitchKeys) > 0 {
			first = m.SwitchKeys[0]
		}
		out = le.AppendUint32(out, uint32(first))
	} else {
		for _, k := range m.SwitchKeys[:n] {
			out = le.AppendUint32(out, uint32(k))
		}
	}
	for _, t := range m.SwitchTargets {
		out = le.AppendUint32(out, uint32(int32(t.Location-m.Location)))
	}
	data.SetRawBytes(out)
}

func updateTryBlocks(ci *rawdex.CodeItem, c *MutatableCode) {
	for _, t := range c.tries {
		if t.Start.Location > t.End.Location {
			t.Start, t.End = t.End, t.Start
		}
	}
	slices.SortStableFunc(c.tries, func(a, b *MTryBlock) int { return a.Start.Location - b.Start.Location })
	for i := 0; i+1 < len(c.tries); i++ {
		first, second := c.tries[i], c.tries[i+1]
		if first.End.Location < second.Start.Location {
			continue
		}
		log.Debugf("try blocks overlap: [%s, %s] and [%s, %s]", first.Start, first.End, second.Start, second.End)
		if next := c.InstructionIndex(first.End) + 1; next <= c.InstructionIndex(second.End) {
			second.Start = c.insns[next]
			log.Debugf("second try block now starts at %s", second.Start)
			continue
		}
		// the second block lies inside the first
		log.Debugf("dropping try block [%s, %s]", second.Start, second.End)
		c.tries = slices.Delete(c.tries, i+1, i+2)
		i--
	}
	ci.Tries = ci.Tries[:len(c.tries)]

	for i, t := range c.tries {
		try := ci.Tries[i]
		try.StartAddr = uint32(t.Start.Location)
		try.InsnCount = uint16(t.End.Location - t.Start.Location + t.End.Insn.Size())
		try.HandlerIdx = t.handlerIdx

		h := ci.Handlers[t.handlerIdx]
		if h.HasCatchAll() {
			h.CatchAllAddr = uint32(t.CatchAll.Location)
		}
		for j := range h.Handlers {
			h.Handlers[j].Addr = uint32(t.Handlers[j].Location)
		}
	}
}
