package rawdex

import "github.com/apex/log"

// LiveInstructions is implemented by an editable view of a code item. While
// one is registered, the code item's own instruction list is stale.
type LiveInstructions interface {
	RequestLatestInstructions() []*Instruction
}

// CodeMeta is filled in by the program after reading.
type CodeMeta struct {
	MethodName string
	Shorty     string
	IsStatic   bool
}

type TryItem struct {
	StartAddr uint32
	InsnCount uint16
	// HandlerIdx indexes CodeItem.Handlers; the byte offset is recomputed
	// on write.
	HandlerIdx int
}

type EncodedTypeAddrPair struct {
	TypeIdx uint32
	Addr    uint32
}

type EncodedCatchHandler struct {
	// Size is negative when a catch-all handler follows the typed ones.
	Size         int32
	Handlers     []EncodedTypeAddrPair
	CatchAllAddr uint32
}

// HasCatchAll reports whether the handler ends with a catch-all.
func (h *EncodedCatchHandler) HasCatchAll() bool { return h.Size <= 0 }

func (h *EncodedCatchHandler) read(f *File) {
	h.Size = f.ReadSLEB128()
	n := h.Size
	if n < 0 {
		n = -n
	}
	h.Handlers = make([]EncodedTypeAddrPair, n)
	for i := range h.Handlers {
		h.Handlers[i].TypeIdx = f.ReadULEB128()
		h.Handlers[i].Addr = f.ReadULEB128()
	}
	if h.HasCatchAll() {
		h.CatchAllAddr = f.ReadULEB128()
	}
}

func (h *EncodedCatchHandler) appendTo(b []byte) []byte {
	b = AppendSLEB128(b, h.Size)
	for _, p := range h.Handlers {
		b = AppendULEB128(b, p.TypeIdx)
		b = AppendULEB128(b, p.Addr)
	}
	if h.HasCatchAll() {
		b = AppendULEB128(b, h.CatchAllAddr)
	}
	return b
}

// CodeItem is the body of one method.
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	DebugInfoOff  *Offset
	InsnsSize     uint32
	Insns         []*Instruction
	Tries         []*TryItem
	Handlers      []*EncodedCatchHandler

	Meta CodeMeta
	// Live, when set, holds the instructions being mutated.
	Live LiveInstructions
}

func (c *CodeItem) Read(f *File) {
	f.Align(4)
	t := f.Tracker()
	t.GetNewOffsettable(f, c)
	c.RegistersSize = f.ReadUShort()
	c.InsSize = f.ReadUShort()
	c.OutsSize = f.ReadUShort()
	triesSize := f.ReadUShort()
	c.DebugInfoOff = t.GetNewOffset(f.ReadUInt())
	c.InsnsSize = f.ReadUInt()

	c.Insns = nil
	for read := 0; read < int(c.InsnsSize); {
		insn := &Instruction{}
		insn.Read(f)
		c.Insns = append(c.Insns, insn)
		read += insn.Size()
	}

	if triesSize == 0 {
		return
	}
	if c.InsnsSize%2 != 0 {
		f.ReadUShort()
	}
	handlerOffs := make([]uint16, triesSize)
	c.Tries = make([]*TryItem, triesSize)
	for i := range c.Tries {
		c.Tries[i] = &TryItem{StartAddr: f.ReadUInt(), InsnCount: f.ReadUShort()}
		handlerOffs[i] = f.ReadUShort()
	}

	listStart := f.Pos()
	c.Handlers = make([]*EncodedCatchHandler, f.ReadULEB128())
	byOffset := make(map[uint16]int, len(c.Handlers))
	for i := range c.Handlers {
		byOffset[uint16(f.Pos()-listStart)] = i
		c.Handlers[i] = &EncodedCatchHandler{}
		c.Handlers[i].read(f)
	}
	for i, off := range handlerOffs {
		idx, ok := byOffset[off]
		if !ok {
			Fatalf("try item %d has handler offset 0x%x that starts no handler", i, off)
		}
		c.Tries[i].HandlerIdx = idx
	}
}

// encodeHandlers returns the encoded_catch_handler_list and the offset of
// each handler inside it.
func (c *CodeItem) encodeHandlers() ([]byte, []uint16) {
	b := AppendULEB128(nil, uint32(len(c.Handlers)))
	offs := make([]uint16, len(c.Handlers))
	for i, h := range c.Handlers {
		offs[i] = uint16(len(b))
		b = h.appendTo(b)
	}
	return b, offs
}

func (c *CodeItem) Write(f *File) {
	f.Align(4)
	t := f.Tracker()
	t.GetNewOffsettable(f, c)
	f.WriteUShort(c.RegistersSize)
	f.WriteUShort(c.InsSize)
	f.WriteUShort(c.OutsSize)
	f.WriteUShort(uint16(len(c.Tries)))
	t.TryToWriteOffset(c.DebugInfoOff, f, false)
	f.WriteUInt(c.InsnsSize)
	for _, insn := range c.Insns {
		insn.Write(f)
	}
	if len(c.Tries) == 0 {
		return
	}
	if c.InsnsSize%2 != 0 {
		f.WriteUShort(0)
	}
	handlers, offs := c.encodeHandlers()
	for _, try := range c.Tries {
		f.WriteUInt(try.StartAddr)
		f.WriteUShort(try.InsnCount)
		f.WriteUShort(offs[try.HandlerIdx])
	}
	f.WriteBytes(handlers)
}

// Instructions returns the latest instruction list, taking it from the
// live view when one is registered.
func (c *CodeItem) Instructions() []*Instruction {
	if c.Live != nil {
		return c.Live.RequestLatestInstructions()
	}
	return c.Insns
}

func (c *CodeItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	if c.Live != nil {
		log.Debugf("using live instructions of %s for index update", c.Meta.MethodName)
	}
	for _, insn := range c.Instructions() {
		insn.IncrementIndex(kind, insertedIdx)
	}
	if kind != TypeIDIndex {
		return
	}
	for _, h := range c.Handlers {
		for i := range h.Handlers {
			incrementIf(&h.Handlers[i].TypeIdx, kind, TypeIDIndex, insertedIdx)
		}
	}
}
