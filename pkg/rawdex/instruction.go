package rawdex

import (
	"fmt"
	"strings"
)

// Payload types of the raw data blocks that live in the instruction stream.
const (
	RawPackedSwitchData  = 1
	RawSparseSwitchData  = 2
	RawFillArrayDataData = 3
)

// InvokeInfo holds the extra argument registers of a 35c instruction.
type InvokeInfo struct {
	VRegD uint8
	VRegE uint8
	VRegF uint8
	VRegG uint8
}

// Instruction is one decoded bytecode instruction, or a raw data payload.
type Instruction struct {
	Info *OpcodeInfo

	// JustRaw payloads are written back from raw. Their size is RawSize
	// code units.
	JustRaw bool
	RawType int
	RawSize int
	raw     []byte

	VRegA int64
	VRegB int64
	VRegC int64

	Invoke *InvokeInfo
}

// NewInstruction returns an instruction with zeroed operands.
func NewInstruction(o Opcode) *Instruction {
	insn := &Instruction{Info: o.Info()}
	if _, ok := insn.Info.Format.(ContainsInvokeArgs); ok {
		insn.Invoke = &InvokeInfo{}
	}
	return insn
}

// NewRawInstruction wraps a data payload.
func NewRawInstruction(rawType int, raw []byte) *Instruction {
	return &Instruction{
		Info:    OpNop.Info(),
		JustRaw: true,
		RawType: rawType,
		RawSize: len(raw) / 2,
		raw:     raw,
	}
}

func (insn *Instruction) Opcode() Opcode { return insn.Info.Opcode }

// RawBytes returns the bytes of a payload. Callers may edit them in place.
func (insn *Instruction) RawBytes() []byte { return insn.raw }

// SetRawBytes replaces the payload and its size.
func (insn *Instruction) SetRawBytes(b []byte) {
	insn.raw = b
	insn.RawSize = len(b) / 2
}

func (insn *Instruction) Clone() *Instruction {
	c := *insn
	if insn.raw != nil {
		c.raw = append([]byte(nil), insn.raw...)
	}
	if insn.Invoke != nil {
		ii := *insn.Invoke
		c.Invoke = &ii
	}
	return &c
}

// Size returns the instruction size in code units.
func (insn *Instruction) Size() int {
	if insn.JustRaw {
		return insn.RawSize
	}
	return insn.Info.Format.Size()
}

// payloadSize returns the size in code units of the payload starting at b.
func payloadSize(rawType int, b []byte) int {
	switch rawType {
	case RawPackedSwitchData:
		return int(le.Uint16(b[2:]))*2 + 4
	case RawSparseSwitchData:
		return int(le.Uint16(b[2:]))*4 + 2
	case RawFillArrayDataData:
		width := int64(le.Uint16(b[2:]))
		count := int64(le.Uint32(b[4:]))
		return int((count*width+1)/2 + 4)
	}
	FatalWrapf(ErrUnknownDataBlock, "payload ident %d", rawType)
	return 0
}

func (insn *Instruction) Read(f *File) {
	start := f.Pos()
	first := f.ReadUShort()
	opcode, upper := byte(first), byte(first>>8)
	if opcode == 0 && upper != 0 {
		hdr := append(le.AppendUint16(nil, first), f.ReadBytes(2)...)
		if upper == RawFillArrayDataData {
			hdr = append(hdr, f.ReadBytes(4)...)
		}
		insn.Info = OpNop.Info()
		insn.JustRaw = true
		insn.RawType = int(upper)
		insn.RawSize = payloadSize(insn.RawType, hdr)
		f.Seek(start)
		insn.raw = f.ReadBytes(insn.RawSize * 2)
		return
	}
	insn.Info = Opcode(opcode).Info()
	f.Seek(start)
	raw := f.ReadBytes(insn.Info.Format.Size() * 2)
	insn.Info.Format.decode(raw, insn)
}

func (insn *Instruction) Write(f *File) {
	if insn.JustRaw {
		f.WriteBytes(insn.raw)
		return
	}
	f.WriteBytes(insn.Info.Format.encode(insn))
}

// PoolIndexKind returns the table referenced by the instruction, if any.
func (insn *Instruction) PoolIndexKind() PoolIndexKind {
	if insn.JustRaw {
		return PoolNone
	}
	if _, ok := insn.Info.Format.(ContainsPoolIndex); !ok {
		return PoolNone
	}
	return insn.Opcode().PoolIndexKind()
}

func (insn *Instruction) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	want, ok := insn.PoolIndexKind().IndexKind()
	if !ok || want != kind {
		return
	}
	cpi := insn.Info.Format.(ContainsPoolIndex)
	if idx := cpi.PoolIndex(insn); idx >= insertedIdx {
		cpi.SetPoolIndex(insn, idx+1)
	}
}

func (insn *Instruction) String() string {
	if insn.JustRaw {
		switch insn.RawType {
		case RawPackedSwitchData:
			return "PACKED SWITCH DATA"
		case RawSparseSwitchData:
			return "SPARSE SWITCH DATA"
		case RawFillArrayDataData:
			return "FILL ARRAY DATA DATA"
		}
		return "RAW DATA"
	}
	var sb strings.Builder
	sb.WriteString(insn.Info.Name)
	format := insn.Info.Format

	if insn.Invoke != nil {
		n := min(max(int(insn.VRegA), 0), 5)
		regs := []int64{insn.VRegC, int64(insn.Invoke.VRegD), int64(insn.Invoke.VRegE),
			int64(insn.Invoke.VRegF), int64(insn.Invoke.VRegG)}
		args := make([]string, n)
		for i := range args {
			args[i] = fmt.Sprintf("v%d", regs[i])
		}
		fmt.Fprintf(&sb, "(%s) meth@%d", strings.Join(args, ", "), format.(ContainsPoolIndex).PoolIndex(insn))
		return sb.String()
	}

	if n := format.VRegCount(); n > 0 {
		regs := []int64{insn.VRegA, insn.VRegB, insn.VRegC}[:n]
		args := make([]string, n)
		for i, r := range regs {
			args[i] = fmt.Sprintf("v%d", r)
		}
		sb.WriteString(" " + strings.Join(args, ", "))
	}
	if c, ok := format.(ContainsConst); ok {
		fmt.Fprintf(&sb, " #%d", c.Const(insn))
	}
	if p, ok := format.(ContainsPoolIndex); ok {
		fmt.Fprintf(&sb, " pool@%d", p.PoolIndex(insn))
	}
	if t, ok := format.(ContainsTarget); ok {
		fmt.Fprintf(&sb, " +%d", t.Target(insn))
	}
	return sb.String()
}
