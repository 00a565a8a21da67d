package rawdex

import "encoding/binary"

// Format is one of the fixed binary layouts of an instruction. Fields are
// decoded into the A, B and C slots of an Instruction in the order they
// are named by the layout.
type Format interface {
	Name() string
	// Size is the instruction size in 16-bit code units.
	Size() int
	// VRegCount is the number of register operands held in A, B and C.
	VRegCount() int
	// RegBits is the width of register operand n (0 for A).
	RegBits(n int) int
	decode(raw []byte, insn *Instruction)
	encode(insn *Instruction) []byte
}

// ContainsConst is implemented by formats holding a literal.
type ContainsConst interface {
	Const(insn *Instruction) int64
	SetConst(insn *Instruction, v int64)
	ConstBits() int
}

// ContainsPoolIndex is implemented by formats holding a table index.
type ContainsPoolIndex interface {
	PoolIndex(insn *Instruction) int
	SetPoolIndex(insn *Instruction, idx int)
}

// ContainsTarget is implemented by formats holding a relative code offset.
type ContainsTarget interface {
	Target(insn *Instruction) int64
	SetTarget(insn *Instruction, v int64)
}

// ContainsInvokeArgs is implemented by formats with extended argument
// registers.
type ContainsInvokeArgs interface {
	NeedsInvokeInfo() bool
}

type (
	constB  struct{}
	constC  struct{}
	poolB   struct{}
	poolC   struct{}
	targetA struct{}
	targetB struct{}
	targetC struct{}
)

func (constB) Const(i *Instruction) int64        { return i.VRegB }
func (constB) SetConst(i *Instruction, v int64)  { i.VRegB = v }
func (constC) Const(i *Instruction) int64        { return i.VRegC }
func (constC) SetConst(i *Instruction, v int64)  { i.VRegC = v }
func (poolB) PoolIndex(i *Instruction) int       { return int(i.VRegB) }
func (poolB) SetPoolIndex(i *Instruction, x int) { i.VRegB = int64(x) }
func (poolC) PoolIndex(i *Instruction) int       { return int(i.VRegC) }
func (poolC) SetPoolIndex(i *Instruction, x int) { i.VRegC = int64(x) }
func (targetA) Target(i *Instruction) int64      { return i.VRegA }
func (targetA) SetTarget(i *Instruction, v int64) {
	i.VRegA = v
}
func (targetB) Target(i *Instruction) int64 { return i.VRegB }
func (targetB) SetTarget(i *Instruction, v int64) {
	i.VRegB = v
}
func (targetC) Target(i *Instruction) int64 { return i.VRegC }
func (targetC) SetTarget(i *Instruction, v int64) {
	i.VRegC = v
}

var le = binary.LittleEndian

func s16(b []byte) int64 { return int64(int16(le.Uint16(b))) }
func u16(b []byte) int64 { return int64(le.Uint16(b)) }
func s32(b []byte) int64 { return int64(int32(le.Uint32(b))) }
func u32(b []byte) int64 { return int64(le.Uint32(b)) }

func nib(lo, hi int64) byte { return byte(lo&0xf) | byte(hi&0xf)<<4 }

func op(insn *Instruction) byte { return byte(insn.Info.Value) }

func units(b ...[]byte) []byte {
	var out []byte
	for _, p := range b {
		out = append(out, p...)
	}
	return out
}

func put16(v int64) []byte { return le.AppendUint16(nil, uint16(v)) }
func put32(v int64) []byte { return le.AppendUint32(nil, uint32(v)) }

// 10x: op

type format10x struct{}

func (format10x) Name() string                    { return "10x" }
func (format10x) Size() int                       { return 1 }
func (format10x) VRegCount() int                  { return 0 }
func (format10x) RegBits(int) int                 { return 0 }
func (format10x) decode([]byte, *Instruction)     {}
func (format10x) encode(insn *Instruction) []byte { return []byte{op(insn), 0} }

// 12x: op vA, vB

type format12x struct{}

func (format12x) Name() string    { return "12x" }
func (format12x) Size() int       { return 1 }
func (format12x) VRegCount() int  { return 2 }
func (format12x) RegBits(int) int { return 4 }
func (format12x) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] & 0xf)
	insn.VRegB = int64(raw[1] >> 4)
}
func (format12x) encode(insn *Instruction) []byte {
	return []byte{op(insn), nib(insn.VRegA, insn.VRegB)}
}

// 11n: op vA, #+B

type format11n struct{ constB }

func (format11n) Name() string    { return "11n" }
func (format11n) Size() int       { return 1 }
func (format11n) VRegCount() int  { return 1 }
func (format11n) RegBits(int) int { return 4 }
func (format11n) ConstBits() int  { return 4 }
func (format11n) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] & 0xf)
	insn.VRegB = int64(int8(raw[1]) >> 4)
}
func (format11n) encode(insn *Instruction) []byte {
	return []byte{op(insn), nib(insn.VRegA, insn.VRegB)}
}

// 11x: op vAA

type format11x struct{}

func (format11x) Name() string    { return "11x" }
func (format11x) Size() int       { return 1 }
func (format11x) VRegCount() int  { return 1 }
func (format11x) RegBits(int) int { return 8 }
func (format11x) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
}
func (format11x) encode(insn *Instruction) []byte {
	return []byte{op(insn), byte(insn.VRegA)}
}

// 10t: op +AA

type format10t struct{ targetA }

func (format10t) Name() string    { return "10t" }
func (format10t) Size() int       { return 1 }
func (format10t) VRegCount() int  { return 0 }
func (format10t) RegBits(int) int { return 0 }
func (format10t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(int8(raw[1]))
}
func (format10t) encode(insn *Instruction) []byte {
	return []byte{op(insn), byte(insn.VRegA)}
}

// 20t: op +AAAA

type format20t struct{ targetA }

func (format20t) Name() string    { return "20t" }
func (format20t) Size() int       { return 2 }
func (format20t) VRegCount() int  { return 0 }
func (format20t) RegBits(int) int { return 0 }
func (format20t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = s16(raw[2:])
}
func (format20t) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), 0}, put16(insn.VRegA))
}

// 22x: op vAA, vBBBB

type format22x struct{}

func (format22x) Name() string   { return "22x" }
func (format22x) Size() int      { return 2 }
func (format22x) VRegCount() int { return 2 }
func (format22x) RegBits(n int) int {
	if n == 0 {
		return 8
	}
	return 16
}
func (format22x) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = u16(raw[2:])
}
func (format22x) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB))
}

// 21t: op vAA, +BBBB

type format21t struct{ targetB }

func (format21t) Name() string    { return "21t" }
func (format21t) Size() int       { return 2 }
func (format21t) VRegCount() int  { return 1 }
func (format21t) RegBits(int) int { return 8 }
func (format21t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = s16(raw[2:])
}
func (format21t) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB))
}

// 21s: op vAA, #+BBBB

type format21s struct{ constB }

func (format21s) Name() string    { return "21s" }
func (format21s) Size() int       { return 2 }
func (format21s) VRegCount() int  { return 1 }
func (format21s) RegBits(int) int { return 8 }
func (format21s) ConstBits() int  { return 16 }
func (format21s) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = s16(raw[2:])
}
func (format21s) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB))
}

// 21h: op vAA, #+BBBB0000 (or BBBB000000000000)

type format21h struct{ constB }

func (format21h) Name() string    { return "21h" }
func (format21h) Size() int       { return 2 }
func (format21h) VRegCount() int  { return 1 }
func (format21h) RegBits(int) int { return 8 }
func (format21h) ConstBits() int  { return 16 }
func (format21h) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = s16(raw[2:])
}
func (format21h) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB))
}

// 21c: op vAA, kind@BBBB

type format21c struct{ poolB }

func (format21c) Name() string    { return "21c" }
func (format21c) Size() int       { return 2 }
func (format21c) VRegCount() int  { return 1 }
func (format21c) RegBits(int) int { return 8 }
func (format21c) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = u16(raw[2:])
}
func (format21c) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB))
}

// 23x: op vAA, vBB, vCC

type format23x struct{}

func (format23x) Name() string    { return "23x" }
func (format23x) Size() int       { return 2 }
func (format23x) VRegCount() int  { return 3 }
func (format23x) RegBits(int) int { return 8 }
func (format23x) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = int64(raw[2])
	insn.VRegC = int64(raw[3])
}
func (format23x) encode(insn *Instruction) []byte {
	return []byte{op(insn), byte(insn.VRegA), byte(insn.VRegB), byte(insn.VRegC)}
}

// 22b: op vAA, vBB, #+CC

type format22b struct{ constC }

func (format22b) Name() string    { return "22b" }
func (format22b) Size() int       { return 2 }
func (format22b) VRegCount() int  { return 2 }
func (format22b) RegBits(int) int { return 8 }
func (format22b) ConstBits() int  { return 8 }
func (format22b) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = int64(raw[2])
	insn.VRegC = int64(int8(raw[3]))
}
func (format22b) encode(insn *Instruction) []byte {
	return []byte{op(insn), byte(insn.VRegA), byte(insn.VRegB), byte(insn.VRegC)}
}

// 22t: op vA, vB, +CCCC

type format22t struct{ targetC }

func (format22t) Name() string    { return "22t" }
func (format22t) Size() int       { return 2 }
func (format22t) VRegCount() int  { return 2 }
func (format22t) RegBits(int) int { return 4 }
func (format22t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] & 0xf)
	insn.VRegB = int64(raw[1] >> 4)
	insn.VRegC = s16(raw[2:])
}
func (format22t) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), nib(insn.VRegA, insn.VRegB)}, put16(insn.VRegC))
}

// 22s: op vA, vB, #+CCCC

type format22s struct{ constC }

func (format22s) Name() string    { return "22s" }
func (format22s) Size() int       { return 2 }
func (format22s) VRegCount() int  { return 2 }
func (format22s) RegBits(int) int { return 4 }
func (format22s) ConstBits() int  { return 16 }
func (format22s) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] & 0xf)
	insn.VRegB = int64(raw[1] >> 4)
	insn.VRegC = s16(raw[2:])
}
func (format22s) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), nib(insn.VRegA, insn.VRegB)}, put16(insn.VRegC))
}

// 22c: op vA, vB, kind@CCCC

type format22c struct{ poolC }

func (format22c) Name() string    { return "22c" }
func (format22c) Size() int       { return 2 }
func (format22c) VRegCount() int  { return 2 }
func (format22c) RegBits(int) int { return 4 }
func (format22c) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] & 0xf)
	insn.VRegB = int64(raw[1] >> 4)
	insn.VRegC = u16(raw[2:])
}
func (format22c) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), nib(insn.VRegA, insn.VRegB)}, put16(insn.VRegC))
}

// 30t: op +AAAAAAAA

type format30t struct{ targetA }

func (format30t) Name() string    { return "30t" }
func (format30t) Size() int       { return 3 }
func (format30t) VRegCount() int  { return 0 }
func (format30t) RegBits(int) int { return 0 }
func (format30t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = s32(raw[2:])
}
func (format30t) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), 0}, put32(insn.VRegA))
}

// 32x: op vAAAA, vBBBB

type format32x struct{}

func (format32x) Name() string    { return "32x" }
func (format32x) Size() int       { return 3 }
func (format32x) VRegCount() int  { return 2 }
func (format32x) RegBits(int) int { return 16 }
func (format32x) decode(raw []byte, insn *Instruction) {
	insn.VRegA = u16(raw[2:])
	insn.VRegB = u16(raw[4:])
}
func (format32x) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), 0}, put16(insn.VRegA), put16(insn.VRegB))
}

// 31i: op vAA, #+BBBBBBBB

type format31i struct{ constB }

func (format31i) Name() string    { return "31i" }
func (format31i) Size() int       { return 3 }
func (format31i) VRegCount() int  { return 1 }
func (format31i) RegBits(int) int { return 8 }
func (format31i) ConstBits() int  { return 32 }
func (format31i) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = s32(raw[2:])
}
func (format31i) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put32(insn.VRegB))
}

// 31t: op vAA, +BBBBBBBB

type format31t struct{ targetB }

func (format31t) Name() string    { return "31t" }
func (format31t) Size() int       { return 3 }
func (format31t) VRegCount() int  { return 1 }
func (format31t) RegBits(int) int { return 8 }
func (format31t) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = s32(raw[2:])
}
func (format31t) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put32(insn.VRegB))
}

// 31c: op vAA, string@BBBBBBBB

type format31c struct{ poolB }

func (format31c) Name() string    { return "31c" }
func (format31c) Size() int       { return 3 }
func (format31c) VRegCount() int  { return 1 }
func (format31c) RegBits(int) int { return 8 }
func (format31c) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = u32(raw[2:])
}
func (format31c) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put32(insn.VRegB))
}

// 35c: op {vC, vD, vE, vF, vG}, kind@BBBB; A is the argument count.

type format35c struct{ poolB }

func (format35c) Name() string          { return "35c" }
func (format35c) Size() int             { return 3 }
func (format35c) VRegCount() int        { return 0 }
func (format35c) RegBits(int) int       { return 4 }
func (format35c) NeedsInvokeInfo() bool { return true }
func (format35c) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1] >> 4)
	insn.VRegB = u16(raw[2:])
	insn.VRegC = int64(raw[4] & 0xf)
	insn.Invoke = &InvokeInfo{
		VRegD: raw[4] >> 4,
		VRegE: raw[5] & 0xf,
		VRegF: raw[5] >> 4,
		VRegG: raw[1] & 0xf,
	}
}
func (format35c) encode(insn *Instruction) []byte {
	ii := insn.Invoke
	if ii == nil {
		ii = &InvokeInfo{}
	}
	return units(
		[]byte{op(insn), nib(int64(ii.VRegG), insn.VRegA)},
		put16(insn.VRegB),
		[]byte{nib(insn.VRegC, int64(ii.VRegD)), nib(int64(ii.VRegE), int64(ii.VRegF))},
	)
}

// 3rc: op {vCCCC .. vNNNN}, kind@BBBB; A is the argument count.

type format3rc struct{ poolB }

func (format3rc) Name() string    { return "3rc" }
func (format3rc) Size() int       { return 3 }
func (format3rc) VRegCount() int  { return 0 }
func (format3rc) RegBits(int) int { return 16 }
func (format3rc) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = u16(raw[2:])
	insn.VRegC = u16(raw[4:])
}
func (format3rc) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, put16(insn.VRegB), put16(insn.VRegC))
}

// 51l: op vAA, #+BBBBBBBBBBBBBBBB

type format51l struct{ constB }

func (format51l) Name() string    { return "51l" }
func (format51l) Size() int       { return 5 }
func (format51l) VRegCount() int  { return 1 }
func (format51l) RegBits(int) int { return 8 }
func (format51l) ConstBits() int  { return 64 }
func (format51l) decode(raw []byte, insn *Instruction) {
	insn.VRegA = int64(raw[1])
	insn.VRegB = int64(le.Uint64(raw[2:]))
}
func (format51l) encode(insn *Instruction) []byte {
	return units([]byte{op(insn), byte(insn.VRegA)}, le.AppendUint64(nil, uint64(insn.VRegB)))
}
