// Package dextest builds small but complete DEX files for tests.
package dextest

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/adler32"
	"slices"
	"sort"
	"strings"
)

// Proto is a method signature given by descriptors.
type Proto struct {
	Return string
	Params []string
}

func (p Proto) shorty() string {
	var sb strings.Builder
	for _, d := range append([]string{p.Return}, p.Params...) {
		if d[0] == '[' {
			sb.WriteByte('L')
		} else {
			sb.WriteByte(d[0])
		}
	}
	return sb.String()
}

// Try is a try block with a single catch-all handler.
type Try struct {
	Start    uint32
	Count    uint16
	CatchAll uint32
}

// Method is a method of the built class. Insns is nil for abstract methods.
type Method struct {
	Name      string
	Proto     Proto
	Static    bool
	Virtual   bool
	Registers uint16
	Ins       uint16
	Outs      uint16
	Insns     []uint16
	Tries     []Try
}

// Field is a field of the built class. Value is the initial value of a
// static String field; empty means null.
type Field struct {
	Name   string
	Type   string
	Static bool
	Value  string
}

// MethodRef is a method of another class referenced by code.
type MethodRef struct {
	Class string
	Name  string
	Proto Proto
}

// Builder describes one class.
type Builder struct {
	Class   string
	Super   string
	Methods []Method
	Fields  []Field
	// Extra entries that code may reference by index.
	Strings    []string
	Types      []string
	MethodRefs []MethodRef
	// DebugInfo gives every method with code a small debug_info_item.
	DebugInfo bool
}

// Map item types, in the order the sections are laid out.
const (
	typeHeader          = 0x0000
	typeStringID        = 0x0001
	typeTypeID          = 0x0002
	typeProtoID         = 0x0003
	typeFieldID         = 0x0004
	typeMethodID        = 0x0005
	typeClassDef        = 0x0006
	typeMapList         = 0x1000
	typeTypeList        = 0x1001
	typeClassData       = 0x2000
	typeCode            = 0x2001
	typeStringData      = 0x2002
	typeDebugInfo       = 0x2003
	typeEncodedArray    = 0x2005
	accStatic           = 0x8
	valueString         = 0x17
	valueNull           = 0x1e
	noIndex             = 0xffffffff
	headerSize          = 0x70
	endianTag           = 0x12345678
	checksumOffset      = 8
	signatureOffset     = 12
	fileSizeOffset      = 32
	headerDataSizeField = 104
)

type writer struct {
	b []byte
}

func (w *writer) u8(v byte)    { w.b = append(w.b, v) }
func (w *writer) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *writer) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *writer) uleb(v uint32) {
	w.b = binary.AppendUvarint(w.b, uint64(v))
}
func (w *writer) align(n int) {
	for len(w.b)%n != 0 {
		w.b = append(w.b, 0)
	}
}
func (w *writer) pos() uint32 { return uint32(len(w.b)) }
func (w *writer) put32(at, v uint32) {
	binary.LittleEndian.PutUint32(w.b[at:], v)
}

type section struct {
	typ  uint16
	size uint32
	off  uint32
}

type methodID struct {
	class, proto int
	name         int
}

type fieldID struct {
	class, typ, name int
}

type tables struct {
	super    string
	strs     []string
	strIdx   map[string]int
	types    []string
	typeIdx  map[string]int
	protos   []Proto
	protoIdx map[string]int
	mids     []methodID
	midIdx   map[methodID]int
	fids     []fieldID
	fidIdx   map[fieldID]int
}

func protoKey(p Proto) string {
	return p.Return + "(" + strings.Join(p.Params, "") + ")"
}

func (b *Builder) tables() *tables {
	super := b.Super
	if super == "" {
		super = "Ljava/lang/Object;"
	}

	// strings and types
	strSet := map[string]bool{}
	typeSet := map[string]bool{}
	addType := func(d string) { typeSet[d] = true; strSet[d] = true }
	addProto := func(p Proto) {
		strSet[p.shorty()] = true
		addType(p.Return)
		for _, d := range p.Params {
			addType(d)
		}
	}
	addType(b.Class)
	addType(super)
	for _, m := range b.Methods {
		strSet[m.Name] = true
		addProto(m.Proto)
	}
	for _, f := range b.Fields {
		strSet[f.Name] = true
		addType(f.Type)
		if f.Value != "" {
			strSet[f.Value] = true
		}
	}
	for _, r := range b.MethodRefs {
		addType(r.Class)
		strSet[r.Name] = true
		addProto(r.Proto)
	}
	for _, s := range b.Strings {
		strSet[s] = true
	}
	for _, t := range b.Types {
		addType(t)
	}
	strs := sortedKeys(strSet)
	strIdx := indexOf(strs)
	types := sortedKeys(typeSet)
	typeIdx := indexOf(types)

	// protos, sorted by return type then parameters
	protoSet := map[string]Proto{}
	for _, m := range b.Methods {
		protoSet[protoKey(m.Proto)] = m.Proto
	}
	for _, r := range b.MethodRefs {
		protoSet[protoKey(r.Proto)] = r.Proto
	}
	protos := make([]Proto, 0, len(protoSet))
	for _, p := range protoSet {
		protos = append(protos, p)
	}
	sort.Slice(protos, func(i, j int) bool {
		pi, pj := protos[i], protos[j]
		if ri, rj := typeIdx[pi.Return], typeIdx[pj.Return]; ri != rj {
			return ri < rj
		}
		for k := 0; k < len(pi.Params) && k < len(pj.Params); k++ {
			if a, c := typeIdx[pi.Params[k]], typeIdx[pj.Params[k]]; a != c {
				return a < c
			}
		}
		return len(pi.Params) < len(pj.Params)
	})
	protoIdx := map[string]int{}
	for i, p := range protos {
		protoIdx[protoKey(p)] = i
	}

	// method and field ids
	var mids []methodID
	seenMethod := map[methodID]bool{}
	addMethod := func(m methodID) {
		if !seenMethod[m] {
			seenMethod[m] = true
			mids = append(mids, m)
		}
	}
	for _, m := range b.Methods {
		addMethod(methodID{typeIdx[b.Class], protoIdx[protoKey(m.Proto)], strIdx[m.Name]})
	}
	for _, r := range b.MethodRefs {
		addMethod(methodID{typeIdx[r.Class], protoIdx[protoKey(r.Proto)], strIdx[r.Name]})
	}
	sort.Slice(mids, func(i, j int) bool {
		a, c := mids[i], mids[j]
		if a.class != c.class {
			return a.class < c.class
		}
		if a.name != c.name {
			return a.name < c.name
		}
		return a.proto < c.proto
	})
	midIdx := map[methodID]int{}
	for i, m := range mids {
		midIdx[m] = i
	}
	fids := make([]fieldID, len(b.Fields))
	for i, f := range b.Fields {
		fids[i] = fieldID{typeIdx[b.Class], typeIdx[f.Type], strIdx[f.Name]}
	}
	sort.Slice(fids, func(i, j int) bool {
		a, c := fids[i], fids[j]
		if a.name != c.name {
			return a.name < c.name
		}
		return a.typ < c.typ
	})
	fidIdx := map[fieldID]int{}
	for i, f := range fids {
		fidIdx[f] = i
	}
	return &tables{super, strs, strIdx, types, typeIdx, protos, protoIdx, mids, midIdx, fids, fidIdx}
}

// StringIdx returns the index the string s gets in the built file.
func (b *Builder) StringIdx(s string) int { return b.tables().strIdx[s] }

// TypeIdx returns the index of the type descriptor d.
func (b *Builder) TypeIdx(d string) int { return b.tables().typeIdx[d] }

// MethodIdx returns the index of the method name of class. Overloads are
// not told apart.
func (b *Builder) MethodIdx(class, name string) int {
	tb := b.tables()
	for i, m := range tb.mids {
		if m.class == tb.typeIdx[class] && m.name == tb.strIdx[name] {
			return i
		}
	}
	return -1
}

// FieldIdx returns the index of the field name of the built class.
func (b *Builder) FieldIdx(name string) int {
	tb := b.tables()
	for i, f := range tb.fids {
		if f.name == tb.strIdx[name] {
			return i
		}
	}
	return -1
}

// Build returns the encoded file.
func (b *Builder) Build() []byte {
	tb := b.tables()
	super := tb.super
	strs, strIdx := tb.strs, tb.strIdx
	types, typeIdx := tb.types, tb.typeIdx
	protos, protoIdx := tb.protos, tb.protoIdx
	mids, midIdx := tb.mids, tb.midIdx
	fids, fidIdx := tb.fids, tb.fidIdx

	w := &writer{b: make([]byte, headerSize)}
	var sections []section
	sections = append(sections, section{typeHeader, 1, 0})

	// fixed size id tables; positions of references are patched later
	stringIDsOff := w.pos()
	stringIDPos := make([]uint32, len(strs))
	for i := range strs {
		stringIDPos[i] = w.pos()
		w.u32(0)
	}
	sections = append(sections, section{typeStringID, uint32(len(strs)), stringIDsOff})

	typeIDsOff := w.pos()
	for _, t := range types {
		w.u32(uint32(strIdx[t]))
	}
	sections = append(sections, section{typeTypeID, uint32(len(types)), typeIDsOff})

	protoIDsOff := w.pos()
	protoParamPos := make([]uint32, len(protos))
	for i, p := range protos {
		w.u32(uint32(strIdx[p.shorty()]))
		w.u32(uint32(typeIdx[p.Return]))
		protoParamPos[i] = w.pos()
		w.u32(0)
	}
	sections = append(sections, section{typeProtoID, uint32(len(protos)), protoIDsOff})

	var fieldIDsOff uint32
	if len(fids) > 0 {
		fieldIDsOff = w.pos()
		for _, f := range fids {
			w.u16(uint16(f.class))
			w.u16(uint16(f.typ))
			w.u32(uint32(f.name))
		}
		sections = append(sections, section{typeFieldID, uint32(len(fids)), fieldIDsOff})
	}

	methodIDsOff := w.pos()
	for _, m := range mids {
		w.u16(uint16(m.class))
		w.u16(uint16(m.proto))
		w.u32(uint32(m.name))
	}
	sections = append(sections, section{typeMethodID, uint32(len(mids)), methodIDsOff})

	classDefsOff := w.pos()
	w.u32(uint32(typeIdx[b.Class]))
	w.u32(0x1) // public
	w.u32(uint32(typeIdx[super]))
	w.u32(0)       // interfaces
	w.u32(noIndex) // source file
	w.u32(0)       // annotations
	classDataPos := w.pos()
	w.u32(0)
	staticValuesPos := w.pos()
	w.u32(0)
	sections = append(sections, section{typeClassDef, 1, classDefsOff})

	// data
	w.align(4)
	dataOff := w.pos()

	codeOff := make([]uint32, len(b.Methods))
	debugPos := make([]uint32, len(b.Methods))
	nCode := 0
	firstCode := uint32(0)
	for i, m := range b.Methods {
		if m.Insns == nil {
			continue
		}
		w.align(4)
		if nCode == 0 {
			firstCode = w.pos()
		}
		nCode++
		codeOff[i] = w.pos()
		w.u16(m.Registers)
		w.u16(m.Ins)
		w.u16(m.Outs)
		w.u16(uint16(len(m.Tries)))
		debugPos[i] = w.pos()
		w.u32(0)
		w.u32(uint32(len(m.Insns)))
		for _, u := range m.Insns {
			w.u16(u)
		}
		if len(m.Tries) == 0 {
			continue
		}
		if len(m.Insns)%2 != 0 {
			w.u16(0)
		}
		// one catch-all handler per try
		var handlers writer
		handlers.uleb(uint32(len(m.Tries)))
		offs := make([]uint16, len(m.Tries))
		for k, t := range m.Tries {
			offs[k] = uint16(handlers.pos())
			handlers.b = appendSLEB(handlers.b, 0)
			handlers.uleb(t.CatchAll)
		}
		for k, t := range m.Tries {
			w.u32(t.Start)
			w.u16(t.Count)
			w.u16(offs[k])
		}
		w.b = append(w.b, handlers.b...)
	}
	if nCode > 0 {
		sections = append(sections, section{typeCode, uint32(nCode), firstCode})
	}

	// type lists, one per proto with parameters
	nLists := 0
	firstList := uint32(0)
	for i, p := range protos {
		if len(p.Params) == 0 {
			continue
		}
		w.align(4)
		if nLists == 0 {
			firstList = w.pos()
		}
		nLists++
		w.put32(protoParamPos[i], w.pos())
		w.u32(uint32(len(p.Params)))
		for _, d := range p.Params {
			w.u16(uint16(typeIdx[d]))
		}
	}
	if nLists > 0 {
		sections = append(sections, section{typeTypeList, uint32(nLists), firstList})
	}

	stringDataOff := w.pos()
	for i, s := range strs {
		w.put32(stringIDPos[i], w.pos())
		w.uleb(uint32(len(s)))
		w.b = append(w.b, s...)
		w.u8(0)
	}
	sections = append(sections, section{typeStringData, uint32(len(strs)), stringDataOff})

	if b.DebugInfo && nCode > 0 {
		debugOff := w.pos()
		for i, m := range b.Methods {
			if m.Insns == nil {
				continue
			}
			w.put32(debugPos[i], w.pos())
			w.uleb(1) // line_start
			w.uleb(0) // parameters_size
			w.u8(0)   // DBG_END_SEQUENCE
		}
		sections = append(sections, section{typeDebugInfo, uint32(nCode), debugOff})
	}

	// class data
	w.put32(classDataPos, w.pos())
	sections = append(sections, section{typeClassData, 1, w.pos()})
	var static, instance []Field
	for _, f := range b.Fields {
		if f.Static {
			static = append(static, f)
		} else {
			instance = append(instance, f)
		}
	}
	fieldIndex := func(f Field) int { return fidIdx[fieldID{typeIdx[b.Class], typeIdx[f.Type], strIdx[f.Name]}] }
	sortFields := func(list []Field) {
		sort.Slice(list, func(i, j int) bool { return fieldIndex(list[i]) < fieldIndex(list[j]) })
	}
	sortFields(static)
	sortFields(instance)
	var direct, virtual []int
	for i, m := range b.Methods {
		if m.Virtual {
			virtual = append(virtual, i)
		} else {
			direct = append(direct, i)
		}
	}
	methodIndex := func(i int) int {
		m := b.Methods[i]
		return midIdx[methodID{typeIdx[b.Class], protoIdx[protoKey(m.Proto)], strIdx[m.Name]}]
	}
	sortMethods := func(list []int) {
		sort.Slice(list, func(i, j int) bool { return methodIndex(list[i]) < methodIndex(list[j]) })
	}
	sortMethods(direct)
	sortMethods(virtual)
	w.uleb(uint32(len(static)))
	w.uleb(uint32(len(instance)))
	w.uleb(uint32(len(direct)))
	w.uleb(uint32(len(virtual)))
	for _, list := range [][]Field{static, instance} {
		prev := 0
		for _, f := range list {
			idx := fieldIndex(f)
			w.uleb(uint32(idx - prev))
			prev = idx
			flags := uint32(0x1)
			if f.Static {
				flags |= accStatic
			}
			w.uleb(flags)
		}
	}
	for _, list := range [][]int{direct, virtual} {
		prev := 0
		for _, i := range list {
			idx := methodIndex(i)
			w.uleb(uint32(idx - prev))
			prev = idx
			m := b.Methods[i]
			flags := uint32(0x1)
			if m.Static {
				flags |= accStatic
			}
			if m.Insns == nil {
				flags |= 0x400 // abstract
			}
			w.uleb(flags)
			w.uleb(codeOff[i])
		}
	}

	if len(static) > 0 {
		w.put32(staticValuesPos, w.pos())
		sections = append(sections, section{typeEncodedArray, 1, w.pos()})
		w.uleb(uint32(len(static)))
		for _, f := range static {
			if f.Value == "" {
				w.u8(valueNull)
				continue
			}
			idx := uint32(strIdx[f.Value])
			width := 1
			for idx>>(8*width) != 0 {
				width++
			}
			w.u8(byte(width-1)<<5 | valueString)
			for k := 0; k < width; k++ {
				w.u8(byte(idx >> (8 * k)))
			}
		}
	}

	w.align(4)
	mapOff := w.pos()
	sections = append(sections, section{typeMapList, 1, mapOff})
	w.u32(uint32(len(sections)))
	for _, s := range sections {
		w.u16(s.typ)
		w.u16(0)
		w.u32(s.size)
		w.u32(s.off)
	}

	// header
	h := w.b[:headerSize]
	copy(h, "dex\n035\x00")
	le := binary.LittleEndian
	le.PutUint32(h[fileSizeOffset:], w.pos())
	le.PutUint32(h[36:], headerSize)
	le.PutUint32(h[40:], endianTag)
	le.PutUint32(h[52:], mapOff)
	le.PutUint32(h[56:], uint32(len(strs)))
	le.PutUint32(h[60:], stringIDsOff)
	le.PutUint32(h[64:], uint32(len(types)))
	le.PutUint32(h[68:], typeIDsOff)
	le.PutUint32(h[72:], uint32(len(protos)))
	le.PutUint32(h[76:], protoIDsOff)
	le.PutUint32(h[80:], uint32(len(fids)))
	le.PutUint32(h[84:], fieldIDsOff)
	le.PutUint32(h[88:], uint32(len(mids)))
	le.PutUint32(h[92:], methodIDsOff)
	le.PutUint32(h[96:], 1)
	le.PutUint32(h[100:], classDefsOff)
	le.PutUint32(h[headerDataSizeField:], w.pos()-dataOff)
	le.PutUint32(h[108:], dataOff)
	Fixup(w.b)
	return w.b
}

// Fixup recomputes the signature and checksum of data in place.
func Fixup(data []byte) {
	sig := sha1.Sum(data[fileSizeOffset:])
	copy(data[signatureOffset:], sig[:])
	binary.LittleEndian.PutUint32(data[checksumOffset:], adler32.Checksum(data[signatureOffset:]))
}

func appendSLEB(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func indexOf(list []string) map[string]int {
	out := make(map[string]int, len(list))
	for i, s := range list {
		out[s] = i
	}
	return out
}
