package program

import (
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/apex/log"
	"github.com/blacktop/dexfuzz/pkg/rawdex"
)

// maxTableSize is the number of entries a 16-bit index can address.
const maxTableSize = 65536

// IdCreator finds entries of the shared tables of a file, creating them
// in sorted position when they do not exist yet. Every creation renumbers
// the references that follow the new entry.
type IdCreator struct {
	dex *rawdex.RawDexFile
}

func NewIdCreator(dex *rawdex.RawDexFile) *IdCreator {
	return &IdCreator{dex: dex}
}

// splitSignature splits a method signature such as "(I[JLjava/lang/String;)V"
// into its parameter descriptors and return descriptor.
func splitSignature(sig string) ([]string, string) {
	end := strings.IndexByte(sig, ')')
	if !strings.HasPrefix(sig, "(") || end < 0 {
		rawdex.Fatalf("invalid signature %q", sig)
	}
	var params []string
	p := sig[1:end]
	for i := 0; i < len(p); {
		start := i
		for i < len(p) && p[i] == '[' {
			i++
		}
		if i == len(p) {
			rawdex.Fatalf("array with no element type in signature %q", sig)
		}
		if p[i] == 'L' {
			semi := strings.IndexByte(p[i:], ';')
			if semi < 0 {
				rawdex.Fatalf("class with no ; in signature %q", sig)
			}
			i += semi
		}
		i++
		params = append(params, p[start:i])
	}
	return params, sig[end+1:]
}

func shortyChar(desc string) byte {
	if desc == "" {
		return 'V'
	}
	if desc[0] == '[' {
		return 'L'
	}
	return desc[0]
}

// signatureToShorty returns the shorty of a method signature.
func signatureToShorty(sig string) string {
	params, ret := splitSignature(sig)
	var sb strings.Builder
	sb.WriteByte(shortyChar(ret))
	for _, p := range params {
		sb.WriteByte(shortyChar(p))
	}
	return sb.String()
}

func (ic *IdCreator) findString(s string) int {
	for i, sd := range ic.dex.StringDatas {
		if sd.String() == s {
			return i
		}
	}
	return -1
}

// compareUTF16 orders strings by their UTF-16 code units, which is how the
// string table is sorted.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

func (ic *IdCreator) stringInsertionPoint(s string) int {
	for i, sd := range ic.dex.StringDatas {
		if sd.Size() > 0 && compareUTF16(sd.String(), s) >= 0 {
			return i
		}
	}
	return len(ic.dex.StringDatas)
}

// FindOrCreateString returns the string id index of s.
func (ic *IdCreator) FindOrCreateString(s string) int {
	if idx := ic.findString(s); idx != -1 {
		return idx
	}
	return ic.createString(s)
}

func (ic *IdCreator) createString(s string) int {
	d := ic.dex
	t := d.Tracker()
	if len(d.StringIDs) != len(d.StringDatas) {
		rawdex.Fatalf("corrupted file: %d string ids, %d string data items", len(d.StringIDs), len(d.StringDatas))
	}

	idx := ic.stringInsertionPoint(s)
	data := rawdex.NewStringDataItem(s)
	d.StringDatas = slices.Insert(d.StringDatas, idx, data)
	var dataHandle rawdex.Handle
	if idx == 0 {
		dataHandle = t.InsertNewOffsettableAsFirstOfType(data, d)
	} else {
		dataHandle = t.InsertNewOffsettableAfter(data, d.StringDatas[idx-1])
	}

	id := &rawdex.StringIDItem{StringDataOff: t.NewOffset()}
	id.StringDataOff.PointToNew(dataHandle)
	d.StringIDs = slices.Insert(d.StringIDs, idx, id)
	if idx == 0 {
		t.InsertNewOffsettableAsFirstOfType(id, d)
	} else {
		t.InsertNewOffsettableAfter(id, d.StringIDs[idx-1])
	}

	log.Infof("created string id for %q, index 0x%04x", s, idx)
	d.IncrementIndex(rawdex.StringIDIndex, idx)
	return idx
}

func (ic *IdCreator) findTypeID(desc string) int {
	str := ic.findString(desc)
	if str == -1 {
		return -1
	}
	for i, ti := range ic.dex.TypeIDs {
		if int(ti.DescriptorIdx) == str {
			return i
		}
	}
	return -1
}

// FindOrCreateTypeID returns the type id index of the descriptor desc,
// such as "Ljava/lang/System;".
func (ic *IdCreator) FindOrCreateTypeID(desc string) int {
	if idx := ic.findTypeID(desc); idx != -1 {
		return idx
	}
	return ic.createTypeID(desc)
}

func (ic *IdCreator) createTypeID(desc string) int {
	d := ic.dex
	if len(d.TypeIDs) >= maxTableSize {
		rawdex.Fatalf("too many types for the file")
	}
	str := ic.FindOrCreateString(desc)
	ti := &rawdex.TypeIDItem{DescriptorIdx: uint32(str)}

	idx := len(d.TypeIDs)
	for i, other := range d.TypeIDs {
		if str < int(other.DescriptorIdx) {
			idx = i
			break
		}
	}
	d.TypeIDs = slices.Insert(d.TypeIDs, idx, ti)
	if idx == 0 {
		d.Tracker().InsertNewOffsettableAsFirstOfType(ti, d)
	} else {
		d.Tracker().InsertNewOffsettableAfter(ti, d.TypeIDs[idx-1])
	}

	log.Infof("created type id for %s, index 0x%04x", desc, idx)
	d.IncrementIndex(rawdex.TypeIDIndex, idx)
	return idx
}

func (ic *IdCreator) typeIDList(params []string) []uint16 {
	out := make([]uint16, len(params))
	for i, p := range params {
		idx := ic.findTypeID(p)
		if idx == -1 {
			return nil
		}
		out[i] = uint16(idx)
	}
	return out
}

func (ic *IdCreator) findTypeList(params []string) *rawdex.TypeList {
	ids := ic.typeIDList(params)
	if ids == nil {
		return nil
	}
	want := &rawdex.TypeList{List: ids}
	for _, tl := range ic.dex.TypeLists {
		if tl.Equal(want) {
			return tl
		}
	}
	return nil
}

// FindOrCreateTypeList returns the type list holding params.
func (ic *IdCreator) FindOrCreateTypeList(params []string) *rawdex.TypeList {
	if tl := ic.findTypeList(params); tl != nil {
		return tl
	}
	return ic.createTypeList(params)
}

func (ic *IdCreator) createTypeList(params []string) *rawdex.TypeList {
	d := ic.dex
	// every type must exist before any index is taken, creating one can
	// move the others
	for _, p := range params {
		ic.FindOrCreateTypeID(p)
	}
	tl := &rawdex.TypeList{List: make([]uint16, len(params))}
	for i, p := range params {
		tl.List[i] = uint16(ic.FindOrCreateTypeID(p))
	}

	if len(d.TypeLists) == 0 {
		d.Tracker().InsertNewOffsettableAsFirstEverTypeList(tl, d)
	} else {
		d.Tracker().InsertNewOffsettableAfter(tl, d.TypeLists[len(d.TypeLists)-1])
	}
	d.TypeLists = append(d.TypeLists, tl)
	return tl
}

func (ic *IdCreator) findProtoID(sig string) int {
	params, ret := splitSignature(sig)
	shorty := ic.findString(signatureToShorty(sig))
	if shorty == -1 {
		return -1
	}
	retIdx := ic.findTypeID(ret)
	if retIdx == -1 {
		return -1
	}
	var tl *rawdex.TypeList
	if len(params) > 0 {
		if tl = ic.findTypeList(params); tl == nil {
			return -1
		}
	}
	for i, p := range ic.dex.ProtoIDs {
		if int(p.ShortyIdx) != shorty || int(p.ReturnTypeIdx) != retIdx {
			continue
		}
		if tl == nil && !p.ParametersOff.PointsToSomething() {
			return i
		}
		if tl != nil && p.ParametersOff.PointedToItem() == tl {
			return i
		}
	}
	return -1
}

// FindOrCreateProto returns the proto id index of a signature such as
// "(Ljava/lang/Object;ILjava/lang/Object;II)V".
func (ic *IdCreator) FindOrCreateProto(sig string) int {
	if idx := ic.findProtoID(sig); idx != -1 {
		return idx
	}
	return ic.createProtoID(sig)
}

func (ic *IdCreator) createProtoID(sig string) int {
	d := ic.dex
	t := d.Tracker()
	if len(d.ProtoIDs) >= maxTableSize {
		rawdex.Fatalf("too many protos for the file")
	}
	params, ret := splitSignature(sig)

	var tl *rawdex.TypeList
	if len(params) > 0 {
		tl = ic.FindOrCreateTypeList(params)
	}
	retIdx := ic.FindOrCreateTypeID(ret)
	shortyIdx := ic.FindOrCreateString(signatureToShorty(sig))

	proto := &rawdex.ProtoIDItem{
		ShortyIdx:     uint32(shortyIdx),
		ReturnTypeIdx: uint32(retIdx),
		ParametersOff: t.NewOffset(),
	}
	if tl != nil {
		proto.ParametersOff.PointToNew(t.GetOffsettableForItem(tl))
	}

	idx := ic.protoInsertionPoint(retIdx, tl)
	d.ProtoIDs = slices.Insert(d.ProtoIDs, idx, proto)
	if idx == 0 {
		t.InsertNewOffsettableAsFirstOfType(proto, d)
	} else {
		t.InsertNewOffsettableAfter(proto, d.ProtoIDs[idx-1])
	}

	log.Infof("created proto id for %s, index 0x%04x", sig, idx)
	d.IncrementIndex(rawdex.ProtoIDIndex, idx)
	return idx
}

// protoInsertionPoint orders protos by return type, then by parameters
// with the parameterless proto first.
func (ic *IdCreator) protoInsertionPoint(retIdx int, tl *rawdex.TypeList) int {
	for i, p := range ic.dex.ProtoIDs {
		if retIdx < int(p.ReturnTypeIdx) {
			return i
		}
		if retIdx != int(p.ReturnTypeIdx) {
			continue
		}
		if tl == nil {
			return i
		}
		if other, ok := p.ParametersOff.PointedToItem().(*rawdex.TypeList); ok && tl.ComesBefore(other) {
			return i
		}
	}
	return len(ic.dex.ProtoIDs)
}

func (ic *IdCreator) findFieldID(class, typ, name string) int {
	classIdx, typeIdx, nameIdx := ic.findTypeID(class), ic.findTypeID(typ), ic.findString(name)
	if classIdx == -1 || typeIdx == -1 || nameIdx == -1 {
		return -1
	}
	for i, f := range ic.dex.FieldIDs {
		if int(f.ClassIdx) == classIdx && int(f.TypeIdx) == typeIdx && int(f.NameIdx) == nameIdx {
			return i
		}
	}
	return -1
}

// FindOrCreateField returns the field id index of class.name of type typ.
func (ic *IdCreator) FindOrCreateField(class, typ, name string) int {
	if idx := ic.findFieldID(class, typ, name); idx != -1 {
		return idx
	}
	return ic.createFieldID(class, typ, name)
}

func (ic *IdCreator) createFieldID(class, typ, name string) int {
	d := ic.dex
	t := d.Tracker()
	if len(d.FieldIDs) >= maxTableSize {
		rawdex.Fatalf("too many fields for the file")
	}
	ic.FindOrCreateTypeID(class)
	typeIdx := ic.FindOrCreateTypeID(typ)
	// creating the field type may have moved the class
	classIdx := ic.FindOrCreateTypeID(class)
	nameIdx := ic.FindOrCreateString(name)

	field := &rawdex.FieldIDItem{
		ClassIdx: uint16(classIdx),
		TypeIdx:  uint16(typeIdx),
		NameIdx:  uint32(nameIdx),
	}
	idx := len(d.FieldIDs)
	for i, f := range d.FieldIDs {
		if classIdx < int(f.ClassIdx) ||
			classIdx == int(f.ClassIdx) && nameIdx < int(f.NameIdx) ||
			classIdx == int(f.ClassIdx) && nameIdx == int(f.NameIdx) && typeIdx < int(f.TypeIdx) {
			idx = i
			break
		}
	}
	d.FieldIDs = slices.Insert(d.FieldIDs, idx, field)
	switch {
	case len(d.FieldIDs) == 1:
		t.InsertNewOffsettableAsFirstEverField(field, d)
	case idx == 0:
		t.InsertNewOffsettableAsFirstOfType(field, d)
	default:
		t.InsertNewOffsettableAfter(field, d.FieldIDs[idx-1])
	}

	log.Infof("created field id for %s %s %s, index 0x%04x", class, typ, name, idx)
	d.IncrementIndex(rawdex.FieldIDIndex, idx)
	return idx
}

func (ic *IdCreator) findMethodID(class, name, sig string) int {
	classIdx, nameIdx, protoIdx := ic.findTypeID(class), ic.findString(name), ic.findProtoID(sig)
	if classIdx == -1 || nameIdx == -1 || protoIdx == -1 {
		return -1
	}
	for i, m := range ic.dex.MethodIDs {
		if int(m.ClassIdx) == classIdx && int(m.NameIdx) == nameIdx && int(m.ProtoIdx) == protoIdx {
			return i
		}
	}
	return -1
}

// FindOrCreateMethod returns the method id index of class->name with the
// given signature.
func (ic *IdCreator) FindOrCreateMethod(class, name, sig string) int {
	if idx := ic.findMethodID(class, name, sig); idx != -1 {
		return idx
	}
	return ic.createMethodID(class, name, sig)
}

func (ic *IdCreator) createMethodID(class, name, sig string) int {
	d := ic.dex
	t := d.Tracker()
	if len(d.MethodIDs) >= maxTableSize {
		rawdex.Fatalf("too many methods for the file")
	}
	// the proto can create types and strings, the class can create strings
	protoIdx := ic.FindOrCreateProto(sig)
	classIdx := ic.FindOrCreateTypeID(class)
	nameIdx := ic.FindOrCreateString(name)

	method := &rawdex.MethodIDItem{
		ClassIdx: uint16(classIdx),
		ProtoIdx: uint16(protoIdx),
		NameIdx:  uint32(nameIdx),
	}
	idx := len(d.MethodIDs)
	for i, m := range d.MethodIDs {
		if classIdx < int(m.ClassIdx) ||
			classIdx == int(m.ClassIdx) && nameIdx < int(m.NameIdx) ||
			classIdx == int(m.ClassIdx) && nameIdx == int(m.NameIdx) && protoIdx < int(m.ProtoIdx) {
			idx = i
			break
		}
	}
	d.MethodIDs = slices.Insert(d.MethodIDs, idx, method)
	if idx == 0 {
		t.InsertNewOffsettableAsFirstOfType(method, d)
	} else {
		t.InsertNewOffsettableAfter(method, d.MethodIDs[idx-1])
	}

	log.Infof("created method id for %s->%s%s, index 0x%04x", class, name, sig, idx)
	d.IncrementIndex(rawdex.MethodIDIndex, idx)
	return idx
}
