package rawdex

import "fmt"

// Value types of encoded_value.
const (
	ValueByte         = 0x00
	ValueShort        = 0x02
	ValueChar         = 0x03
	ValueInt          = 0x04
	ValueLong         = 0x06
	ValueFloat        = 0x10
	ValueDouble       = 0x11
	ValueMethodType   = 0x15
	ValueMethodHandle = 0x16
	ValueString       = 0x17
	ValueType         = 0x18
	ValueField        = 0x19
	ValueMethod       = 0x1a
	ValueEnum         = 0x1b
	ValueArray        = 0x1c
	ValueAnnotation   = 0x1d
	ValueNull         = 0x1e
	ValueBoolean      = 0x1f
)

// indexKind returns the table an index-valued encoded_value points into.
func indexKind(valueType byte) (IndexUpdateKind, bool) {
	switch valueType {
	case ValueString:
		return StringIDIndex, true
	case ValueType:
		return TypeIDIndex, true
	case ValueField, ValueEnum:
		return FieldIDIndex, true
	case ValueMethod:
		return MethodIDIndex, true
	case ValueMethodType:
		return ProtoIDIndex, true
	}
	return 0, false
}

// EncodedValue is one encoded_value. Index payloads are decoded so that they
// can be renumbered; every other payload is kept as bytes.
type EncodedValue struct {
	Type byte
	Arg  byte

	Index      uint32
	Data       []byte
	Array      *EncodedArray
	Annotation *EncodedAnnotation
}

func (v *EncodedValue) read(f *File) {
	hdr := f.ReadUByte()
	v.Type, v.Arg = hdr&0x1f, hdr>>5
	switch v.Type {
	case ValueArray:
		v.Array = &EncodedArray{}
		v.Array.read(f)
	case ValueAnnotation:
		v.Annotation = &EncodedAnnotation{}
		v.Annotation.read(f)
	case ValueNull, ValueBoolean:
	default:
		v.Data = f.ReadBytes(int(v.Arg) + 1)
		if _, ok := indexKind(v.Type); ok {
			for i, b := range v.Data {
				v.Index |= uint32(b) << (8 * i)
			}
		}
	}
}

func (v *EncodedValue) write(f *File) {
	if _, ok := indexKind(v.Type); ok {
		// keep at least the original width, grow if the index outgrew it
		width := int(v.Arg) + 1
		for need := 1; need <= 4; need++ {
			if need > width && v.Index>>(8*(need-1)) != 0 {
				width = need
			}
		}
		v.Arg = byte(width - 1)
		v.Data = make([]byte, width)
		for i := range v.Data {
			v.Data[i] = byte(v.Index >> (8 * i))
		}
	}
	f.WriteUByte(v.Arg<<5 | v.Type)
	switch v.Type {
	case ValueArray:
		v.Array.write(f)
	case ValueAnnotation:
		v.Annotation.write(f)
	case ValueNull, ValueBoolean:
	default:
		f.WriteBytes(v.Data)
	}
}

func (v *EncodedValue) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	switch v.Type {
	case ValueArray:
		v.Array.IncrementIndex(kind, insertedIdx)
	case ValueAnnotation:
		v.Annotation.IncrementIndex(kind, insertedIdx)
	default:
		if want, ok := indexKind(v.Type); ok {
			incrementIf(&v.Index, kind, want, insertedIdx)
		}
	}
}

func (v *EncodedValue) String() string {
	switch v.Type {
	case ValueArray:
		return fmt.Sprintf("array[%d]", len(v.Array.Values))
	case ValueAnnotation:
		return fmt.Sprintf("annotation type@%d", v.Annotation.TypeIdx)
	case ValueNull:
		return "null"
	case ValueBoolean:
		return fmt.Sprintf("%t", v.Arg != 0)
	}
	if _, ok := indexKind(v.Type); ok {
		return fmt.Sprintf("%#02x@%d", v.Type, v.Index)
	}
	return fmt.Sprintf("%#02x:%x", v.Type, v.Data)
}

type EncodedArray struct {
	Values []*EncodedValue
}

func (a *EncodedArray) read(f *File) {
	a.Values = make([]*EncodedValue, f.ReadULEB128())
	for i := range a.Values {
		a.Values[i] = &EncodedValue{}
		a.Values[i].read(f)
	}
}

func (a *EncodedArray) write(f *File) {
	f.WriteULEB128(uint32(len(a.Values)))
	for _, v := range a.Values {
		v.write(f)
	}
}

func (a *EncodedArray) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	for _, v := range a.Values {
		v.IncrementIndex(kind, insertedIdx)
	}
}

type AnnotationElement struct {
	NameIdx uint32
	Value   *EncodedValue
}

type EncodedAnnotation struct {
	TypeIdx  uint32
	Elements []*AnnotationElement
}

func (a *EncodedAnnotation) read(f *File) {
	a.TypeIdx = f.ReadULEB128()
	a.Elements = make([]*AnnotationElement, f.ReadULEB128())
	for i := range a.Elements {
		a.Elements[i] = &AnnotationElement{NameIdx: f.ReadULEB128(), Value: &EncodedValue{}}
		a.Elements[i].Value.read(f)
	}
}

func (a *EncodedAnnotation) write(f *File) {
	f.WriteULEB128(a.TypeIdx)
	f.WriteULEB128(uint32(len(a.Elements)))
	for _, e := range a.Elements {
		f.WriteULEB128(e.NameIdx)
		e.Value.write(f)
	}
}

func (a *EncodedAnnotation) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&a.TypeIdx, kind, TypeIDIndex, insertedIdx)
	for _, e := range a.Elements {
		incrementIf(&e.NameIdx, kind, StringIDIndex, insertedIdx)
		e.Value.IncrementIndex(kind, insertedIdx)
	}
}

// EncodedArrayItem holds the static field initial values of a class.
type EncodedArrayItem struct {
	Value EncodedArray
}

func (e *EncodedArrayItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, e)
	e.Value.read(f)
}

func (e *EncodedArrayItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, e)
	e.Value.write(f)
}

func (e *EncodedArrayItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	e.Value.IncrementIndex(kind, insertedIdx)
}
