package rawdex

// StringIDItem points at the string data of one string.
type StringIDItem struct {
	StringDataOff *Offset
}

func (s *StringIDItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, s)
	s.StringDataOff = f.Tracker().GetNewOffset(f.ReadUInt())
}

func (s *StringIDItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, s)
	f.Tracker().TryToWriteOffset(s.StringDataOff, f, false)
}

func (s *StringIDItem) IncrementIndex(IndexUpdateKind, int) {}

type TypeIDItem struct {
	DescriptorIdx uint32
}

func (t *TypeIDItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, t)
	t.DescriptorIdx = f.ReadUInt()
}

func (t *TypeIDItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, t)
	f.WriteUInt(t.DescriptorIdx)
}

func (t *TypeIDItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&t.DescriptorIdx, kind, StringIDIndex, insertedIdx)
}

type ProtoIDItem struct {
	ShortyIdx     uint32
	ReturnTypeIdx uint32
	ParametersOff *Offset
}

func (p *ProtoIDItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, p)
	p.ShortyIdx = f.ReadUInt()
	p.ReturnTypeIdx = f.ReadUInt()
	p.ParametersOff = f.Tracker().GetNewOffset(f.ReadUInt())
}

func (p *ProtoIDItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, p)
	f.WriteUInt(p.ShortyIdx)
	f.WriteUInt(p.ReturnTypeIdx)
	f.Tracker().TryToWriteOffset(p.ParametersOff, f, false)
}

func (p *ProtoIDItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&p.ShortyIdx, kind, StringIDIndex, insertedIdx)
	incrementIf(&p.ReturnTypeIdx, kind, TypeIDIndex, insertedIdx)
}

type FieldIDItem struct {
	ClassIdx uint16
	TypeIdx  uint16
	NameIdx  uint32
}

func (fi *FieldIDItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, fi)
	fi.ClassIdx = f.ReadUShort()
	fi.TypeIdx = f.ReadUShort()
	fi.NameIdx = f.ReadUInt()
}

func (fi *FieldIDItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, fi)
	f.WriteUShort(fi.ClassIdx)
	f.WriteUShort(fi.TypeIdx)
	f.WriteUInt(fi.NameIdx)
}

func (fi *FieldIDItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&fi.ClassIdx, kind, TypeIDIndex, insertedIdx)
	incrementIf(&fi.TypeIdx, kind, TypeIDIndex, insertedIdx)
	incrementIf(&fi.NameIdx, kind, StringIDIndex, insertedIdx)
}

type MethodIDItem struct {
	ClassIdx uint16
	ProtoIdx uint16
	NameIdx  uint32
}

func (m *MethodIDItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, m)
	m.ClassIdx = f.ReadUShort()
	m.ProtoIdx = f.ReadUShort()
	m.NameIdx = f.ReadUInt()
}

func (m *MethodIDItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, m)
	f.WriteUShort(m.ClassIdx)
	f.WriteUShort(m.ProtoIdx)
	f.WriteUInt(m.NameIdx)
}

func (m *MethodIDItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&m.ClassIdx, kind, TypeIDIndex, insertedIdx)
	incrementIf(&m.ProtoIdx, kind, ProtoIDIndex, insertedIdx)
	incrementIf(&m.NameIdx, kind, StringIDIndex, insertedIdx)
}

// StringDataItem is a length-prefixed MUTF-8 string.
type StringDataItem struct {
	size uint32
	data string
	raw  []byte
	// writeRawBytes is set when the decoded length disagrees with the stored
	// one; the string is then written back byte for byte.
	writeRawBytes bool
}

// NewStringDataItem creates string data for s.
func NewStringDataItem(s string) *StringDataItem {
	sd := &StringDataItem{}
	sd.SetString(s)
	return sd
}

func (s *StringDataItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, s)
	s.size = f.ReadULEB128()
	s.raw = f.ReadUntilNull()
	var n int
	s.data, n = decodeMUTF8(s.raw)
	if uint32(n) != s.size {
		s.writeRawBytes = true
	}
}

func (s *StringDataItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, s)
	f.WriteULEB128(s.size)
	// raw always mirrors data: it is the read bytes, or the encoding made by
	// SetString
	f.WriteBytes(s.raw)
	f.WriteUByte(0)
}

func (s *StringDataItem) IncrementIndex(IndexUpdateKind, int) {}

func (s *StringDataItem) String() string { return s.data }

// SetString replaces the content. Strings read with an inconsistent length
// cannot be edited.
func (s *StringDataItem) SetString(str string) {
	if s.writeRawBytes {
		Fatalf("cannot edit string %q stored with a malformed length", s.data)
	}
	var n int
	s.raw, n = encodeMUTF8(str)
	s.data = str
	s.size = uint32(n)
}

// Size returns the length in UTF-16 code units.
func (s *StringDataItem) Size() uint32 { return s.size }

// RawBytes reports whether the string is written back verbatim.
func (s *StringDataItem) RawBytes() bool { return s.writeRawBytes }
