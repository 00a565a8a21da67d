package rawdex

func readOffsets(f *File) []*Offset {
	offs := make([]*Offset, f.ReadUInt())
	for i := range offs {
		offs[i] = f.Tracker().GetNewOffset(f.ReadUInt())
	}
	return offs
}

func writeOffsets(f *File, offs []*Offset) {
	f.WriteUInt(uint32(len(offs)))
	for _, o := range offs {
		f.Tracker().TryToWriteOffset(o, f, false)
	}
}

// AnnotationSetRefList lists the annotation sets of each parameter of a
// method.
type AnnotationSetRefList struct {
	List []*Offset
}

func (a *AnnotationSetRefList) Read(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, a)
	a.List = readOffsets(f)
}

func (a *AnnotationSetRefList) Write(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, a)
	writeOffsets(f, a.List)
}

func (a *AnnotationSetRefList) IncrementIndex(IndexUpdateKind, int) {}

type AnnotationSetItem struct {
	Entries []*Offset
}

func (a *AnnotationSetItem) Read(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, a)
	a.Entries = readOffsets(f)
}

func (a *AnnotationSetItem) Write(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, a)
	writeOffsets(f, a.Entries)
}

func (a *AnnotationSetItem) IncrementIndex(IndexUpdateKind, int) {}

// Annotation visibilities.
const (
	VisibilityBuild   = 0x00
	VisibilityRuntime = 0x01
	VisibilitySystem  = 0x02
)

type AnnotationItem struct {
	Visibility uint8
	Annotation EncodedAnnotation
}

func (a *AnnotationItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, a)
	a.Visibility = f.ReadUByte()
	a.Annotation.read(f)
}

func (a *AnnotationItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, a)
	f.WriteUByte(a.Visibility)
	a.Annotation.write(f)
}

func (a *AnnotationItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	a.Annotation.IncrementIndex(kind, insertedIdx)
}

// MemberAnnotation ties a field or method index to an annotation record.
type MemberAnnotation struct {
	Idx uint32
	Off *Offset
}

func readMemberAnnotations(f *File, n uint32) []*MemberAnnotation {
	out := make([]*MemberAnnotation, n)
	for i := range out {
		out[i] = &MemberAnnotation{Idx: f.ReadUInt()}
		out[i].Off = f.Tracker().GetNewOffset(f.ReadUInt())
	}
	return out
}

func writeMemberAnnotations(f *File, list []*MemberAnnotation) {
	for _, m := range list {
		f.WriteUInt(m.Idx)
		f.Tracker().TryToWriteOffset(m.Off, f, false)
	}
}

type AnnotationsDirectoryItem struct {
	ClassAnnotationsOff  *Offset
	FieldAnnotations     []*MemberAnnotation
	MethodAnnotations    []*MemberAnnotation
	ParameterAnnotations []*MemberAnnotation
}

func (a *AnnotationsDirectoryItem) Read(f *File) {
	f.Align(4)
	t := f.Tracker()
	t.GetNewOffsettable(f, a)
	a.ClassAnnotationsOff = t.GetNewOffset(f.ReadUInt())
	fields := f.ReadUInt()
	methods := f.ReadUInt()
	params := f.ReadUInt()
	a.FieldAnnotations = readMemberAnnotations(f, fields)
	a.MethodAnnotations = readMemberAnnotations(f, methods)
	a.ParameterAnnotations = readMemberAnnotations(f, params)
}

func (a *AnnotationsDirectoryItem) Write(f *File) {
	f.Align(4)
	t := f.Tracker()
	t.GetNewOffsettable(f, a)
	t.TryToWriteOffset(a.ClassAnnotationsOff, f, false)
	f.WriteUInt(uint32(len(a.FieldAnnotations)))
	f.WriteUInt(uint32(len(a.MethodAnnotations)))
	f.WriteUInt(uint32(len(a.ParameterAnnotations)))
	writeMemberAnnotations(f, a.FieldAnnotations)
	writeMemberAnnotations(f, a.MethodAnnotations)
	writeMemberAnnotations(f, a.ParameterAnnotations)
}

func (a *AnnotationsDirectoryItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	for _, m := range a.FieldAnnotations {
		incrementIf(&m.Idx, kind, FieldIDIndex, insertedIdx)
	}
	for _, m := range a.MethodAnnotations {
		incrementIf(&m.Idx, kind, MethodIDIndex, insertedIdx)
	}
	for _, m := range a.ParameterAnnotations {
		incrementIf(&m.Idx, kind, MethodIDIndex, insertedIdx)
	}
}
