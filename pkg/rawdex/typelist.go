package rawdex

// TypeList is a type_list: the parameter types of a proto, or the
// interfaces of a class.
type TypeList struct {
	List []uint16
}

func (tl *TypeList) Read(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, tl)
	n := f.ReadUInt()
	tl.List = make([]uint16, n)
	for i := range tl.List {
		tl.List[i] = f.ReadUShort()
	}
}

func (tl *TypeList) Write(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, tl)
	f.WriteUInt(uint32(len(tl.List)))
	for _, idx := range tl.List {
		f.WriteUShort(idx)
	}
}

func (tl *TypeList) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	for i := range tl.List {
		incrementIf(&tl.List[i], kind, TypeIDIndex, insertedIdx)
	}
}

// ComesBefore orders type lists by their type indices, shorter lists first
// on a common prefix.
func (tl *TypeList) ComesBefore(other *TypeList) bool {
	for i := 0; i < len(tl.List) && i < len(other.List); i++ {
		if tl.List[i] != other.List[i] {
			return tl.List[i] < other.List[i]
		}
	}
	return len(tl.List) < len(other.List)
}

// Equal reports whether both lists hold the same type indices.
func (tl *TypeList) Equal(other *TypeList) bool {
	if other == nil || len(tl.List) != len(other.List) {
		return false
	}
	for i := range tl.List {
		if tl.List[i] != other.List[i] {
			return false
		}
	}
	return true
}
