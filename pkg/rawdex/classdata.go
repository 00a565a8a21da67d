package rawdex

type EncodedField struct {
	FieldIdxDiff uint32
	AccessFlags  uint32
}

func (e *EncodedField) read(f *File) {
	e.FieldIdxDiff = f.ReadULEB128()
	e.AccessFlags = f.ReadULEB128()
}

func (e *EncodedField) write(f *File) {
	f.WriteULEB128(e.FieldIdxDiff)
	f.WriteULEB128(e.AccessFlags)
}

func (e *EncodedField) IsVolatile() bool { return e.AccessFlags&AccVolatile != 0 }

func (e *EncodedField) SetVolatile(on bool) {
	if on {
		e.AccessFlags |= AccVolatile
	} else {
		e.AccessFlags &^= AccVolatile
	}
}

type EncodedMethod struct {
	MethodIdxDiff uint32
	AccessFlags   uint32
	CodeOff       *Offset
}

func (e *EncodedMethod) read(f *File) {
	e.MethodIdxDiff = f.ReadULEB128()
	e.AccessFlags = f.ReadULEB128()
	code := f.ReadULEB128()
	if e.IsNative() && code != 0 {
		FatalWrapf(ErrNativeMethod, "method idx diff %d", e.MethodIdxDiff)
	}
	e.CodeOff = f.Tracker().GetNewOffset(code)
}

func (e *EncodedMethod) write(f *File) {
	f.WriteULEB128(e.MethodIdxDiff)
	f.WriteULEB128(e.AccessFlags)
	f.Tracker().TryToWriteOffset(e.CodeOff, f, true)
}

func (e *EncodedMethod) IsStatic() bool { return e.AccessFlags&AccStatic != 0 }
func (e *EncodedMethod) IsNative() bool { return e.AccessFlags&AccNative != 0 }

// ClassDataItem holds the fields and methods of one class. Member indices
// are stored as a difference from the previous member of the same list.
type ClassDataItem struct {
	StaticFields   []*EncodedField
	InstanceFields []*EncodedField
	DirectMethods  []*EncodedMethod
	VirtualMethods []*EncodedMethod

	// ClassDef is linked up by the program once the file is read.
	ClassDef *ClassDefItem
}

func (c *ClassDataItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, c)
	c.StaticFields = make([]*EncodedField, f.ReadULEB128())
	c.InstanceFields = make([]*EncodedField, f.ReadULEB128())
	c.DirectMethods = make([]*EncodedMethod, f.ReadULEB128())
	c.VirtualMethods = make([]*EncodedMethod, f.ReadULEB128())
	for _, list := range [][]*EncodedField{c.StaticFields, c.InstanceFields} {
		for i := range list {
			list[i] = &EncodedField{}
			list[i].read(f)
		}
	}
	for _, list := range [][]*EncodedMethod{c.DirectMethods, c.VirtualMethods} {
		for i := range list {
			list[i] = &EncodedMethod{}
			list[i].read(f)
		}
	}
}

func (c *ClassDataItem) Write(f *File) {
	f.Tracker().GetNewOffsettable(f, c)
	f.WriteULEB128(uint32(len(c.StaticFields)))
	f.WriteULEB128(uint32(len(c.InstanceFields)))
	f.WriteULEB128(uint32(len(c.DirectMethods)))
	f.WriteULEB128(uint32(len(c.VirtualMethods)))
	for _, ef := range c.StaticFields {
		ef.write(f)
	}
	for _, ef := range c.InstanceFields {
		ef.write(f)
	}
	for _, em := range c.DirectMethods {
		em.write(f)
	}
	for _, em := range c.VirtualMethods {
		em.write(f)
	}
}

// incrementDiffs bumps every absolute index >= insertedIdx in a
// diff-encoded list. Only the first member to cross the insertion point
// needs its diff changed.
func incrementDiffs(diffs []*uint32, insertedIdx int) {
	abs := 0
	for _, d := range diffs {
		abs += int(*d)
		if abs >= insertedIdx {
			*d++
			return
		}
	}
}

func fieldDiffs(list []*EncodedField) []*uint32 {
	out := make([]*uint32, len(list))
	for i, ef := range list {
		out[i] = &ef.FieldIdxDiff
	}
	return out
}

func methodDiffs(list []*EncodedMethod) []*uint32 {
	out := make([]*uint32, len(list))
	for i, em := range list {
		out[i] = &em.MethodIdxDiff
	}
	return out
}

func (c *ClassDataItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	switch kind {
	case FieldIDIndex:
		incrementDiffs(fieldDiffs(c.StaticFields), insertedIdx)
		incrementDiffs(fieldDiffs(c.InstanceFields), insertedIdx)
	case MethodIDIndex:
		incrementDiffs(methodDiffs(c.DirectMethods), insertedIdx)
		incrementDiffs(methodDiffs(c.VirtualMethods), insertedIdx)
	}
}

// EncodedFieldWithIndex returns the field definition for fieldIdx, or nil
// when the class does not define it.
func (c *ClassDataItem) EncodedFieldWithIndex(fieldIdx int) *EncodedField {
	for _, list := range [][]*EncodedField{c.StaticFields, c.InstanceFields} {
		abs := 0
		for _, ef := range list {
			abs += int(ef.FieldIdxDiff)
			if abs == fieldIdx {
				return ef
			}
		}
	}
	return nil
}
