package rawdex

// Access flags used by the mutators.
const (
	AccPublic    = 0x1
	AccPrivate   = 0x2
	AccProtected = 0x4
	AccStatic    = 0x8
	AccFinal     = 0x10
	AccVolatile  = 0x40
	AccNative    = 0x100
	AccAbstract  = 0x400
)

type ClassDefItem struct {
	ClassIdx        uint32
	AccessFlags     uint32
	SuperclassIdx   uint32
	InterfacesOff   *Offset
	SourceFileIdx   uint32
	AnnotationsOff  *Offset
	ClassDataOff    *Offset
	StaticValuesOff *Offset

	// ClassData is linked up by the program once the file is read.
	ClassData *ClassDataItem
}

func (c *ClassDefItem) Read(f *File) {
	t := f.Tracker()
	t.GetNewOffsettable(f, c)
	c.ClassIdx = f.ReadUInt()
	c.AccessFlags = f.ReadUInt()
	c.SuperclassIdx = f.ReadUInt()
	c.InterfacesOff = t.GetNewOffset(f.ReadUInt())
	c.SourceFileIdx = f.ReadUInt()
	c.AnnotationsOff = t.GetNewOffset(f.ReadUInt())
	c.ClassDataOff = t.GetNewOffset(f.ReadUInt())
	c.StaticValuesOff = t.GetNewOffset(f.ReadUInt())
}

func (c *ClassDefItem) Write(f *File) {
	t := f.Tracker()
	t.GetNewOffsettable(f, c)
	f.WriteUInt(c.ClassIdx)
	f.WriteUInt(c.AccessFlags)
	f.WriteUInt(c.SuperclassIdx)
	t.TryToWriteOffset(c.InterfacesOff, f, false)
	f.WriteUInt(c.SourceFileIdx)
	t.TryToWriteOffset(c.AnnotationsOff, f, false)
	t.TryToWriteOffset(c.ClassDataOff, f, false)
	t.TryToWriteOffset(c.StaticValuesOff, f, false)
}

func (c *ClassDefItem) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	incrementIf(&c.ClassIdx, kind, TypeIDIndex, insertedIdx)
	incrementIf(&c.SuperclassIdx, kind, TypeIDIndex, insertedIdx)
	incrementIf(&c.SourceFileIdx, kind, StringIDIndex, insertedIdx)
}
