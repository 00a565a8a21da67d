package rawdex

// Handle identifies an Offsettable inside an OffsetTracker's arena.
type Handle int

// NoHandle is the handle of an Offset that points at nothing.
const NoHandle Handle = -1

// Offsettable wraps one section record whose position may be referenced
// from elsewhere in the file.
type Offsettable struct {
	item RawDexItem

	originalPosition int
	newPosition      int
	newPositionKnown bool

	// insertedDuringMutation is set for records created by the fuzzer, which
	// have no original position.
	insertedDuringMutation bool

	// blobSize is non-zero for opaque blobs (debug info) that other records
	// reference into, not only at their start.
	blobSize int
}

func (o *Offsettable) Item() RawDexItem { return o.item }

func (o *Offsettable) OriginalPosition() int {
	if o.insertedDuringMutation {
		Fatalf("asked for the original position of an offsettable created during mutation")
	}
	return o.originalPosition
}

func (o *Offsettable) NewPosition() int {
	if !o.newPositionKnown {
		FatalWrapf(ErrPositionUnknown, "item %T", o.item)
	}
	return o.newPosition
}

func (o *Offsettable) setNewPosition(pos int) {
	if o.newPositionKnown {
		Fatalf("new position of %T set twice (0x%x, then 0x%x)", o.item, o.newPosition, pos)
	}
	o.newPosition = pos
	o.newPositionKnown = true
}

// Offset is a reference from one record to another by file position.
type Offset struct {
	tracker *OffsetTracker

	originalOffset int
	target         Handle
	// delta is the distance from the start of the target, for references
	// into the middle of a blob.
	delta int

	pointsAtNull   bool
	pointsAtHeader bool
	// isNew marks offsets created or retargeted during mutation. They are
	// always written, even when they were null originally.
	isNew bool

	usesULEB128    bool
	outputLocation int
}

func (o *Offset) OriginalOffset() int  { return o.originalOffset }
func (o *Offset) PointsAtNull() bool   { return o.pointsAtNull }
func (o *Offset) PointsAtHeader() bool { return o.pointsAtHeader }

// PointsToSomething reports whether the offset has been resolved to a record.
func (o *Offset) PointsToSomething() bool { return o.target != NoHandle }

// PointedToItem returns the referenced record, or nil.
func (o *Offset) PointedToItem() RawDexItem {
	if !o.PointsToSomething() {
		return nil
	}
	return o.tracker.get(o.target).item
}

func (o *Offset) pointTo(h Handle) {
	o.target = h
}

func (o *Offset) pointToNew(h Handle) {
	o.target = h
	o.delta = 0
	o.isNew = true
	o.pointsAtNull = false
}

// PointToNew makes the offset reference another record. Used by mutation
// code that creates records.
func (o *Offset) PointToNew(h Handle) { o.pointToNew(h) }

// UnsetNullAndPointTo turns a null offset into a reference to h.
func (o *Offset) UnsetNullAndPointTo(h Handle) {
	if !o.pointsAtNull {
		Fatalf("offset expected to be null points at 0x%x", o.originalOffset)
	}
	o.pointToNew(h)
}

func (o *Offset) pointsToThisOffsettable(h Handle) bool {
	return o.target == h && h != NoHandle
}

func (o *Offset) readyForWriting() bool {
	return o.tracker.get(o.target).newPositionKnown
}

// NewPositionOfItem returns where the target was written.
func (o *Offset) NewPositionOfItem() int {
	return o.tracker.get(o.target).NewPosition() + o.delta
}
