package rawdex

import (
	"reflect"

	"github.com/apex/log"
)

// OffsetTracker records the position of every referenced record in the
// input file and in the output file, and resolves references between them.
//
// Reading registers records in file order. Writing must visit the same
// records in the same order; any other order is fatal. References that
// cannot be written yet because their target comes later are written as
// placeholders and patched by UpdateOffsets.
type OffsetTracker struct {
	arena []Offsettable
	// table holds handles in write order.
	table      []Handle
	byOriginal map[int]Handle
	blobs      []Handle

	needsAssociation []*Offset
	needsUpdate      []*Offset

	tableIdx          int
	indexAfterMapList int
	restorePoint      int
}

func NewOffsetTracker() *OffsetTracker {
	return &OffsetTracker{
		byOriginal: make(map[int]Handle),
	}
}

func (t *OffsetTracker) get(h Handle) *Offsettable {
	if h < 0 || int(h) >= len(t.arena) {
		Fatalf("invalid offsettable handle %d", h)
	}
	return &t.arena[h]
}

// Offsettable returns the record wrapper for h.
func (t *OffsetTracker) Offsettable(h Handle) *Offsettable { return t.get(h) }

// Len returns the number of tracked records.
func (t *OffsetTracker) Len() int { return len(t.table) }

func (t *OffsetTracker) alloc(o Offsettable) Handle {
	t.arena = append(t.arena, o)
	return Handle(len(t.arena) - 1)
}

// ItemByOffset returns the record read at the original position off.
func (t *OffsetTracker) ItemByOffset(off int) RawDexItem {
	h, ok := t.byOriginal[off]
	if !ok {
		return nil
	}
	return t.get(h).item
}

// GetNewOffsettable is called by every referenced record as it is read or
// written. While reading it registers the record at the cursor; while
// writing it binds the next record in read order to the cursor.
func (t *OffsetTracker) GetNewOffsettable(f *File, item RawDexItem) {
	if f.Writing() {
		t.updatePositionOfNextOffsettable(f, item)
		return
	}
	h := t.alloc(Offsettable{item: item, originalPosition: f.Pos()})
	t.byOriginal[f.Pos()] = h
	t.table = append(t.table, h)
}

// getNewBlobOffsettable registers an opaque blob of size bytes that other
// records may reference anywhere inside.
func (t *OffsetTracker) getNewBlobOffsettable(f *File, item RawDexItem, size int) {
	if f.Writing() {
		t.updatePositionOfNextOffsettable(f, item)
		return
	}
	h := t.alloc(Offsettable{item: item, originalPosition: f.Pos(), blobSize: size})
	t.byOriginal[f.Pos()] = h
	t.table = append(t.table, h)
	t.blobs = append(t.blobs, h)
}

// GetNewOffset registers a reference read from the file.
func (t *OffsetTracker) GetNewOffset(originalOffset uint32) *Offset {
	o := &Offset{tracker: t, originalOffset: int(originalOffset), target: NoHandle}
	t.needsAssociation = append(t.needsAssociation, o)
	return o
}

// GetNewHeaderOffset registers the one reference allowed to point at
// position 0, the header.
func (t *OffsetTracker) GetNewHeaderOffset(originalOffset uint32) *Offset {
	o := t.GetNewOffset(originalOffset)
	o.pointsAtHeader = true
	return o
}

// NewOffset creates a reference for a record made during mutation. It
// starts out null.
func (t *OffsetTracker) NewOffset() *Offset {
	return &Offset{tracker: t, target: NoHandle, pointsAtNull: true}
}

// AssociateOffsets resolves every reference registered while reading.
func (t *OffsetTracker) AssociateOffsets() {
	for _, o := range t.needsAssociation {
		if o.originalOffset == 0 && !o.pointsAtHeader {
			o.pointsAtNull = true
			continue
		}
		if h, ok := t.byOriginal[o.originalOffset]; ok {
			o.pointTo(h)
			continue
		}
		if h, delta, ok := t.findBlob(o.originalOffset); ok {
			o.pointTo(h)
			o.delta = delta
			continue
		}
		log.Errorf("couldn't find original offset 0x%x", o.originalOffset)
	}
	t.needsAssociation = nil
}

func (t *OffsetTracker) findBlob(off int) (Handle, int, bool) {
	for _, h := range t.blobs {
		b := t.get(h)
		if off > b.originalPosition && off < b.originalPosition+b.blobSize {
			return h, off - b.originalPosition, true
		}
	}
	return NoHandle, 0, false
}

func (t *OffsetTracker) updatePositionOfNextOffsettable(f *File, item RawDexItem) {
	if t.tableIdx == len(t.table) {
		Fatalf("not all created offsettable items have been added to the offsettable table")
	}
	o := t.get(t.table[t.tableIdx])
	if o.item != item {
		FatalWrapf(ErrWriteOrder, "expected to write %T at index %d, got %T", o.item, t.tableIdx, item)
	}
	o.setNewPosition(f.Pos())
	t.tableIdx++
}

// TryToWriteOffset writes the new position of the offset's target, or a
// placeholder to be patched by UpdateOffsets.
func (t *OffsetTracker) TryToWriteOffset(o *Offset, f *File, useULEB128 bool) {
	if !o.isNew && !o.PointsToSomething() {
		if useULEB128 {
			f.WriteULEB128(0)
		} else {
			f.WriteUInt(0)
		}
		return
	}
	if !o.PointsToSomething() {
		Fatalf("new offset written before it was pointed at anything")
	}
	if o.readyForWriting() {
		if useULEB128 {
			f.WriteULEB128(uint32(o.NewPositionOfItem()))
		} else {
			f.WriteUInt(uint32(o.NewPositionOfItem()))
		}
		return
	}
	o.outputLocation = f.Pos()
	if useULEB128 {
		f.WriteLargestULEB128(uint32(o.originalOffset))
		o.usesULEB128 = true
	} else {
		f.WriteUInt(uint32(o.originalOffset))
	}
	t.needsUpdate = append(t.needsUpdate, o)
}

// UpdateOffsets patches every placeholder written by TryToWriteOffset.
func (t *OffsetTracker) UpdateOffsets(f *File) {
	if t.tableIdx != len(t.table) {
		Fatalf("asked to update dangling offsets but only %d of %d offsettables were written",
			t.tableIdx, len(t.table))
	}
	end := f.Len()
	for _, o := range t.needsUpdate {
		f.Seek(o.outputLocation)
		if o.usesULEB128 {
			f.WriteLargestULEB128(uint32(o.NewPositionOfItem()))
		} else {
			f.WriteUInt(uint32(o.NewPositionOfItem()))
		}
	}
	t.needsUpdate = nil
	f.Seek(end)
}

// The map list is read second (right after the header) but written last,
// while the header written first references it. These four calls let the
// writer jump over it and come back.

func (t *OffsetTracker) RememberPointAfterMapList() {
	t.indexAfterMapList = len(t.table)
}

func (t *OffsetTracker) SkipToAfterMapList() {
	t.tableIdx = t.indexAfterMapList
}

func (t *OffsetTracker) GoBackToMapList() {
	t.restorePoint = t.tableIdx
	t.tableIdx = t.indexAfterMapList - 1
}

func (t *OffsetTracker) GoBackToPreviousPoint() {
	if t.tableIdx != t.indexAfterMapList {
		Fatalf("asked to go back to the point before the map list was written, but not in the right place")
	}
	t.tableIdx = t.restorePoint
}

func (t *OffsetTracker) insertOffsettableAt(idx int, h Handle) {
	t.table = append(t.table, NoHandle)
	copy(t.table[idx+1:], t.table[idx:])
	t.table[idx] = h
	if t.indexAfterMapList > idx {
		t.indexAfterMapList++
	}
	if t.restorePoint > idx {
		t.restorePoint++
	}
}

func (t *OffsetTracker) indexOfFirstItemType(item RawDexItem) int {
	want := reflect.TypeOf(item)
	for i, h := range t.table {
		if reflect.TypeOf(t.get(h).item) == want {
			return i
		}
	}
	return -1
}

func (t *OffsetTracker) indexOfItem(item RawDexItem) int {
	for i, h := range t.table {
		if t.get(h).item == item {
			return i
		}
	}
	return -1
}

// GetOffsettableForItem returns the handle of item, or NoHandle.
func (t *OffsetTracker) GetOffsettableForItem(item RawDexItem) Handle {
	if i := t.indexOfItem(item); i >= 0 {
		return t.table[i]
	}
	return NoHandle
}

// InsertNewOffsettableAsFirstOfType places item before the first record of
// the same type, and retargets header and map references that pointed at
// that record.
func (t *OffsetTracker) InsertNewOffsettableAsFirstOfType(item RawDexItem, dex *RawDexFile) Handle {
	log.Debug("inserting new offsettable as first of its type")
	idx := t.indexOfFirstItemType(item)
	if idx == -1 {
		Fatalf("could not find any object of type %T", item)
	}
	h := t.alloc(Offsettable{item: item, insertedDuringMutation: true})
	t.insertOffsettableAt(idx, h)
	t.updateOffsetsInHeaderAndMapFile(dex, h, t.table[idx+1])
	return h
}

// InsertNewOffsettableAfter places item right after before in write order.
func (t *OffsetTracker) InsertNewOffsettableAfter(item, before RawDexItem) Handle {
	idx := t.indexOfItem(before)
	if idx == -1 {
		Fatalf("did not find the 'after' object %T in the offsettable table", before)
	}
	h := t.alloc(Offsettable{item: item, insertedDuringMutation: true})
	t.insertOffsettableAt(idx+1, h)
	return h
}

// InsertNewOffsettableAsFirstEverTypeList is used when the file had no type
// lists. The list goes before the first string data item, and a map item
// is added for it.
func (t *OffsetTracker) InsertNewOffsettableAsFirstEverTypeList(item RawDexItem, dex *RawDexFile) Handle {
	log.Info("inserting the first type list of the file")
	for i, h := range t.table {
		if _, ok := t.get(h).item.(*StringDataItem); ok {
			nh := t.alloc(Offsettable{item: item, insertedDuringMutation: true})
			t.insertOffsettableAt(i, nh)
			t.addMapItemBefore(dex, TypeTypeList, TypeStringDataItem, nh)
			if dex.Header.DataOff.pointsToThisOffsettable(h) {
				dex.Header.DataOff.pointToNew(nh)
			}
			return nh
		}
	}
	Fatalf("could not find any string data items to insert the type list before")
	return NoHandle
}

// InsertNewOffsettableAsFirstEverField is used when the file had no field
// ids. The field goes before the first method id, and the header and map
// gain a reference to it.
func (t *OffsetTracker) InsertNewOffsettableAsFirstEverField(item RawDexItem, dex *RawDexFile) Handle {
	log.Info("inserting the first field id of the file")
	for i, h := range t.table {
		if _, ok := t.get(h).item.(*MethodIDItem); ok {
			nh := t.alloc(Offsettable{item: item, insertedDuringMutation: true})
			t.insertOffsettableAt(i, nh)
			dex.Header.FieldIDsOff.UnsetNullAndPointTo(nh)
			dex.Header.FieldIDsSize = 1
			t.addMapItemBefore(dex, TypeFieldIDItem, TypeMethodIDItem, nh)
			return nh
		}
	}
	Fatalf("could not find any method ids to insert the field before")
	return NoHandle
}

func (t *OffsetTracker) addMapItemBefore(dex *RawDexFile, typ, before MapItemType, h Handle) {
	mi := &MapItem{Type: typ, Size: 1, Offset: t.NewOffset()}
	mi.Offset.pointToNew(h)
	idx := len(dex.MapList.Items)
	for i, m := range dex.MapList.Items {
		if m.Type == before {
			idx = i
			break
		}
	}
	items := dex.MapList.Items
	items = append(items, nil)
	copy(items[idx+1:], items[idx:])
	items[idx] = mi
	dex.MapList.Items = items
}

func (t *OffsetTracker) updateOffsetsInHeaderAndMapFile(dex *RawDexFile, newFirst, prevFirst Handle) {
	hdr := dex.Header
	retarget := func(o *Offset, name string) {
		if !o.pointsToThisOffsettable(prevFirst) {
			Fatalf("header %s offset not pointing at first element", name)
		}
		o.pointToNew(newFirst)
	}
	switch t.get(newFirst).item.(type) {
	case *StringIDItem:
		retarget(hdr.StringIDsOff, "string_ids")
	case *TypeIDItem:
		retarget(hdr.TypeIDsOff, "type_ids")
	case *ProtoIDItem:
		retarget(hdr.ProtoIDsOff, "proto_ids")
	case *FieldIDItem:
		retarget(hdr.FieldIDsOff, "field_ids")
	case *MethodIDItem:
		retarget(hdr.MethodIDsOff, "method_ids")
	case *ClassDefItem:
		retarget(hdr.ClassDefsOff, "class_defs")
	}
	for _, mi := range dex.MapList.Items {
		if mi.Offset.pointsToThisOffsettable(prevFirst) {
			log.Debugf("updating offset in map item (type %s) for new first record", mi.Type)
			mi.Offset.pointToNew(newFirst)
		}
	}
	if hdr.DataOff.pointsToThisOffsettable(prevFirst) {
		hdr.DataOff.pointToNew(newFirst)
	}
}

// resetForWriting forgets the positions of a previous write so that the
// same records can be written again.
func (t *OffsetTracker) resetForWriting() {
	for _, h := range t.table {
		t.get(h).newPositionKnown = false
	}
	t.tableIdx = 0
	t.restorePoint = 0
	t.needsUpdate = nil
}
