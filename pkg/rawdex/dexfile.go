package rawdex

import (
	"crypto/sha1"
	"fmt"
	"hash/adler32"
	"os"

	"github.com/apex/log"
)

// RawDexFile is a parsed DEX container. Every record that can be referenced
// by position is tracked, so the file can be edited and written back with
// all references relocated.
type RawDexFile struct {
	tracker *OffsetTracker

	Header  *HeaderItem
	MapList *MapList

	StringIDs []*StringIDItem
	TypeIDs   []*TypeIDItem
	ProtoIDs  []*ProtoIDItem
	FieldIDs  []*FieldIDItem
	MethodIDs []*MethodIDItem
	ClassDefs []*ClassDefItem

	StringDatas               []*StringDataItem
	ClassDatas                []*ClassDataItem
	TypeLists                 []*TypeList
	CodeItems                 []*CodeItem
	DebugInfo                 *DebugInfoItem
	AnnotationsDirectoryItems []*AnnotationsDirectoryItem
	AnnotationSetRefLists     []*AnnotationSetRefList
	AnnotationSetItems        []*AnnotationSetItem
	AnnotationItems           []*AnnotationItem
	EncodedArrayItems         []*EncodedArrayItem
}

// Parse reads a DEX file from data.
func Parse(data []byte) (dex *RawDexFile, err error) {
	defer Recover(&err)
	f := NewReader(data)
	dex = &RawDexFile{tracker: f.Tracker()}
	dex.read(f)
	return dex, nil
}

// Open reads and parses the DEX file at path.
func Open(path string) (*RawDexFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	dex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return dex, nil
}

func (d *RawDexFile) read(f *File) {
	f.Seek(0)
	d.Header = &HeaderItem{}
	d.Header.Read(f)
	d.MapList = &MapList{dex: d}
	d.MapList.Read(f)
	f.Tracker().AssociateOffsets()
}

// Tracker returns the offset tracker shared by every record of the file.
func (d *RawDexFile) Tracker() *OffsetTracker { return d.tracker }

func writeAll[T RawDexItem](f *File, mi *MapItem, items []T) {
	if int(mi.Size) != len(items) {
		FatalWrapf(ErrTableSize, "%s map item size %d, table has %d", mi.Type, mi.Size, len(items))
	}
	for _, item := range items {
		item.Write(f)
	}
}

// syncSizes updates the sizes of the tables that mutation can grow.
func (d *RawDexFile) syncSizes() {
	for _, mi := range d.MapList.Items {
		var n int
		var hdr *uint32
		switch mi.Type {
		case TypeStringIDItem:
			n, hdr = len(d.StringIDs), &d.Header.StringIDsSize
		case TypeStringDataItem:
			n = len(d.StringDatas)
		case TypeMethodIDItem:
			n, hdr = len(d.MethodIDs), &d.Header.MethodIDsSize
		case TypeFieldIDItem:
			n, hdr = len(d.FieldIDs), &d.Header.FieldIDsSize
		case TypeProtoIDItem:
			n, hdr = len(d.ProtoIDs), &d.Header.ProtoIDsSize
		case TypeTypeIDItem:
			n, hdr = len(d.TypeIDs), &d.Header.TypeIDsSize
		case TypeTypeList:
			n = len(d.TypeLists)
		default:
			continue
		}
		if int(mi.Size) != n {
			log.Debugf("updating %s list size: %d", mi.Type, n)
			mi.Size = uint32(n)
			if hdr != nil {
				*hdr = uint32(n)
			}
		}
	}
}

// Write lays out every record in map list order and resolves all
// references. The header checksum, signature and sizes are left for
// UpdateHeader.
func (d *RawDexFile) Write(f *File) {
	f.Seek(0)
	d.syncSizes()

	t := f.Tracker()
	for _, mi := range d.MapList.Items {
		switch mi.Type {
		case TypeHeaderItem:
			d.Header.Write(f)
			t.SkipToAfterMapList()
		case TypeStringIDItem:
			writeAll(f, mi, d.StringIDs)
		case TypeTypeIDItem:
			writeAll(f, mi, d.TypeIDs)
		case TypeProtoIDItem:
			writeAll(f, mi, d.ProtoIDs)
		case TypeFieldIDItem:
			writeAll(f, mi, d.FieldIDs)
		case TypeMethodIDItem:
			writeAll(f, mi, d.MethodIDs)
		case TypeClassDefItem:
			writeAll(f, mi, d.ClassDefs)
		case TypeMapList:
			t.GoBackToMapList()
			d.MapList.Write(f)
			t.GoBackToPreviousPoint()
		case TypeTypeList:
			writeAll(f, mi, d.TypeLists)
		case TypeAnnotationSetRefList:
			writeAll(f, mi, d.AnnotationSetRefLists)
		case TypeAnnotationSetItem:
			writeAll(f, mi, d.AnnotationSetItems)
		case TypeClassDataItem:
			writeAll(f, mi, d.ClassDatas)
		case TypeCodeItem:
			writeAll(f, mi, d.CodeItems)
		case TypeStringDataItem:
			writeAll(f, mi, d.StringDatas)
		case TypeDebugInfoItem:
			d.DebugInfo.Write(f)
		case TypeAnnotationItem:
			writeAll(f, mi, d.AnnotationItems)
		case TypeEncodedArrayItem:
			writeAll(f, mi, d.EncodedArrayItems)
		case TypeAnnotationsDirectoryItem:
			writeAll(f, mi, d.AnnotationsDirectoryItems)
		default:
			FatalWrapf(ErrUnknownMapItem, "map item type %s", mi.Type)
		}
	}
	t.UpdateOffsets(f)
}

// UpdateHeader patches the file size, data size, signature and checksum of
// a freshly written file. The order matters: each value covers the ones
// written before it.
func (d *RawDexFile) UpdateHeader(f *File) {
	size := uint32(f.Len())
	f.Seek(fileSizeOff)
	f.WriteUInt(size)

	dataSize := size - uint32(d.Header.DataOff.NewPositionOfItem())
	f.Seek(dataSizeOff)
	f.WriteUInt(dataSize)

	sig := sha1.Sum(f.Bytes()[fileSizeOff:])
	f.Seek(signatureOff)
	f.WriteBytes(sig[:])

	sum := adler32.Checksum(f.Bytes()[signatureOff:])
	f.Seek(checksumOff)
	f.WriteUInt(sum)

	f.Seek(int(size))
	d.Header.FileSize = size
	d.Header.DataSize = dataSize
	d.Header.Signature = sig
	d.Header.Checksum = sum
}

// Marshal writes the file to a new buffer and fixes up its header.
func (d *RawDexFile) Marshal() (data []byte, err error) {
	defer Recover(&err)
	d.tracker.resetForWriting()
	f := NewWriter(d.tracker)
	d.Write(f)
	d.UpdateHeader(f)
	return f.Bytes(), nil
}

// IncrementIndex renumbers every reference into the table of kind after a
// record was inserted at insertedIdx.
func (d *RawDexFile) IncrementIndex(kind IndexUpdateKind, insertedIdx int) {
	for _, x := range d.TypeIDs {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.ProtoIDs {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.FieldIDs {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.MethodIDs {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.ClassDefs {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.ClassDatas {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.TypeLists {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.CodeItems {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.AnnotationsDirectoryItems {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.AnnotationItems {
		x.IncrementIndex(kind, insertedIdx)
	}
	for _, x := range d.EncodedArrayItems {
		x.IncrementIndex(kind, insertedIdx)
	}
}

// StringAt returns the string at idx in the string ids table.
func (d *RawDexFile) StringAt(idx int) string {
	if idx < 0 || idx >= len(d.StringIDs) {
		return ""
	}
	sd, ok := d.StringIDs[idx].StringDataOff.PointedToItem().(*StringDataItem)
	if !ok {
		return ""
	}
	return sd.String()
}

// TypeString returns the descriptor of the type at idx.
func (d *RawDexFile) TypeString(idx int) string {
	if idx < 0 || idx >= len(d.TypeIDs) {
		return ""
	}
	return d.StringAt(int(d.TypeIDs[idx].DescriptorIdx))
}
