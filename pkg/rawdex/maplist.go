package rawdex

import (
	"fmt"
	"sort"
)

// MapItemType is the type code of a map_item.
type MapItemType uint16

const (
	TypeHeaderItem               MapItemType = 0x0000
	TypeStringIDItem             MapItemType = 0x0001
	TypeTypeIDItem               MapItemType = 0x0002
	TypeProtoIDItem              MapItemType = 0x0003
	TypeFieldIDItem              MapItemType = 0x0004
	TypeMethodIDItem             MapItemType = 0x0005
	TypeClassDefItem             MapItemType = 0x0006
	TypeMapList                  MapItemType = 0x1000
	TypeTypeList                 MapItemType = 0x1001
	TypeAnnotationSetRefList     MapItemType = 0x1002
	TypeAnnotationSetItem        MapItemType = 0x1003
	TypeClassDataItem            MapItemType = 0x2000
	TypeCodeItem                 MapItemType = 0x2001
	TypeStringDataItem           MapItemType = 0x2002
	TypeDebugInfoItem            MapItemType = 0x2003
	TypeAnnotationItem           MapItemType = 0x2004
	TypeEncodedArrayItem         MapItemType = 0x2005
	TypeAnnotationsDirectoryItem MapItemType = 0x2006
)

var mapItemTypeNames = map[MapItemType]string{
	TypeHeaderItem:               "header_item",
	TypeStringIDItem:             "string_id_item",
	TypeTypeIDItem:               "type_id_item",
	TypeProtoIDItem:              "proto_id_item",
	TypeFieldIDItem:              "field_id_item",
	TypeMethodIDItem:             "method_id_item",
	TypeClassDefItem:             "class_def_item",
	TypeMapList:                  "map_list",
	TypeTypeList:                 "type_list",
	TypeAnnotationSetRefList:     "annotation_set_ref_list",
	TypeAnnotationSetItem:        "annotation_set_item",
	TypeClassDataItem:            "class_data_item",
	TypeCodeItem:                 "code_item",
	TypeStringDataItem:           "string_data_item",
	TypeDebugInfoItem:            "debug_info_item",
	TypeAnnotationItem:           "annotation_item",
	TypeEncodedArrayItem:         "encoded_array_item",
	TypeAnnotationsDirectoryItem: "annotations_directory_item",
}

func (t MapItemType) String() string {
	if name, ok := mapItemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%#04x)", uint16(t))
}

// MapItem is one entry of the section directory.
type MapItem struct {
	Type   MapItemType
	Unused uint16
	Size   uint32
	Offset *Offset
}

func (m *MapItem) Read(f *File) {
	m.Type = MapItemType(f.ReadUShort())
	m.Unused = f.ReadUShort()
	m.Size = f.ReadUInt()
	if m.Type == TypeHeaderItem {
		m.Offset = f.Tracker().GetNewHeaderOffset(f.ReadUInt())
	} else {
		m.Offset = f.Tracker().GetNewOffset(f.ReadUInt())
	}
}

func (m *MapItem) Write(f *File) {
	f.WriteUShort(uint16(m.Type))
	f.WriteUShort(m.Unused)
	f.WriteUInt(m.Size)
	f.Tracker().TryToWriteOffset(m.Offset, f, false)
}

func (m *MapItem) IncrementIndex(IndexUpdateKind, int) {}

// MapList is the map_list directory. Reading it drives the read of every
// other section.
type MapList struct {
	dex   *RawDexFile
	Items []*MapItem
}

func (ml *MapList) Read(f *File) {
	f.Seek(ml.dex.Header.MapOff.OriginalOffset())
	f.Tracker().GetNewOffsettable(f, ml)
	size := f.ReadUInt()
	ml.Items = make([]*MapItem, size)
	for i := range ml.Items {
		ml.Items[i] = &MapItem{}
		ml.Items[i].Read(f)
	}
	f.Tracker().RememberPointAfterMapList()

	for i, mi := range ml.Items {
		f.Seek(mi.Offset.OriginalOffset())
		ml.readSection(f, mi, ml.SectionEnd(i, f.Len()))
	}
}

// SectionEnd returns the position of the next section after item i.
func (ml *MapList) SectionEnd(i, fileLen int) int {
	start := ml.Items[i].Offset.OriginalOffset()
	ends := make([]int, 0, len(ml.Items))
	for _, mi := range ml.Items {
		if off := mi.Offset.OriginalOffset(); off > start {
			ends = append(ends, off)
		}
	}
	if len(ends) == 0 {
		return fileLen
	}
	sort.Ints(ends)
	return ends[0]
}

func readN[T any, PT interface {
	*T
	RawDexItem
}](f *File, n uint32) []PT {
	out := make([]PT, n)
	for i := range out {
		out[i] = PT(new(T))
		out[i].Read(f)
	}
	return out
}

func (ml *MapList) readSection(f *File, mi *MapItem, end int) {
	dex := ml.dex
	switch mi.Type {
	case TypeHeaderItem, TypeMapList:
		// already read
	case TypeStringIDItem:
		dex.StringIDs = readN[StringIDItem](f, mi.Size)
	case TypeTypeIDItem:
		dex.TypeIDs = readN[TypeIDItem](f, mi.Size)
	case TypeProtoIDItem:
		dex.ProtoIDs = readN[ProtoIDItem](f, mi.Size)
	case TypeFieldIDItem:
		dex.FieldIDs = readN[FieldIDItem](f, mi.Size)
	case TypeMethodIDItem:
		dex.MethodIDs = readN[MethodIDItem](f, mi.Size)
	case TypeClassDefItem:
		dex.ClassDefs = readN[ClassDefItem](f, mi.Size)
	case TypeTypeList:
		dex.TypeLists = readN[TypeList](f, mi.Size)
	case TypeAnnotationSetRefList:
		dex.AnnotationSetRefLists = readN[AnnotationSetRefList](f, mi.Size)
	case TypeAnnotationSetItem:
		dex.AnnotationSetItems = readN[AnnotationSetItem](f, mi.Size)
	case TypeClassDataItem:
		dex.ClassDatas = readN[ClassDataItem](f, mi.Size)
	case TypeCodeItem:
		dex.CodeItems = readN[CodeItem](f, mi.Size)
	case TypeStringDataItem:
		dex.StringDatas = readN[StringDataItem](f, mi.Size)
	case TypeDebugInfoItem:
		dex.DebugInfo = &DebugInfoItem{size: end - f.Pos()}
		dex.DebugInfo.Read(f)
	case TypeAnnotationItem:
		dex.AnnotationItems = readN[AnnotationItem](f, mi.Size)
	case TypeEncodedArrayItem:
		dex.EncodedArrayItems = readN[EncodedArrayItem](f, mi.Size)
	case TypeAnnotationsDirectoryItem:
		dex.AnnotationsDirectoryItems = readN[AnnotationsDirectoryItem](f, mi.Size)
	default:
		FatalWrapf(ErrUnknownMapItem, "map item type %s", mi.Type)
	}
}

func (ml *MapList) Write(f *File) {
	f.Align(4)
	f.Tracker().GetNewOffsettable(f, ml)
	f.WriteUInt(uint32(len(ml.Items)))
	for _, mi := range ml.Items {
		mi.Write(f)
	}
}

func (ml *MapList) IncrementIndex(IndexUpdateKind, int) {}

// Find returns the map item of type t, or nil.
func (ml *MapList) Find(t MapItemType) *MapItem {
	for _, mi := range ml.Items {
		if mi.Type == t {
			return mi
		}
	}
	return nil
}
