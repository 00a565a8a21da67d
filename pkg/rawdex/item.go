package rawdex

import "golang.org/x/exp/constraints"

// RawDexItem is implemented by every record of the container.
type RawDexItem interface {
	Read(f *File)
	Write(f *File)
	// IncrementIndex bumps every stored index of kind that is >= insertedIdx.
	IncrementIndex(kind IndexUpdateKind, insertedIdx int)
}

// IndexUpdateKind names the shared table an index points into.
type IndexUpdateKind int

const (
	StringIDIndex IndexUpdateKind = iota
	TypeIDIndex
	ProtoIDIndex
	FieldIDIndex
	MethodIDIndex
)

func (k IndexUpdateKind) String() string {
	switch k {
	case StringIDIndex:
		return "string_id"
	case TypeIDIndex:
		return "type_id"
	case ProtoIDIndex:
		return "proto_id"
	case FieldIDIndex:
		return "field_id"
	case MethodIDIndex:
		return "method_id"
	}
	return "unknown"
}

// NoIndex marks an absent index in 32-bit index fields.
const NoIndex = 0xffffffff

func incrementIf[T constraints.Integer](v *T, kind, want IndexUpdateKind, insertedIdx int) {
	if kind == want && uint64(*v) != NoIndex && int64(*v) >= int64(insertedIdx) {
		*v++
	}
}
