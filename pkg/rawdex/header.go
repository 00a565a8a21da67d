package rawdex

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	HeaderSize   = 0x70
	EndianTag    = 0x12345678
	checksumOff  = 8
	signatureOff = 12
	fileSizeOff  = 32
	dataSizeOff  = 104
)

// header is the on-disk layout of header_item.
type header struct {
	Magic         [8]byte
	Checksum      uint32
	Signature     [20]byte
	FileSize      uint32
	HeaderSize    uint32
	EndianTag     uint32
	LinkSize      uint32
	LinkOff       uint32
	MapOff        uint32
	StringIDsSize uint32
	StringIDsOff  uint32
	TypeIDsSize   uint32
	TypeIDsOff    uint32
	ProtoIDsSize  uint32
	ProtoIDsOff   uint32
	FieldIDsSize  uint32
	FieldIDsOff   uint32
	MethodIDsSize uint32
	MethodIDsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32
	DataSize      uint32
	DataOff       uint32
}

// HeaderItem is the header_item, with every section offset tracked.
type HeaderItem struct {
	Magic      [8]byte
	Checksum   uint32
	Signature  [20]byte
	FileSize   uint32
	HeaderSize uint32
	EndianTag  uint32

	LinkSize      uint32
	LinkOff       *Offset
	MapOff        *Offset
	StringIDsSize uint32
	StringIDsOff  *Offset
	TypeIDsSize   uint32
	TypeIDsOff    *Offset
	ProtoIDsSize  uint32
	ProtoIDsOff   *Offset
	FieldIDsSize  uint32
	FieldIDsOff   *Offset
	MethodIDsSize uint32
	MethodIDsOff  *Offset
	ClassDefsSize uint32
	ClassDefsOff  *Offset
	DataSize      uint32
	DataOff       *Offset
}

func (h *HeaderItem) Read(f *File) {
	f.Tracker().GetNewOffsettable(f, h)
	var hdr header
	if err := binary.Read(bytes.NewReader(f.ReadBytes(HeaderSize)), binary.LittleEndian, &hdr); err != nil {
		FatalWrapf(err, "failed to read header")
	}
	if !bytes.Equal(hdr.Magic[:4], []byte("dex\n")) {
		FatalWrapf(ErrInvalidMagic, "magic %q", hdr.Magic[:])
	}
	if hdr.HeaderSize != HeaderSize {
		FatalWrapf(ErrBadHeaderSize, "header size is 0x%x, expected 0x%x", hdr.HeaderSize, HeaderSize)
	}
	t := f.Tracker()
	*h = HeaderItem{
		Magic:         hdr.Magic,
		Checksum:      hdr.Checksum,
		Signature:     hdr.Signature,
		FileSize:      hdr.FileSize,
		HeaderSize:    hdr.HeaderSize,
		EndianTag:     hdr.EndianTag,
		LinkSize:      hdr.LinkSize,
		LinkOff:       t.GetNewOffset(hdr.LinkOff),
		MapOff:        t.GetNewOffset(hdr.MapOff),
		StringIDsSize: hdr.StringIDsSize,
		StringIDsOff:  t.GetNewOffset(hdr.StringIDsOff),
		TypeIDsSize:   hdr.TypeIDsSize,
		TypeIDsOff:    t.GetNewOffset(hdr.TypeIDsOff),
		ProtoIDsSize:  hdr.ProtoIDsSize,
		ProtoIDsOff:   t.GetNewOffset(hdr.ProtoIDsOff),
		FieldIDsSize:  hdr.FieldIDsSize,
		FieldIDsOff:   t.GetNewOffset(hdr.FieldIDsOff),
		MethodIDsSize: hdr.MethodIDsSize,
		MethodIDsOff:  t.GetNewOffset(hdr.MethodIDsOff),
		ClassDefsSize: hdr.ClassDefsSize,
		ClassDefsOff:  t.GetNewOffset(hdr.ClassDefsOff),
		DataSize:      hdr.DataSize,
		DataOff:       t.GetNewOffset(hdr.DataOff),
	}
}

func (h *HeaderItem) Write(f *File) {
	t := f.Tracker()
	t.GetNewOffsettable(f, h)
	f.WriteBytes(h.Magic[:])
	f.WriteUInt(h.Checksum)
	f.WriteBytes(h.Signature[:])
	f.WriteUInt(h.FileSize)
	f.WriteUInt(h.HeaderSize)
	f.WriteUInt(h.EndianTag)
	f.WriteUInt(h.LinkSize)
	t.TryToWriteOffset(h.LinkOff, f, false)
	t.TryToWriteOffset(h.MapOff, f, false)
	f.WriteUInt(h.StringIDsSize)
	t.TryToWriteOffset(h.StringIDsOff, f, false)
	f.WriteUInt(h.TypeIDsSize)
	t.TryToWriteOffset(h.TypeIDsOff, f, false)
	f.WriteUInt(h.ProtoIDsSize)
	t.TryToWriteOffset(h.ProtoIDsOff, f, false)
	f.WriteUInt(h.FieldIDsSize)
	t.TryToWriteOffset(h.FieldIDsOff, f, false)
	f.WriteUInt(h.MethodIDsSize)
	t.TryToWriteOffset(h.MethodIDsOff, f, false)
	f.WriteUInt(h.ClassDefsSize)
	t.TryToWriteOffset(h.ClassDefsOff, f, false)
	f.WriteUInt(h.DataSize)
	t.TryToWriteOffset(h.DataOff, f, false)
}

func (h *HeaderItem) IncrementIndex(IndexUpdateKind, int) {}

// Version returns the three digit format version from the magic.
func (h *HeaderItem) Version() string {
	return string(h.Magic[4:7])
}

func (h *HeaderItem) String() string {
	return fmt.Sprintf(
		"Magic         = %q\n"+
			"Version       = %s\n"+
			"Checksum      = %#08x\n"+
			"Signature     = %x\n"+
			"FileSize      = %s (%d)\n"+
			"StringIDs     = %d\n"+
			"TypeIDs       = %d\n"+
			"ProtoIDs      = %d\n"+
			"FieldIDs      = %d\n"+
			"MethodIDs     = %d\n"+
			"ClassDefs     = %d\n"+
			"DataSize      = %s\n",
		h.Magic[:3], h.Version(), h.Checksum, h.Signature, humanize.Bytes(uint64(h.FileSize)), h.FileSize,
		h.StringIDsSize, h.TypeIDsSize, h.ProtoIDsSize, h.FieldIDsSize, h.MethodIDsSize, h.ClassDefsSize,
		humanize.Bytes(uint64(h.DataSize)))
}
