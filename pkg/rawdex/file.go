package rawdex

import (
	"encoding/binary"
	"io"

	"github.com/blacktop/dexfuzz/internal/buffer"
)

// File is a random access cursor over DEX bytes. The same type is used for
// parsing (over the input bytes) and for writing (over a growing output
// buffer); both share the OffsetTracker that relocates references between
// the two.
type File struct {
	buf     *buffer.ReadWriteBuffer
	tracker *OffsetTracker
	writing bool
}

// NewReader returns a File for parsing data.
func NewReader(data []byte) *File {
	return &File{
		buf:     buffer.New(data),
		tracker: NewOffsetTracker(),
	}
}

// NewWriter returns an empty File that writes records tracked by t.
func NewWriter(t *OffsetTracker) *File {
	return &File{
		buf:     buffer.New(nil),
		tracker: t,
		writing: true,
	}
}

func (f *File) Tracker() *OffsetTracker { return f.tracker }
func (f *File) Writing() bool           { return f.writing }
func (f *File) Pos() int                { return int(f.buf.Pos()) }
func (f *File) Len() int                { return int(f.buf.Size()) }
func (f *File) Bytes() []byte           { return f.buf.Bytes() }

func (f *File) Seek(pos int) {
	if _, err := f.buf.Seek(int64(pos), io.SeekStart); err != nil {
		FatalWrapf(err, "failed to seek to 0x%x", pos)
	}
}

func (f *File) read(n int) []byte {
	b := make([]byte, n)
	if got, _ := f.buf.Read(b); got != n {
		FatalWrapf(ErrTruncated, "wanted %d bytes at 0x%x", n, f.Pos()-got)
	}
	return b
}

func (f *File) ReadUByte() uint8       { return f.read(1)[0] }
func (f *File) ReadUShort() uint16     { return binary.LittleEndian.Uint16(f.read(2)) }
func (f *File) ReadUInt() uint32       { return binary.LittleEndian.Uint32(f.read(4)) }
func (f *File) ReadBytes(n int) []byte { return f.read(n) }

func (f *File) rest() []byte {
	if f.Pos() >= f.Len() {
		return nil
	}
	return f.buf.Bytes()[f.Pos():]
}

func (f *File) ReadULEB128() uint32 {
	v, n := DecodeULEB128(f.rest())
	if n == 0 {
		FatalWrapf(ErrTruncated, "bad uleb128 at 0x%x", f.Pos())
	}
	f.Seek(f.Pos() + n)
	return v
}

// ReadULEB128p1 reads a uleb128p1 value, where NO_INDEX is stored as 0.
func (f *File) ReadULEB128p1() int32 {
	return int32(f.ReadULEB128()) - 1
}

func (f *File) ReadSLEB128() int32 {
	v, n := DecodeSLEB128(f.rest())
	if n == 0 {
		FatalWrapf(ErrTruncated, "bad sleb128 at 0x%x", f.Pos())
	}
	f.Seek(f.Pos() + n)
	return v
}

// ReadUntilNull returns the bytes up to (not including) the next 0 byte and
// leaves the cursor after it.
func (f *File) ReadUntilNull() []byte {
	start := f.Pos()
	data := f.buf.Bytes()
	if start >= len(data) {
		FatalWrapf(ErrTruncated, "string starts past the end at 0x%x", start)
	}
	end := start
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end == len(data) {
		FatalWrapf(ErrTruncated, "unterminated string at 0x%x", start)
	}
	f.Seek(end + 1)
	return append([]byte(nil), data[start:end]...)
}

// SkipToAlignment moves a reading cursor forward to the next multiple of n.
func (f *File) SkipToAlignment(n int) {
	if rem := f.Pos() % n; rem != 0 {
		f.Seek(f.Pos() + n - rem)
	}
}

// Align pads a writing cursor with zeros, or skips a reading cursor, to the
// next multiple of n.
func (f *File) Align(n int) {
	if !f.writing {
		f.SkipToAlignment(n)
		return
	}
	for f.Pos()%n != 0 {
		f.WriteUByte(0)
	}
}

func (f *File) write(b []byte) {
	if _, err := f.buf.Write(b); err != nil {
		FatalWrapf(err, "failed to write %d bytes at 0x%x", len(b), f.Pos())
	}
}

func (f *File) WriteBytes(b []byte) { f.write(b) }
func (f *File) WriteUByte(v uint8)  { f.write([]byte{v}) }

func (f *File) WriteUShort(v uint16) {
	f.write(binary.LittleEndian.AppendUint16(nil, v))
}

func (f *File) WriteUInt(v uint32) {
	f.write(binary.LittleEndian.AppendUint32(nil, v))
}

func (f *File) WriteULEB128(v uint32) { f.write(AppendULEB128(nil, v)) }

func (f *File) WriteULEB128p1(v int32) { f.WriteULEB128(uint32(v + 1)) }

func (f *File) WriteSLEB128(v int32) { f.write(AppendSLEB128(nil, v)) }

// WriteLargestULEB128 always writes 5 bytes.
func (f *File) WriteLargestULEB128(v uint32) { f.write(AppendLargestULEB128(nil, v)) }
