package buffer

import (
	"errors"
	"io"
)

// ReadWriteBuffer is an in-memory random access file. Reads and writes share
// a single cursor, like an *os.File opened for read/write.
// The zero value of this type is an empty buffer ready to use.
type ReadWriteBuffer struct {
	d []byte
	i int64 // cursor
}

// New creates a ReadWriteBuffer over b; the cursor starts at 0.
func New(b []byte) *ReadWriteBuffer {
	return &ReadWriteBuffer{d: b}
}

// Reset resets the buffer to be reading from b.
func (rw *ReadWriteBuffer) Reset(b []byte) {
	*rw = ReadWriteBuffer{d: b}
}

// Len returns the number of bytes of the unread portion of the slice.
func (rw *ReadWriteBuffer) Len() int {
	if rw.i >= int64(len(rw.d)) {
		return 0
	}
	return int(int64(len(rw.d)) - rw.i)
}

// Size returns the length of the underlying byte slice.
func (rw *ReadWriteBuffer) Size() int64 { return int64(len(rw.d)) }

// Pos returns the cursor position.
func (rw *ReadWriteBuffer) Pos() int64 { return rw.i }

// Bytes returns the ReadWriteBuffer's underlying data. This value will remain valid so long
// as no other methods are called on the ReadWriteBuffer.
func (rw *ReadWriteBuffer) Bytes() []byte {
	return rw.d
}

// WriteAt implements the io.WriterAt interface.
func (rw *ReadWriteBuffer) WriteAt(dat []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("buffer.ReadWriteBuffer.WriteAt: negative offset")
	}
	// fast path extension
	if int(off) == len(rw.d) {
		rw.d = append(rw.d, dat...)
		return len(dat), nil
	}
	if int(off)+len(dat) > len(rw.d) {
		nd := make([]byte, int(off)+len(dat))
		copy(nd, rw.d)
		rw.d = nd
	}
	copy(rw.d[int(off):], dat)
	return len(dat), nil
}

// Write implements the io.Writer interface, writing at the cursor.
func (rw *ReadWriteBuffer) Write(dat []byte) (int, error) {
	n, err := rw.WriteAt(dat, rw.i)
	rw.i += int64(n)
	return n, err
}

// WriteByte implements the io.ByteWriter interface.
func (rw *ReadWriteBuffer) WriteByte(c byte) error {
	_, err := rw.Write([]byte{c})
	return err
}

// Read implements the io.Reader interface.
func (rw *ReadWriteBuffer) Read(b []byte) (n int, err error) {
	if rw.i >= int64(len(rw.d)) {
		return 0, io.EOF
	}
	n = copy(b, rw.d[rw.i:])
	rw.i += int64(n)
	return
}

// ReadByte implements the io.ByteReader interface.
func (rw *ReadWriteBuffer) ReadByte() (byte, error) {
	if rw.i >= int64(len(rw.d)) {
		return 0, io.EOF
	}
	c := rw.d[rw.i]
	rw.i++
	return c, nil
}

// ReadAt implements the io.ReaderAt interface.
func (rw *ReadWriteBuffer) ReadAt(b []byte, off int64) (n int, err error) {
	// cannot modify state - see io.ReaderAt
	if off < 0 {
		return 0, errors.New("buffer.ReadWriteBuffer.ReadAt: negative offset")
	}
	if off >= int64(len(rw.d)) {
		return 0, io.EOF
	}
	n = copy(b, rw.d[off:])
	if n < len(b) {
		err = io.EOF
	}
	return
}

// Seek implements the io.Seeker interface.
func (rw *ReadWriteBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = rw.i + offset
	case io.SeekEnd:
		abs = int64(len(rw.d)) + offset
	default:
		return 0, errors.New("buffer.ReadWriteBuffer.Seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("buffer.ReadWriteBuffer.Seek: negative position")
	}
	rw.i = abs
	return abs, nil
}
