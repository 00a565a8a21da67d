package buffer

import (
	"bytes"
	"io"
	"testing"
)

func TestWriteSeekPatch(t *testing.T) {
	var rw ReadWriteBuffer
	if _, err := rw.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rw.Pos() != 4 {
		t.Fatalf("Pos() = %d, want 4", rw.Pos())
	}
	if _, err := rw.Seek(1, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	rw.Write([]byte{9, 9})
	if want := []byte{1, 9, 9, 4}; !bytes.Equal(rw.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", rw.Bytes(), want)
	}
	// writing past the end grows the buffer
	rw.WriteAt([]byte{7}, 6)
	if rw.Size() != 7 {
		t.Errorf("Size() = %d, want 7", rw.Size())
	}
}

func TestReadByteAndEOF(t *testing.T) {
	rw := New([]byte{0xaa})
	c, err := rw.ReadByte()
	if err != nil || c != 0xaa {
		t.Fatalf("ReadByte() = %#x, %v", c, err)
	}
	if _, err := rw.ReadByte(); err != io.EOF {
		t.Errorf("ReadByte() at end error = %v, want io.EOF", err)
	}
	if rw.Len() != 0 {
		t.Errorf("Len() = %d, want 0", rw.Len())
	}
}
