package rawdex

import (
	"bytes"
	"testing"
)

func TestMUTF8(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		enc   []byte
		units int
	}{
		{"empty", "", nil, 0},
		{"ascii", "abc", []byte("abc"), 3},
		{"nul", "a\x00b", []byte{'a', 0xc0, 0x80, 'b'}, 3},
		{"two bytes", "é", []byte{0xc3, 0xa9}, 1},
		{"three bytes", "€", []byte{0xe2, 0x82, 0xac}, 1},
		// U+1F600 is the surrogate pair D83D DE00, three bytes each
		{"supplementary", "\U0001F600", []byte{0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, n := encodeMUTF8(tt.s)
			if !bytes.Equal(enc, tt.enc) {
				t.Errorf("encodeMUTF8(%q) = % x, want % x", tt.s, enc, tt.enc)
			}
			if n != tt.units {
				t.Errorf("encodeMUTF8(%q) units = %d, want %d", tt.s, n, tt.units)
			}
			s, n := decodeMUTF8(tt.enc)
			if s != tt.s || n != tt.units {
				t.Errorf("decodeMUTF8(% x) = %q, %d, want %q, %d", tt.enc, s, n, tt.s, tt.units)
			}
		})
	}
}

func TestStringDataMalformedLength(t *testing.T) {
	// the length says 5 code units, the bytes hold 3
	in := []byte{0x05, 'a', 'b', 'c', 0x00}
	r := NewReader(in)
	sd := &StringDataItem{}
	sd.Read(r)

	if !sd.RawBytes() {
		t.Fatal("RawBytes() = false for a malformed length")
	}
	if got := sd.String(); got != "abc" {
		t.Errorf("String() = %q, want %q", got, "abc")
	}

	w := NewWriter(r.Tracker())
	sd.Write(w)
	if !bytes.Equal(w.Bytes(), in) {
		t.Errorf("Write() = % x, want % x", w.Bytes(), in)
	}

	err := func() (err error) {
		defer Recover(&err)
		sd.SetString("abcde")
		return nil
	}()
	if err == nil {
		t.Error("SetString() on a malformed string succeeded")
	}
	if got := sd.String(); got != "abc" {
		t.Errorf("String() after failed SetString = %q, want %q", got, "abc")
	}
}

func TestStringDataWellFormed(t *testing.T) {
	in := []byte{0x03, 'a', 0xc0, 0x80, 'b', 0x00}
	r := NewReader(in)
	sd := &StringDataItem{}
	sd.Read(r)
	if sd.RawBytes() {
		t.Fatal("RawBytes() = true for a consistent length")
	}
	if sd.String() != "a\x00b" || sd.Size() != 3 {
		t.Errorf("got %q size %d, want %q size 3", sd.String(), sd.Size(), "a\x00b")
	}
	sd.SetString("\U0001F600")
	if sd.Size() != 2 {
		t.Errorf("Size() = %d after SetString, want 2", sd.Size())
	}
}
