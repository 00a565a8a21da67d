package rawdex

import (
	"bytes"
	"testing"
)

func TestULEB128(t *testing.T) {
	tests := []struct {
		name string
		v    uint32
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one byte", 0x7f, []byte{0x7f}},
		{"two bytes", 0x80, []byte{0x80, 0x01}},
		{"spec sample", 16256, []byte{0x80, 0x7f}},
		{"max", 0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendULEB128(nil, tt.v)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("AppendULEB128() = % x, want % x", got, tt.want)
			}
			if n := ULEB128Size(tt.v); n != len(tt.want) {
				t.Errorf("ULEB128Size() = %d, want %d", n, len(tt.want))
			}
			v, n := DecodeULEB128(got)
			if v != tt.v || n != len(got) {
				t.Errorf("DecodeULEB128() = %d, %d, want %d, %d", v, n, tt.v, len(got))
			}
		})
	}
}

func TestLargestULEB128(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x7f, 0x3fff, 0xdeadbeef, 0xffffffff} {
		b := AppendLargestULEB128(nil, v)
		if len(b) != MaxULEB128Size {
			t.Fatalf("AppendLargestULEB128(%#x) wrote %d bytes", v, len(b))
		}
		got, n := DecodeULEB128(b)
		if got != v || n != MaxULEB128Size {
			t.Errorf("DecodeULEB128(% x) = %#x, %d, want %#x, 5", b, got, n, v)
		}
	}
}

func TestSLEB128(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{-1, []byte{0x7f}},
		{-128, []byte{0x80, 0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x78}},
	}
	for _, tt := range tests {
		got := AppendSLEB128(nil, tt.v)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("AppendSLEB128(%d) = % x, want % x", tt.v, got, tt.want)
		}
		v, n := DecodeSLEB128(got)
		if v != tt.v || n != len(got) {
			t.Errorf("DecodeSLEB128(% x) = %d, %d, want %d", got, v, n, tt.v)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, n := DecodeULEB128([]byte{0x80, 0x80}); n != 0 {
		t.Errorf("DecodeULEB128() consumed %d bytes of a truncated value", n)
	}
	if _, n := DecodeSLEB128(nil); n != 0 {
		t.Errorf("DecodeSLEB128() consumed %d bytes of nothing", n)
	}
}
