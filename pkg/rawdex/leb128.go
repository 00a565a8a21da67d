package rawdex

import "encoding/binary"

// MaxULEB128Size is the widest encoding of a 32-bit value.
const MaxULEB128Size = 5

// AppendULEB128 appends the compact ULEB128 encoding of v.
func AppendULEB128(b []byte, v uint32) []byte {
	return binary.AppendUvarint(b, uint64(v))
}

// AppendLargestULEB128 appends v using all 5 bytes, so that the value can
// later be patched in place with any other 32-bit value.
func AppendLargestULEB128(b []byte, v uint32) []byte {
	for i := 0; i < MaxULEB128Size-1; i++ {
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
	return append(b, byte(v&0x0f))
}

// DecodeULEB128 decodes a ULEB128 value and returns it along with the number
// of bytes consumed. n is 0 when b is too short.
func DecodeULEB128(b []byte) (v uint32, n int) {
	var shift uint
	for n < len(b) && n < MaxULEB128Size {
		c := b[n]
		n++
		v |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, n
		}
		shift += 7
	}
	return v, 0
}

// AppendSLEB128 appends the signed LEB128 encoding of v.
func AppendSLEB128(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// DecodeSLEB128 decodes a signed LEB128 value. n is 0 when b is too short.
func DecodeSLEB128(b []byte) (v int32, n int) {
	var shift uint
	var c byte
	for n < len(b) && n < MaxULEB128Size {
		c = b[n]
		n++
		v |= int32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 32 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, n
		}
	}
	return v, 0
}

// ULEB128Size returns the compact encoded size of v.
func ULEB128Size(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
