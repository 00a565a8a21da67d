package rawdex

import (
	"strings"
	"unicode/utf16"
)

// decodeMUTF8 decodes modified UTF-8 bytes (without the trailing NUL) and
// returns the string and its length in UTF-16 code units.
func decodeMUTF8(b []byte) (string, int) {
	var units []uint16
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			// four byte forms are not legal MUTF-8
			units = append(units, uint16(c))
			i++
		}
	}
	return string(utf16.Decode(units)), len(units)
}

// encodeMUTF8 encodes s as modified UTF-8 and returns the bytes (without a
// trailing NUL) and the UTF-16 length.
func encodeMUTF8(s string) ([]byte, int) {
	units := utf16.Encode([]rune(s))
	var sb strings.Builder
	for _, u := range units {
		switch {
		case u != 0 && u < 0x80:
			sb.WriteByte(byte(u))
		case u < 0x800:
			sb.WriteByte(byte(0xc0 | (u>>6)&0x1f))
			sb.WriteByte(byte(0x80 | u&0x3f))
		default:
			sb.WriteByte(byte(0xe0 | (u>>12)&0x0f))
			sb.WriteByte(byte(0x80 | (u>>6)&0x3f))
			sb.WriteByte(byte(0x80 | u&0x3f))
		}
	}
	return []byte(sb.String()), len(units)
}
