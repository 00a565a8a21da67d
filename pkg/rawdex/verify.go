package rawdex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

// Integrity compares the size, signature and checksum stored in a header
// with the values computed over the file.
type Integrity struct {
	FileSize      uint32
	WantFileSize  uint32
	Signature     [20]byte
	WantSignature [20]byte
	Checksum      uint32
	WantChecksum  uint32
}

func (i Integrity) FileSizeOK() bool  { return i.FileSize == i.WantFileSize }
func (i Integrity) SignatureOK() bool { return i.Signature == i.WantSignature }
func (i Integrity) ChecksumOK() bool  { return i.Checksum == i.WantChecksum }

// OK reports whether every stored value matches.
func (i Integrity) OK() bool {
	return i.FileSizeOK() && i.SignatureOK() && i.ChecksumOK()
}

// CheckIntegrity recomputes the header fixups of data without parsing the
// rest of the file.
func CheckIntegrity(data []byte) (Integrity, error) {
	var i Integrity
	if len(data) < HeaderSize {
		return i, fmt.Errorf("file is %d bytes, shorter than a header: %w", len(data), ErrBadHeaderSize)
	}
	if !bytes.Equal(data[:4], []byte("dex\n")) {
		return i, fmt.Errorf("magic %q: %w", data[:4], ErrInvalidMagic)
	}
	i.FileSize = binary.LittleEndian.Uint32(data[fileSizeOff:])
	i.WantFileSize = uint32(len(data))
	copy(i.Signature[:], data[signatureOff:fileSizeOff])
	i.WantSignature = sha1.Sum(data[fileSizeOff:])
	i.Checksum = binary.LittleEndian.Uint32(data[checksumOff:])
	i.WantChecksum = adler32.Checksum(data[signatureOff:])
	return i, nil
}
