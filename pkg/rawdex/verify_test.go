package rawdex

import (
	"errors"
	"slices"
	"testing"
)

func TestCheckIntegrity(t *testing.T) {
	_, data, _ := parseSample(t)

	tests := []struct {
		name                       string
		edit                       func(b []byte) []byte
		wantSize, wantSig, wantSum bool
	}{
		{"intact", func(b []byte) []byte { return b }, true, true, true},
		{"checksum", func(b []byte) []byte { b[checksumOff] ^= 0xff; return b }, true, true, false},
		{"signature", func(b []byte) []byte { b[signatureOff] ^= 0xff; return b }, true, false, false},
		{"body", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }, true, false, false},
		{"truncated", func(b []byte) []byte { return b[:len(b)-4] }, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckIntegrity(tt.edit(slices.Clone(data)))
			if err != nil {
				t.Fatalf("CheckIntegrity() error = %v", err)
			}
			if got.FileSizeOK() != tt.wantSize || got.SignatureOK() != tt.wantSig || got.ChecksumOK() != tt.wantSum {
				t.Errorf("CheckIntegrity() size, signature, checksum = %v, %v, %v, want %v, %v, %v",
					got.FileSizeOK(), got.SignatureOK(), got.ChecksumOK(), tt.wantSize, tt.wantSig, tt.wantSum)
			}
			if got.OK() != (tt.wantSize && tt.wantSig && tt.wantSum) {
				t.Errorf("OK() = %v", got.OK())
			}
		})
	}
}

func TestCheckIntegrityRejectsGarbage(t *testing.T) {
	if _, err := CheckIntegrity([]byte("dex\n035")); !errors.Is(err, ErrBadHeaderSize) {
		t.Errorf("short file error = %v, want %v", err, ErrBadHeaderSize)
	}
	if _, err := CheckIntegrity(make([]byte, HeaderSize)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("zeroed header error = %v, want %v", err, ErrInvalidMagic)
	}
}
