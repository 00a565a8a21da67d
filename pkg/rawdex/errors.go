package rawdex

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic     = errors.New("invalid dex magic")
	ErrBadHeaderSize    = errors.New("malformed dex header size")
	ErrUnknownMapItem   = errors.New("unknown map item type")
	ErrTruncated        = errors.New("unexpected end of dex data")
	ErrWriteOrder       = errors.New("offsettable write order mismatch")
	ErrPositionUnknown  = errors.New("offsettable position read before it was written")
	ErrTableSize        = errors.New("table size no longer matches map item size")
	ErrUnsupportedInsn  = errors.New("unsupported instruction")
	ErrUnknownDataBlock = errors.New("unrecognised data-payload ident")
	ErrNativeMethod     = errors.New("native method with a code item")
)

// FatalError is an unrecoverable condition raised deep inside the codec or
// the mutation machinery. It is carried as a panic and turned back into an
// error by Recover at API boundaries.
type FatalError struct {
	Err error
	Msg string
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf aborts the current operation.
func Fatalf(format string, args ...any) {
	panic(&FatalError{Msg: fmt.Sprintf(format, args...)})
}

// FatalWrapf aborts the current operation with a sentinel cause.
func FatalWrapf(err error, format string, args ...any) {
	panic(&FatalError{Err: err, Msg: fmt.Sprintf(format, args...)})
}

// Recover converts a FatalError panic into *errp. Any other panic is re-raised.
//
//	func Do() (err error) {
//		defer rawdex.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	if r := recover(); r != nil {
		if fe, ok := r.(*FatalError); ok {
			*errp = fe
			return
		}
		panic(r)
	}
}
