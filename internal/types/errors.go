package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the structured category of an FSError.
type ErrorKind string

const (
	// KindInvalidArgument marks bad call-site parameters.
	KindInvalidArgument ErrorKind = "INVALID_ARGUMENT"
	// KindReadError marks a failed or short read from the byte source.
	KindReadError ErrorKind = "READ_ERROR"
	// KindBadMagic marks a missing filesystem signature.
	KindBadMagic ErrorKind = "BAD_MAGIC"
	// KindNotThisFormat marks an image that fails format heuristics.
	KindNotThisFormat ErrorKind = "NOT_THIS_FORMAT"
	// KindUnsupportedVersion marks a recognized but unsupported version or feature set.
	KindUnsupportedVersion ErrorKind = "UNSUPPORTED_VERSION"
	// KindUnsupportedInodeSize marks a recognized but unsupported inode size.
	KindUnsupportedInodeSize ErrorKind = "UNSUPPORTED_INODE_SIZE"
	// KindCorrupt marks a recognized filesystem whose structure is inconsistent.
	KindCorrupt ErrorKind = "CORRUPT"
)

// Sentinels for errors.Is. An FSError matches the sentinel of its kind.
var (
	ErrInvalidArgument      = &FSError{Kind: KindInvalidArgument}
	ErrReadError            = &FSError{Kind: KindReadError}
	ErrBadMagic             = &FSError{Kind: KindBadMagic}
	ErrNotThisFormat        = &FSError{Kind: KindNotThisFormat}
	ErrUnsupportedVersion   = &FSError{Kind: KindUnsupportedVersion}
	ErrUnsupportedInodeSize = &FSError{Kind: KindUnsupportedInodeSize}
	ErrCorrupt              = &FSError{Kind: KindCorrupt}
)

// ErrStopWalk may be returned by a walk callback to end the walk early
// without reporting an error.
var ErrStopWalk = errors.New("stop walk")

// FSError is the error type returned by every filesystem operation.
type FSError struct {
	Kind    ErrorKind
	Message string

	// Offset and Length describe the attempted read for KindReadError.
	Offset int64
	Length int

	Cause error
}

func (e *FSError) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	if e.Kind == KindReadError {
		msg = fmt.Sprintf("%s (offset %d, length %d)", msg, e.Offset, e.Length)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *FSError) Unwrap() error {
	return e.Cause
}

// Is matches kind sentinels, so errors.Is(err, ErrCorrupt) holds for any
// corrupt-kind error in the chain.
func (e *FSError) Is(target error) bool {
	t, ok := target.(*FSError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// NewError creates an FSError of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *FSError {
	return &FSError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an FSError of the given kind around cause.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *FSError {
	return &FSError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewReadError records a failed read of length bytes at offset.
func NewReadError(offset int64, length int, cause error, format string, args ...interface{}) *FSError {
	return &FSError{
		Kind:    KindReadError,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
		Length:  length,
		Cause:   cause,
	}
}

// KindOf returns the kind of the first FSError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var fe *FSError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
