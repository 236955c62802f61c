package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// ImageTarget represents image selection across commands
type ImageTarget struct {
	Path       string
	Offset     int64
	AutoDetect bool
	SectorSize uint32
	FSType     string
}

// Validate ensures the image target is valid
func (it *ImageTarget) Validate() error {
	if it.Path == "" {
		return NewError(ErrCodeInvalidInput, "image path is required", nil)
	}
	if it.Offset < 0 {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("offset %d is negative", it.Offset), nil)
	}
	if it.AutoDetect && it.Offset != 0 {
		return NewError(ErrCodeInvalidInput, "cannot specify both an offset and offset detection", nil)
	}
	if it.SectorSize == 0 || it.SectorSize&(it.SectorSize-1) != 0 {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("sector size %d is not a power of two", it.SectorSize), nil)
	}
	if _, err := types.ParseFSType(it.FSType); err != nil {
		return NewError(ErrCodeInvalidInput, "invalid filesystem type", err)
	}
	return nil
}

// String returns a string representation of the image target
func (it *ImageTarget) String() string {
	switch {
	case it.AutoDetect:
		return it.Path + " (offset: detect)"
	case it.Offset != 0:
		return fmt.Sprintf("%s (offset: %d)", it.Path, it.Offset)
	default:
		return it.Path
	}
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates items per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// ETA estimates time to completion
func (p *ProgressUpdate) ETA() time.Duration {
	if p.Completed == 0 || p.Total == 0 {
		return 0
	}
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	remaining := p.Total - p.Completed
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeImageAccess  = "IMAGE_ACCESS"
	ErrCodeNotXFS       = "NOT_XFS"
	ErrCodeUnsupported  = "UNSUPPORTED"
	ErrCodeCorrupt      = "CORRUPT"
	ErrCodeCancelled    = "CANCELLED"
	ErrCodeTimeout      = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Classify maps an error from the filesystem layer onto a CommonError code.
func Classify(message string, err error) *CommonError {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce
	}

	code := ErrCodeImageAccess
	switch types.KindOf(err) {
	case types.KindInvalidArgument:
		code = ErrCodeInvalidInput
	case types.KindBadMagic, types.KindNotThisFormat:
		code = ErrCodeNotXFS
	case types.KindUnsupportedVersion, types.KindUnsupportedInodeSize:
		code = ErrCodeUnsupported
	case types.KindCorrupt:
		code = ErrCodeCorrupt
	}
	switch {
	case errors.Is(err, context.Canceled):
		code = ErrCodeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	return NewError(code, message, err)
}
