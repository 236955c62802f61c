// File: internal/interfaces/image.go
package interfaces

import "io"

// Image is the byte source a filesystem is parsed from. Offsets passed to
// ReadAt are absolute image offsets.
type Image interface {
	io.ReaderAt

	// SectorSize returns the device sector size in bytes
	SectorSize() uint32

	// Size returns the total size of the image in bytes
	Size() int64
}
