package testimage

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrInjected is returned by MemImage reads that touch a failing range.
var ErrInjected = errors.New("injected read failure")

// MemImage is an in-memory byte source that counts reads and can be told to
// fail reads over chosen ranges.
type MemImage struct {
	data       []byte
	sectorSize uint32
	reads      int64

	mu    sync.Mutex
	fails [][2]int64
}

// NewMemImage wraps data as an image with 512-byte sectors.
func NewMemImage(data []byte) *MemImage {
	return &MemImage{data: data, sectorSize: 512}
}

// ReadAt implements io.ReaderAt.
func (m *MemImage) ReadAt(p []byte, off int64) (int, error) {
	atomic.AddInt64(&m.reads, 1)

	m.mu.Lock()
	for _, f := range m.fails {
		if off < f[0]+f[1] && off+int64(len(p)) > f[0] {
			m.mu.Unlock()
			return 0, ErrInjected
		}
	}
	m.mu.Unlock()

	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// SectorSize returns the configured sector size.
func (m *MemImage) SectorSize() uint32 {
	return m.sectorSize
}

// SetSectorSize overrides the sector size.
func (m *MemImage) SetSectorSize(size uint32) {
	m.sectorSize = size
}

// Size returns the image length in bytes.
func (m *MemImage) Size() int64 {
	return int64(len(m.data))
}

// Reads returns the number of ReadAt calls made so far.
func (m *MemImage) Reads() int64 {
	return atomic.LoadInt64(&m.reads)
}

// FailReads makes every read overlapping [off, off+length) fail.
func (m *MemImage) FailReads(off, length int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails = append(m.fails, [2]int64{off, length})
}
