package disk

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// GPT layout.
const (
	gptHeaderOffset = 512
	gptSignature    = "EFI PART"
	gptMaxEntries   = 128
	gptMaxEntrySize = 1024
	gptEntrySize    = 128
	lbaSize         = 512
)

// linuxDataPartition is the GPT type GUID for Linux filesystem data.
var linuxDataPartition = uuid.MustParse("0FC63DAF-8483-4772-8E79-3D69D8477DE4")

// FileImage provides read access to a filesystem image file or block device.
type FileImage struct {
	path       string
	file       *os.File
	size       int64
	sectorSize uint32
	log        logrus.FieldLogger
	stats      *ImageStatistics
}

// ImageStatistics tracks image access.
type ImageStatistics struct {
	mu              sync.RWMutex
	reads           int64
	bytesRead       int64
	failedReads     int64
	detectionMethod string
	detectionTime   time.Duration
}

// Snapshot is a point-in-time copy of ImageStatistics.
type Snapshot struct {
	Reads           int64         `json:"reads" yaml:"reads"`
	BytesRead       int64         `json:"bytes_read" yaml:"bytes_read"`
	FailedReads     int64         `json:"failed_reads" yaml:"failed_reads"`
	DetectionMethod string        `json:"detection_method,omitempty" yaml:"detection_method,omitempty"`
	DetectionTime   time.Duration `json:"detection_time,omitempty" yaml:"detection_time,omitempty"`
}

// OpenImage opens the image at path. The sector size comes from config.
func OpenImage(path string, config *Config, log logrus.FieldLogger) (*FileImage, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to stat image")
	}

	size := stat.Size()
	if stat.Mode()&os.ModeDevice != 0 {
		// Device nodes report a zero size; ask the device instead.
		if end, err := file.Seek(0, io.SeekEnd); err == nil {
			size = end
		}
	}

	return &FileImage{
		path:       path,
		file:       file,
		size:       size,
		sectorSize: config.SectorSize,
		log:        log.WithField("image", path),
		stats:      &ImageStatistics{},
	}, nil
}

// ReadAt implements io.ReaderAt. End of file is reported as a bare io.EOF;
// any other failure is wrapped with the attempted range.
func (img *FileImage) ReadAt(p []byte, off int64) (int, error) {
	n, err := img.file.ReadAt(p, off)

	img.stats.mu.Lock()
	img.stats.reads++
	img.stats.bytesRead += int64(n)
	if err != nil && err != io.EOF {
		img.stats.failedReads++
	}
	img.stats.mu.Unlock()

	if err != nil && err != io.EOF {
		return n, errors.Wrapf(err, "read of %d bytes at offset %d", len(p), off)
	}
	return n, err
}

// SectorSize returns the configured sector size.
func (img *FileImage) SectorSize() uint32 {
	return img.sectorSize
}

// Size returns the image size in bytes.
func (img *FileImage) Size() int64 {
	return img.size
}

// Path returns the path the image was opened from.
func (img *FileImage) Path() string {
	return img.path
}

// Close closes the underlying file.
func (img *FileImage) Close() error {
	if img.file != nil {
		return img.file.Close()
	}
	return nil
}

// Stats returns a copy of the access statistics.
func (img *FileImage) Stats() Snapshot {
	img.stats.mu.RLock()
	defer img.stats.mu.RUnlock()
	return Snapshot{
		Reads:           img.stats.reads,
		BytesRead:       img.stats.bytesRead,
		FailedReads:     img.stats.failedReads,
		DetectionMethod: img.stats.detectionMethod,
		DetectionTime:   img.stats.detectionTime,
	}
}

// DetectOffset locates the filesystem inside the image. It accepts a
// superblock at byte 0, then the first Linux data partition of a GPT whose
// first bytes hold a superblock signature. It returns the byte offset and the
// method that found it.
func (img *FileImage) DetectOffset() (int64, string, error) {
	start := time.Now()
	offset, method, err := img.detectOffset()

	img.stats.mu.Lock()
	img.stats.detectionTime = time.Since(start)
	img.stats.detectionMethod = method
	img.stats.mu.Unlock()

	if err != nil {
		img.log.WithError(err).Debug("filesystem offset not detected")
		return 0, "", err
	}
	img.log.WithFields(logrus.Fields{"offset": offset, "method": method}).Debug("filesystem offset detected")
	return offset, method, nil
}

func (img *FileImage) detectOffset() (int64, string, error) {
	if img.hasSignature(0) {
		return 0, "raw", nil
	}

	offset, err := img.findGPTPartition()
	if err != nil {
		return 0, "", errors.Wrap(err, "no filesystem signature found")
	}
	return offset, "gpt", nil
}

// hasSignature reports whether a superblock magic in either byte order sits
// at off.
func (img *FileImage) hasSignature(off int64) bool {
	buf := make([]byte, 4)
	if n, _ := img.ReadAt(buf, off); n < len(buf) {
		return false
	}
	return binary.BigEndian.Uint32(buf) == types.SbMagic || binary.LittleEndian.Uint32(buf) == types.SbMagic
}

// findGPTPartition walks the GPT partition entries and returns the byte offset
// of the first Linux data partition holding a superblock.
func (img *FileImage) findGPTPartition() (int64, error) {
	header := make([]byte, 92)
	if n, err := img.ReadAt(header, gptHeaderOffset); n < len(header) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return 0, errors.Wrap(err, "insufficient data for GPT header")
	}
	if string(header[:8]) != gptSignature {
		return 0, errors.New("no valid GPT signature found")
	}

	entriesLBA := binary.LittleEndian.Uint64(header[72:80])
	count := binary.LittleEndian.Uint32(header[80:84])
	entrySize := binary.LittleEndian.Uint32(header[84:88])
	if entriesLBA == 0 {
		entriesLBA = 2
	}
	if count == 0 || count > gptMaxEntries {
		count = gptMaxEntries
	}
	if entrySize < gptEntrySize || entrySize > gptMaxEntrySize {
		entrySize = gptEntrySize
	}

	want := GPTTypeGUID(linuxDataPartition)
	entry := make([]byte, entrySize)
	for i := uint32(0); i < count; i++ {
		off := int64(entriesLBA)*lbaSize + int64(i)*int64(entrySize)
		if n, _ := img.ReadAt(entry, off); n < len(entry) {
			break
		}
		if !bytes.Equal(entry[:16], want) {
			continue
		}

		startLBA := binary.LittleEndian.Uint64(entry[32:40])
		partOffset := int64(startLBA) * lbaSize
		img.log.WithFields(logrus.Fields{"partition": i + 1, "start_lba": startLBA}).Debug("found Linux data partition")
		if img.hasSignature(partOffset) {
			return partOffset, nil
		}
	}
	return 0, errors.New("no Linux data partition with a filesystem signature in GPT")
}

// GPTTypeGUID returns the on-disk byte layout of a GPT GUID, whose first
// three fields are little-endian.
func GPTTypeGUID(u uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, u[:])
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
	return b
}
