package disk

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xfs/internal/services"
	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.raw")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// gptImage places fs at LBA 2048 behind a GPT with one Linux data partition.
func gptImage(fs []byte) []byte {
	const startLBA = 2048
	data := make([]byte, startLBA*lbaSize+len(fs))

	header := data[gptHeaderOffset:]
	copy(header, gptSignature)
	binary.LittleEndian.PutUint64(header[72:80], 2)
	binary.LittleEndian.PutUint32(header[80:84], 4)
	binary.LittleEndian.PutUint32(header[84:88], gptEntrySize)

	// The first entry is some other partition type.
	other := data[2*lbaSize:]
	copy(other, GPTTypeGUID(uuid.MustParse("C12A7328-F81F-11D2-BA4B-00A0C93EC93B")))
	binary.LittleEndian.PutUint64(other[32:40], 34)

	entry := data[2*lbaSize+gptEntrySize:]
	copy(entry, GPTTypeGUID(linuxDataPartition))
	binary.LittleEndian.PutUint64(entry[32:40], startLBA)

	copy(data[startLBA*lbaSize:], fs)
	return data
}

func TestOpenImage(t *testing.T) {
	fsData := testimage.New(testimage.Options{}).Bytes()
	path := writeFile(t, fsData)

	img, err := OpenImage(path, &Config{SectorSize: 4096}, quietLogger())
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, int64(len(fsData)), img.Size())
	assert.Equal(t, uint32(4096), img.SectorSize())
	assert.Equal(t, path, img.Path())

	buf := make([]byte, 4)
	n, err := img.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "XFSB", string(buf))

	n, err = img.ReadAt(buf, img.Size()-2)
	assert.Equal(t, io.EOF, err, "end of file is not wrapped")
	assert.Equal(t, 2, n)

	stats := img.Stats()
	assert.Equal(t, int64(2), stats.Reads)
	assert.Equal(t, int64(6), stats.BytesRead)
	assert.Zero(t, stats.FailedReads)
}

func TestOpenImageMissing(t *testing.T) {
	_, err := OpenImage(filepath.Join(t.TempDir(), "missing"), nil, quietLogger())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestReadAtClosedImage(t *testing.T) {
	img, err := OpenImage(writeFile(t, make([]byte, 1024)), nil, quietLogger())
	require.NoError(t, err)
	require.NoError(t, img.Close())

	_, err = img.ReadAt(make([]byte, 16), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read of 16 bytes at offset 0")
	assert.Equal(t, int64(1), img.Stats().FailedReads)
}

func TestDetectOffset(t *testing.T) {
	fsData := testimage.New(testimage.Options{}).Bytes()

	tests := []struct {
		name       string
		data       []byte
		wantOffset int64
		wantMethod string
	}{
		{"raw filesystem", fsData, 0, "raw"},
		{"gpt partition", gptImage(fsData), 2048 * lbaSize, "gpt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := OpenImage(writeFile(t, tt.data), nil, quietLogger())
			require.NoError(t, err)
			defer img.Close()

			offset, method, err := img.DetectOffset()
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantMethod, img.Stats().DetectionMethod)
		})
	}
}

func TestDetectOffsetNotFound(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty image", make([]byte, 64*1024)},
		{"tiny image", make([]byte, 100)},
		{"gpt without filesystem", gptImage(make([]byte, 4096))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := OpenImage(writeFile(t, tt.data), nil, quietLogger())
			require.NoError(t, err)
			defer img.Close()

			_, _, err = img.DetectOffset()
			assert.Error(t, err)
		})
	}
}

func TestFileImageWithFilesystem(t *testing.T) {
	b := testimage.New(testimage.Options{})
	b.WriteInode(2, testimage.Inode{Mode: types.ModeDir | 0o755, Format: types.DinodeFmtLocal})
	img, err := OpenImage(writeFile(t, gptImage(b.Bytes())), nil, quietLogger())
	require.NoError(t, err)
	defer img.Close()

	offset, _, err := img.DetectOffset()
	require.NoError(t, err)

	fs, err := services.Open(img, offset, types.FSTypeXFS, services.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer fs.Close()

	meta, err := fs.LookupInode(fs.RootInode())
	require.NoError(t, err)
	assert.True(t, meta.IsDir())
}

func TestGPTTypeGUID(t *testing.T) {
	got := GPTTypeGUID(linuxDataPartition)
	want := []byte{0xAF, 0x3D, 0xC6, 0x0F, 0x83, 0x84, 0x72, 0x47, 0x8E, 0x79, 0x3D, 0x69, 0xD8, 0x47, 0x7D, 0xE4}
	assert.Equal(t, want, got)
}
