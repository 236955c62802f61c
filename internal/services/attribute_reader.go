package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// AttributeReader reads the content of one attribute through its data runs.
// Logical blocks not covered by a run, and runs flagged unwritten, read as
// zeros. It implements io.Reader, io.ReaderAt and io.Seeker.
type AttributeReader struct {
	fs     *Filesystem
	attr   *types.Attribute
	offset int64
}

// NewAttributeReader returns a reader over attr.
func NewAttributeReader(fs *Filesystem, attr *types.Attribute) (*AttributeReader, error) {
	if fs == nil || attr == nil {
		return nil, types.NewError(types.KindInvalidArgument, "filesystem and attribute must not be nil")
	}
	return &AttributeReader{fs: fs, attr: attr}, nil
}

// OpenFile looks up inum, loads its attributes and returns a reader over its
// content together with the metadata record.
func (fs *Filesystem) OpenFile(inum types.InumT) (*AttributeReader, *types.Meta, error) {
	meta, err := fs.LookupInode(inum)
	if err != nil {
		return nil, nil, err
	}
	if err := fs.LoadAttributes(meta); err != nil {
		return nil, meta, err
	}

	attr := meta.Attrs.Get(types.AttrTypeDefault)
	if attr == nil {
		// Device inodes have no content.
		attr = &types.Attribute{Type: types.AttrTypeDefault, Flags: types.AttrFlagResident}
	}
	reader, err := NewAttributeReader(fs, attr)
	if err != nil {
		return nil, meta, err
	}
	return reader, meta, nil
}

// Size returns the attribute's logical size in bytes.
func (ar *AttributeReader) Size() int64 {
	return int64(ar.attr.Size)
}

// ReadAt reads len(p) bytes at off. It returns io.EOF when fewer bytes remain.
func (ar *AttributeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset: %d", off)
	}
	size := ar.Size()
	if off >= size {
		return 0, io.EOF
	}

	want := p
	if remaining := size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}

	var n int
	var err error
	if ar.attr.Flags&types.AttrFlagResident != 0 {
		n = copy(want, ar.attr.Resident[off:])
	} else {
		n, err = ar.readRuns(want, off)
	}
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readRuns fills p from the runs, block by block.
func (ar *AttributeReader) readRuns(p []byte, off int64) (int, error) {
	bs := int64(ar.fs.blockSize)
	n := 0
	for n < len(p) {
		pos := off + int64(n)
		logical := uint64(pos / bs)
		within := pos % bs
		chunk := int(bs - within)
		if chunk > len(p)-n {
			chunk = len(p) - n
		}

		run, ok := ar.findRun(logical)
		if !ok || run.Flags&types.RunFlagUnwritten != 0 {
			clear(p[n : n+chunk])
			n += chunk
			continue
		}

		addr := run.Addr + types.DaddrT(logical-run.Offset)
		data, err := ar.fs.ReadBlock(addr)
		if err != nil {
			return n, fmt.Errorf("failed to read block %d of inode content: %w", addr, err)
		}
		n += copy(p[n:n+chunk], data[within:])
	}
	return n, nil
}

// findRun returns the run covering logical block lb.
func (ar *AttributeReader) findRun(lb uint64) (types.DataRun, bool) {
	runs := ar.attr.Runs
	i := sort.Search(len(runs), func(i int) bool { return runs[i].End() > lb })
	if i < len(runs) && runs[i].Offset <= lb {
		return runs[i], true
	}
	return types.DataRun{}, false
}

// Read implements io.Reader.
func (ar *AttributeReader) Read(p []byte) (int, error) {
	if ar.offset >= ar.Size() {
		return 0, io.EOF
	}
	n, err := ar.ReadAt(p, ar.offset)
	ar.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Seek implements io.Seeker.
func (ar *AttributeReader) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64

	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = ar.offset + offset
	case io.SeekEnd:
		newOffset = ar.Size() + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}

	if newOffset < 0 {
		return 0, fmt.Errorf("negative offset: %d", newOffset)
	}

	ar.offset = newOffset
	return newOffset, nil
}
