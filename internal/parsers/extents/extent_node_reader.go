package extents

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// extentNodeReader implements the ExtentNodeReader interface
type extentNodeReader struct {
	header  types.ExtentHeaderT
	extents []types.ExtentT
	indices []types.ExtentIdxT
}

// NewExtentNodeReader validates and decodes one extent tree node. data is the
// node's full byte budget: a filesystem block for child nodes, or the inode
// data fork for the root. The header magic is checked before anything else is
// interpreted.
func NewExtentNodeReader(data []byte, endian binary.ByteOrder) (interfaces.ExtentNodeReader, error) {
	if len(data) < types.ExtentHeaderSize {
		return nil, types.NewError(types.KindCorrupt, "data too small for extent header: %d bytes", len(data))
	}

	header := parseExtentHeader(data, endian)
	if header.Magic != types.ExtentMagic {
		return nil, types.NewError(types.KindCorrupt, "invalid extent header magic: got 0x%04X, want 0x%04X", header.Magic, types.ExtentMagic)
	}

	capacity := NodeCapacity(len(data))
	if header.Entries > header.Max || int(header.Entries) > capacity {
		what := "extents"
		if header.Depth > 0 {
			what = "extent indices"
		}
		return nil, types.NewError(types.KindCorrupt, "too many %s: %d entries, max %d, room for %d",
			what, header.Entries, header.Max, capacity)
	}

	if header.Depth > types.ExtentMaxDepth {
		return nil, types.NewError(types.KindCorrupt, "extent tree depth %d exceeds maximum %d", header.Depth, types.ExtentMaxDepth)
	}

	reader := &extentNodeReader{header: header}
	entries := data[types.ExtentHeaderSize:]
	if header.Depth == 0 {
		reader.extents = make([]types.ExtentT, header.Entries)
		for i := range reader.extents {
			reader.extents[i] = parseExtent(entries[i*types.ExtentEntrySize:], endian)
		}
	} else {
		reader.indices = make([]types.ExtentIdxT, header.Entries)
		for i := range reader.indices {
			reader.indices[i] = parseExtentIdx(entries[i*types.ExtentEntrySize:], endian)
		}
	}

	return reader, nil
}

// NodeCapacity returns how many entries physically fit after the header in a
// node of size bytes.
func NodeCapacity(size int) int {
	if size < types.ExtentHeaderSize {
		return 0
	}
	return (size - types.ExtentHeaderSize) / types.ExtentEntrySize
}

// parseExtentHeader parses the first 12 bytes of a node
func parseExtentHeader(data []byte, endian binary.ByteOrder) types.ExtentHeaderT {
	return types.ExtentHeaderT{
		Magic:      endian.Uint16(data[0:2]),
		Entries:    endian.Uint16(data[2:4]),
		Max:        endian.Uint16(data[4:6]),
		Depth:      endian.Uint16(data[6:8]),
		Generation: endian.Uint32(data[8:12]),
	}
}

// parseExtent parses a 12-byte leaf entry
func parseExtent(data []byte, endian binary.ByteOrder) types.ExtentT {
	return types.ExtentT{
		Block:   endian.Uint32(data[0:4]),
		Len:     endian.Uint16(data[4:6]),
		StartHi: endian.Uint16(data[6:8]),
		StartLo: endian.Uint32(data[8:12]),
	}
}

// parseExtentIdx parses a 12-byte interior entry
func parseExtentIdx(data []byte, endian binary.ByteOrder) types.ExtentIdxT {
	return types.ExtentIdxT{
		Block:  endian.Uint32(data[0:4]),
		LeafLo: endian.Uint32(data[4:8]),
		LeafHi: endian.Uint16(data[8:10]),
		Unused: endian.Uint16(data[10:12]),
	}
}

// Header returns the node header
func (r *extentNodeReader) Header() types.ExtentHeaderT {
	return r.header
}

// Depth returns the node's height above the leaves
func (r *extentNodeReader) Depth() uint16 {
	return r.header.Depth
}

// IsLeaf reports whether the node holds extents
func (r *extentNodeReader) IsLeaf() bool {
	return r.header.Depth == 0
}

// Extents returns the leaf entries
func (r *extentNodeReader) Extents() []types.ExtentT {
	return r.extents
}

// Indices returns the interior entries
func (r *extentNodeReader) Indices() []types.ExtentIdxT {
	return r.indices
}
