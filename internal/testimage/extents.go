package testimage

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// Extent returns a leaf entry mapping length blocks at logical to start.
func Extent(logical uint32, start uint64, length uint16) types.ExtentT {
	return types.ExtentT{
		Block:   logical,
		Len:     length,
		StartHi: uint16(start >> 32),
		StartLo: uint32(start),
	}
}

// Index returns an interior entry for the subtree at child covering logical.
func Index(logical uint32, child uint64) types.ExtentIdxT {
	return types.ExtentIdxT{
		Block:  logical,
		LeafLo: uint32(child),
		LeafHi: uint16(child >> 32),
	}
}

func nodeHeader(endian binary.ByteOrder, buf []byte, entries int, depth uint16) {
	max := 0
	if len(buf) >= types.ExtentHeaderSize {
		max = (len(buf) - types.ExtentHeaderSize) / types.ExtentEntrySize
	}
	endian.PutUint16(buf[0:2], types.ExtentMagic)
	endian.PutUint16(buf[2:4], uint16(entries))
	endian.PutUint16(buf[4:6], uint16(max))
	endian.PutUint16(buf[6:8], depth)
}

// LeafNode encodes a depth-0 node of size bytes holding extents.
func LeafNode(endian binary.ByteOrder, size int, extents ...types.ExtentT) []byte {
	buf := make([]byte, size)
	nodeHeader(endian, buf, len(extents), 0)
	for i, e := range extents {
		p := buf[types.ExtentHeaderSize+i*types.ExtentEntrySize:]
		endian.PutUint32(p[0:4], e.Block)
		endian.PutUint16(p[4:6], e.Len)
		endian.PutUint16(p[6:8], e.StartHi)
		endian.PutUint32(p[8:12], e.StartLo)
	}
	return buf
}

// IndexNode encodes an interior node of size bytes at the given depth.
func IndexNode(endian binary.ByteOrder, size int, depth uint16, indices ...types.ExtentIdxT) []byte {
	buf := make([]byte, size)
	nodeHeader(endian, buf, len(indices), depth)
	for i, idx := range indices {
		p := buf[types.ExtentHeaderSize+i*types.ExtentEntrySize:]
		endian.PutUint32(p[0:4], idx.Block)
		endian.PutUint32(p[4:8], idx.LeafLo)
		endian.PutUint16(p[8:10], idx.LeafHi)
	}
	return buf
}
