package inodes

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// inodeReader implements the InodeReader interface
type inodeReader struct {
	core *types.DinodeCoreT
	fork []byte
}

// NewInodeReader decodes an inode slot. data must hold the whole slot so the
// literal area after the core can be located.
func NewInodeReader(data []byte, endian binary.ByteOrder) (interfaces.InodeReader, error) {
	if len(data) < types.DinodeCoreSizeV2 {
		return nil, types.NewError(types.KindCorrupt, "data too small for inode core: %d bytes", len(data))
	}

	core := parseDinodeCore(data, endian)
	if core.Magic != types.DinodeMagic {
		return nil, types.NewError(types.KindCorrupt, "invalid inode magic: got 0x%04X, want 0x%04X", core.Magic, types.DinodeMagic)
	}
	if core.Version >= 3 {
		if len(data) < types.DinodeCoreSizeV3 {
			return nil, types.NewError(types.KindCorrupt, "data too small for version 3 inode core: %d bytes", len(data))
		}
		parseDinodeCoreV3(core, data, endian)
	}

	fork, err := dataFork(core, data)
	if err != nil {
		return nil, err
	}

	return &inodeReader{core: core, fork: fork}, nil
}

// parseDinodeCore parses the fields shared by every inode version
func parseDinodeCore(data []byte, endian binary.ByteOrder) *types.DinodeCoreT {
	core := &types.DinodeCoreT{}
	core.Magic = endian.Uint16(data[0:2])
	core.Mode = endian.Uint16(data[2:4])
	core.Version = data[4]
	core.Format = types.DinodeFormat(data[5])
	core.Onlink = endian.Uint16(data[6:8])
	core.UID = endian.Uint32(data[8:12])
	core.GID = endian.Uint32(data[12:16])
	core.Nlink = endian.Uint32(data[16:20])
	core.ProjidLo = endian.Uint16(data[20:22])
	core.ProjidHi = endian.Uint16(data[22:24])
	// bytes 24-29 are padding
	core.Flushiter = endian.Uint16(data[30:32])
	core.Atime = parseTimestamp(data[32:40], endian)
	core.Mtime = parseTimestamp(data[40:48], endian)
	core.Ctime = parseTimestamp(data[48:56], endian)
	core.Size = endian.Uint64(data[56:64])
	core.Nblocks = endian.Uint64(data[64:72])
	core.Extsize = endian.Uint32(data[72:76])
	core.Nextents = endian.Uint32(data[76:80])
	core.Anextents = endian.Uint16(data[80:82])
	core.Forkoff = data[82]
	core.Aformat = data[83]
	core.Dmevmask = endian.Uint32(data[84:88])
	core.Dmstate = endian.Uint16(data[88:90])
	core.Flags = endian.Uint16(data[90:92])
	core.Gen = endian.Uint32(data[92:96])
	core.NextUnlinked = endian.Uint32(data[96:100])

	// Version 1 inodes keep the link count in di_onlink.
	if core.Version == 1 {
		core.Nlink = uint32(core.Onlink)
	}
	return core
}

// parseDinodeCoreV3 parses the fields added by version 3 inodes
func parseDinodeCoreV3(core *types.DinodeCoreT, data []byte, endian binary.ByteOrder) {
	core.CRC = endian.Uint32(data[100:104])
	core.Changecount = endian.Uint64(data[104:112])
	core.Lsn = endian.Uint64(data[112:120])
	core.Flags2 = endian.Uint64(data[120:128])
	core.Cowextsize = endian.Uint32(data[128:132])
	// bytes 132-143 are padding
	core.Crtime = parseTimestamp(data[144:152], endian)
	core.Ino = endian.Uint64(data[152:160])
	copy(core.UUID[:], data[160:176])
}

func parseTimestamp(data []byte, endian binary.ByteOrder) types.TimestampT {
	return types.TimestampT{
		Sec:  int32(endian.Uint32(data[0:4])),
		Nsec: int32(endian.Uint32(data[4:8])),
	}
}

// dataFork returns the data fork slice of the literal area. A non-zero
// forkoff gives the data fork size in 8-byte units; otherwise the data fork
// fills the literal area.
func dataFork(core *types.DinodeCoreT, data []byte) ([]byte, error) {
	start := core.CoreSize()
	end := len(data)
	if core.Forkoff != 0 {
		end = start + int(core.Forkoff)*8
	}
	if end > len(data) {
		return nil, types.NewError(types.KindCorrupt, "inode fork offset %d beyond inode size %d", core.Forkoff, len(data))
	}
	return data[start:end], nil
}

// Core returns the decoded inode core
func (ir *inodeReader) Core() *types.DinodeCoreT {
	return ir.core
}

// Format returns the data fork format
func (ir *inodeReader) Format() types.DinodeFormat {
	return ir.core.Format
}

// Mode returns the raw file mode
func (ir *inodeReader) Mode() uint16 {
	return ir.core.Mode
}

// Size returns the file size in bytes
func (ir *inodeReader) Size() uint64 {
	return ir.core.Size
}

// IsDir reports whether the inode is a directory
func (ir *inodeReader) IsDir() bool {
	return ir.core.Mode&types.ModeFmt == types.ModeDir
}

// DataFork returns the data fork bytes
func (ir *inodeReader) DataFork() []byte {
	return ir.fork
}
