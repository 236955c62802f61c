package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// superblockReader implements the SuperblockReader interface
type superblockReader struct {
	superblock *types.SbT
	endian     binary.ByteOrder
	warnings   []string
}

// DetectByteOrder guesses the byte order of a superblock from its magic
// number. Big-endian is the native on-disk order; a little-endian match is
// accepted for images produced by foreign-endian tooling.
func DetectByteOrder(data []byte) (binary.ByteOrder, error) {
	if len(data) < 4 {
		return nil, types.NewError(types.KindBadMagic, "data too small for superblock magic: %d bytes", len(data))
	}
	switch {
	case binary.BigEndian.Uint32(data[0:4]) == types.SbMagic:
		return binary.BigEndian, nil
	case binary.LittleEndian.Uint32(data[0:4]) == types.SbMagic:
		return binary.LittleEndian, nil
	}
	return nil, types.NewError(types.KindBadMagic, "invalid superblock magic: got 0x%08X, want 0x%08X",
		binary.BigEndian.Uint32(data[0:4]), types.SbMagic)
}

// NewSuperblockReader decodes and validates a superblock. It performs no I/O.
func NewSuperblockReader(data []byte, endian binary.ByteOrder) (interfaces.SuperblockReader, error) {
	if len(data) < types.SbSize {
		return nil, types.NewError(types.KindInvalidArgument, "data too small for superblock: %d bytes", len(data))
	}
	if endian == nil {
		return nil, types.NewError(types.KindInvalidArgument, "byte order must be provided")
	}

	sb, err := parseSuperblock(data, endian)
	if err != nil {
		return nil, err
	}

	warnings, err := ValidateSuperblock(sb)
	if err != nil {
		return nil, err
	}

	return &superblockReader{
		superblock: sb,
		endian:     endian,
		warnings:   warnings,
	}, nil
}

// parseSuperblock unpacks raw bytes into an SbT structure
func parseSuperblock(data []byte, endian binary.ByteOrder) (*types.SbT, error) {
	sb := &types.SbT{}
	if err := restruct.Unpack(data[:types.SbSize], endian, sb); err != nil {
		return nil, types.WrapError(types.KindCorrupt, err, "failed to decode superblock")
	}
	return sb, nil
}

// ValidateSuperblock runs the superblock checks in order and stops at the
// first failure. Unknown compatible and read-only compatible feature bits on
// a version 5 superblock do not fail validation; they are returned as
// warnings.
func ValidateSuperblock(sb *types.SbT) ([]string, error) {
	if sb.Magicnum != types.SbMagic {
		return nil, types.NewError(types.KindBadMagic, "invalid superblock magic: got 0x%08X, want 0x%08X", sb.Magicnum, types.SbMagic)
	}

	version := sb.Version()
	if version != types.SbVersion4 && version != types.SbVersion5 {
		return nil, types.NewError(types.KindUnsupportedVersion, "unsupported superblock version %d", version)
	}

	var warnings []string
	if sb.IsV5() {
		if unknown := sb.FeaturesIncompat &^ types.SbFeatIncompatAll; unknown != 0 {
			return nil, types.NewError(types.KindUnsupportedVersion, "unknown incompatible features 0x%x", unknown)
		}
		if unknown := sb.FeaturesCompat &^ types.SbFeatCompatAll; unknown != 0 {
			warnings = append(warnings, fmt.Sprintf("unknown compatible features 0x%x", unknown))
		}
		if unknown := sb.FeaturesRoCompat &^ types.SbFeatRoCompatAll; unknown != 0 {
			warnings = append(warnings, fmt.Sprintf("unknown read-only compatible features 0x%x", unknown))
		}
	}

	if err := validateGeometry(sb); err != nil {
		return nil, err
	}

	if sb.IsV5() && sb.Blocksize < types.MinCRCBlockSize {
		return nil, types.NewError(types.KindCorrupt, "block size %d below version 5 minimum %d", sb.Blocksize, types.MinCRCBlockSize)
	}

	if !supportedInodeSize(sb.Inodesize) {
		return nil, types.NewError(types.KindUnsupportedInodeSize, "unsupported inode size %d", sb.Inodesize)
	}

	return warnings, nil
}

// validateGeometry checks the cross-field sanity rules. Every failure is
// reported as corruption.
func validateGeometry(sb *types.SbT) error {
	corrupt := func(format string, args ...interface{}) error {
		return types.NewError(types.KindCorrupt, format, args...)
	}

	if sb.Agcount == 0 {
		return corrupt("group count is zero")
	}

	if sb.Sectsize < types.MinSectorSize || sb.Sectsize > types.MaxSectorSize ||
		sb.Sectlog < types.MinSectorSizeLog || sb.Sectlog > types.MaxSectorSizeLog ||
		uint32(sb.Sectsize) != 1<<sb.Sectlog {
		return corrupt("invalid sector size %d (log %d)", sb.Sectsize, sb.Sectlog)
	}

	if sb.Blocksize < types.MinBlockSize || sb.Blocksize > types.MaxBlockSize ||
		sb.Blocklog < types.MinBlockSizeLog || sb.Blocklog > types.MaxBlockSizeLog ||
		sb.Blocksize != 1<<sb.Blocklog {
		return corrupt("invalid block size %d (log %d)", sb.Blocksize, sb.Blocklog)
	}

	if int(sb.Blocklog)+int(sb.Dirblklog) > types.MaxBlockSizeLog {
		return corrupt("directory block log %d too large for block log %d", sb.Dirblklog, sb.Blocklog)
	}

	if sb.Inodesize < types.DinodeMinSize || sb.Inodesize > types.DinodeMaxSize ||
		sb.Inodelog < types.DinodeMinLog || sb.Inodelog > types.DinodeMaxLog ||
		uint32(sb.Inodesize) != 1<<sb.Inodelog {
		return corrupt("invalid inode size %d (log %d)", sb.Inodesize, sb.Inodelog)
	}

	if sb.Logsunit > types.MaxLogRecordBSize {
		return corrupt("log stripe unit %d too large", sb.Logsunit)
	}

	if uint32(sb.Inopblock) != sb.Blocksize/uint32(sb.Inodesize) {
		return corrupt("inodes per block %d does not match block size %d / inode size %d",
			sb.Inopblock, sb.Blocksize, sb.Inodesize)
	}

	if int(sb.Blocklog)-int(sb.Inodelog) != int(sb.Inopblog) {
		return corrupt("inodes per block log %d does not match block log %d - inode log %d",
			sb.Inopblog, sb.Blocklog, sb.Inodelog)
	}

	rtBytes := uint64(sb.Rextsize) * uint64(sb.Blocksize)
	if rtBytes < types.MinRtExtSize || rtBytes > types.MaxRtExtSize {
		return corrupt("realtime extent size %d blocks out of range", sb.Rextsize)
	}

	if sb.ImaxPct > 100 {
		return corrupt("inode space percentage %d exceeds 100", sb.ImaxPct)
	}

	if sb.Dblocks == 0 {
		return corrupt("block count is zero")
	}

	if sb.Dblocks > sb.MaxDblocks() || sb.Dblocks < sb.MinDblocks() {
		return corrupt("block count %d outside group bounds [%d, %d]", sb.Dblocks, sb.MinDblocks(), sb.MaxDblocks())
	}

	if sb.SharedVn != 0 {
		return corrupt("shared version number %d is not zero", sb.SharedVn)
	}

	return nil
}

func supportedInodeSize(size uint16) bool {
	for _, s := range types.SupportedInodeSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Superblock returns the raw decoded structure
func (sr *superblockReader) Superblock() *types.SbT {
	return sr.superblock
}

// Endian returns the byte order the superblock was decoded with
func (sr *superblockReader) Endian() binary.ByteOrder {
	return sr.endian
}

// Version returns the superblock version
func (sr *superblockReader) Version() uint16 {
	return sr.superblock.Version()
}

// BlockSize returns the filesystem block size in bytes
func (sr *superblockReader) BlockSize() uint32 {
	return sr.superblock.Blocksize
}

// SectorSize returns the sector size in bytes
func (sr *superblockReader) SectorSize() uint16 {
	return sr.superblock.Sectsize
}

// InodeSize returns the on-disk inode size in bytes
func (sr *superblockReader) InodeSize() uint16 {
	return sr.superblock.Inodesize
}

// InodesPerBlock returns the number of inodes per block
func (sr *superblockReader) InodesPerBlock() uint16 {
	return sr.superblock.Inopblock
}

// BlockCount returns the number of data blocks
func (sr *superblockReader) BlockCount() uint64 {
	return sr.superblock.Dblocks
}

// FreeBlockCount returns the number of free data blocks
func (sr *superblockReader) FreeBlockCount() uint64 {
	return sr.superblock.Fdblocks
}

// InodeCount returns the number of inodes
func (sr *superblockReader) InodeCount() uint64 {
	return sr.superblock.Icount
}

// FreeInodeCount returns the number of free inodes
func (sr *superblockReader) FreeInodeCount() uint64 {
	return sr.superblock.Ifree
}

// RootInode returns the root directory inode number
func (sr *superblockReader) RootInode() types.InumT {
	return types.InumT(sr.superblock.Rootino)
}

// GroupBlocks returns the number of blocks per group
func (sr *superblockReader) GroupBlocks() uint32 {
	return sr.superblock.Agblocks
}

// GroupCount returns the number of groups
func (sr *superblockReader) GroupCount() uint32 {
	return sr.superblock.Agcount
}

// UUID returns the filesystem UUID
func (sr *superblockReader) UUID() uuid.UUID {
	id, _ := uuid.FromBytes(sr.superblock.UUID[:])
	return id
}

// MetaUUID returns the metadata UUID
func (sr *superblockReader) MetaUUID() uuid.UUID {
	if !sr.superblock.HasIncompat(types.SbFeatIncompatMetaUUID) {
		return sr.UUID()
	}
	id, _ := uuid.FromBytes(sr.superblock.MetaUUID[:])
	return id
}

// Label returns the filesystem label with trailing NULs removed
func (sr *superblockReader) Label() string {
	return string(bytes.TrimRight(sr.superblock.Fname[:], "\x00"))
}

// Features returns the names of the enabled feature bits
func (sr *superblockReader) Features() []string {
	return FeatureNames(sr.superblock)
}

// Warnings returns advisory diagnostics raised during validation
func (sr *superblockReader) Warnings() []string {
	return sr.warnings
}
