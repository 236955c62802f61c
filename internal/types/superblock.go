package types

// Superblock
// The superblock is the first structure of the filesystem, at byte 0 of the
// volume. It describes the geometry and the feature set of the whole volume.

const (
	// SbMagic is the value of sb_magicnum ("XFSB").
	SbMagic uint32 = 0x58465342

	// SbOffset is the byte offset of the primary superblock from the start of the filesystem.
	SbOffset int64 = 0

	// SbSize is the size of the on-disk superblock structure decoded by this package.
	SbSize = 264
)

// Superblock version numbers (low four bits of sb_versionnum).
const (
	SbVersionNumbits uint16 = 0x000f
	SbVersion4       uint16 = 4
	SbVersion5       uint16 = 5

	// SbVersionMorebitsbit indicates that sb_features2 is valid.
	SbVersionMorebitsbit uint16 = 0x8000
)

// Version 5 compatible feature bits. No compatible features are defined, so
// every set bit is unknown.
const (
	SbFeatCompatAll uint32 = 0
)

// Version 5 read-only compatible feature bits.
const (
	// SbFeatRoCompatFinobt marks a free inode B+tree.
	SbFeatRoCompatFinobt uint32 = 1 << 0
	// SbFeatRoCompatRmapbt marks a reverse map B+tree.
	SbFeatRoCompatRmapbt uint32 = 1 << 1
	// SbFeatRoCompatReflink marks reflinked files.
	SbFeatRoCompatReflink uint32 = 1 << 2
	// SbFeatRoCompatInobtcnt marks inobt block counts in the group headers.
	SbFeatRoCompatInobtcnt uint32 = 1 << 3

	SbFeatRoCompatAll = SbFeatRoCompatFinobt | SbFeatRoCompatRmapbt |
		SbFeatRoCompatReflink | SbFeatRoCompatInobtcnt
)

// Version 5 incompatible feature bits.
const (
	// SbFeatIncompatFtype marks file types stored in directory entries.
	SbFeatIncompatFtype uint32 = 1 << 0
	// SbFeatIncompatSpinodes marks sparse inode chunks.
	SbFeatIncompatSpinodes uint32 = 1 << 1
	// SbFeatIncompatMetaUUID marks a metadata UUID distinct from sb_uuid.
	SbFeatIncompatMetaUUID uint32 = 1 << 2
	// SbFeatIncompatBigtime marks 64-bit timestamps.
	SbFeatIncompatBigtime uint32 = 1 << 3
	// SbFeatIncompatNeedsrepair marks a volume that needs repair before mounting.
	SbFeatIncompatNeedsrepair uint32 = 1 << 4
	// SbFeatIncompatNrext64 marks 64-bit extent counters. Group descriptors on
	// such volumes carry split 64-bit bitmap and inode table pointers.
	SbFeatIncompatNrext64 uint32 = 1 << 5

	SbFeatIncompatAll = SbFeatIncompatFtype | SbFeatIncompatSpinodes |
		SbFeatIncompatMetaUUID | SbFeatIncompatBigtime |
		SbFeatIncompatNeedsrepair | SbFeatIncompatNrext64
)

// Geometry bounds used by superblock validation.
const (
	MinSectorSizeLog = 9
	MaxSectorSizeLog = 15
	MinSectorSize    = 1 << MinSectorSizeLog
	MaxSectorSize    = 1 << MaxSectorSizeLog

	MinBlockSizeLog = 9
	MaxBlockSizeLog = 16
	MinBlockSize    = 1 << MinBlockSizeLog
	MaxBlockSize    = 1 << MaxBlockSizeLog

	// MinCRCBlockSize is the smallest block size a version 5 superblock may use.
	MinCRCBlockSize = 1 << (MinBlockSizeLog + 1)

	DinodeMinLog  = 8
	DinodeMaxLog  = 11
	DinodeMinSize = 1 << DinodeMinLog
	DinodeMaxSize = 1 << DinodeMaxLog

	// MaxLogRecordBSize bounds sb_logsunit.
	MaxLogRecordBSize = 256 * 1024

	MinRtExtSize = 4 * 1024
	MaxRtExtSize = 1024 * 1024 * 1024

	// MinAgBlocks is the smallest number of blocks an allocation group may hold.
	MinAgBlocks = 64

	// MinInodeCount is the heuristic floor below which an image is not
	// considered to hold this filesystem at all.
	MinInodeCount = 10
)

// SupportedInodeSizes lists the inode sizes this package can decode.
var SupportedInodeSizes = []uint16{256, 512, 1024, 2048}

// SbT is the on-disk superblock (xfs_dsb). Field order and widths match the
// disk layout exactly; the structure is decoded with restruct in the byte order
// detected from sb_magicnum.
type SbT struct {
	// Magic number, must be SbMagic.
	Magicnum uint32
	// Filesystem block size in bytes.
	Blocksize uint32
	// Number of blocks in the data subvolume.
	Dblocks uint64
	// Number of blocks in the realtime subvolume.
	Rblocks uint64
	// Number of realtime extents.
	Rextents uint64
	// Filesystem UUID.
	UUID [16]byte
	// First block of the internal log, zero for an external log.
	Logstart uint64
	// Root directory inode number.
	Rootino uint64
	// Realtime bitmap inode.
	Rbmino uint64
	// Realtime summary inode.
	Rsumino uint64
	// Realtime extent size in blocks.
	Rextsize uint32
	// Blocks per allocation group (the block group size).
	Agblocks uint32
	// Number of allocation groups.
	Agcount uint32
	// Number of realtime bitmap blocks.
	Rbmblocks uint32
	// Number of log blocks.
	Logblocks uint32
	// Version number and feature bits.
	Versionnum uint16
	// Sector size in bytes.
	Sectsize uint16
	// Inode size in bytes.
	Inodesize uint16
	// Inodes per block.
	Inopblock uint16
	// Filesystem label.
	Fname [12]byte
	// log2 of Blocksize.
	Blocklog uint8
	// log2 of Sectsize.
	Sectlog uint8
	// log2 of Inodesize.
	Inodelog uint8
	// log2 of Inopblock.
	Inopblog uint8
	// log2 of Agblocks, rounded up.
	Agblklog uint8
	// log2 of Rextents.
	Rextslog uint8
	// Set while mkfs is in progress.
	Inprogress uint8
	// Maximum percentage of space used by inodes.
	ImaxPct uint8
	// Allocated inode count.
	Icount uint64
	// Free inode count.
	Ifree uint64
	// Free data block count.
	Fdblocks uint64
	// Free realtime extent count.
	Frextents uint64
	// User quota inode.
	Uquotino uint64
	// Group quota inode.
	Gquotino uint64
	// Quota flags.
	Qflags uint16
	// Miscellaneous flags.
	Flags uint8
	// Shared version number, must be zero.
	SharedVn uint8
	// Inode chunk alignment in blocks.
	Inoalignmt uint32
	// Stripe unit.
	Unit uint32
	// Stripe width.
	Width uint32
	// log2 of directory block size in filesystem blocks.
	Dirblklog uint8
	// log2 of log sector size.
	Logsectlog uint8
	// Log sector size.
	Logsectsize uint16
	// Log stripe unit.
	Logsunit uint32
	// Additional version 4 feature flags.
	Features2 uint32
	// Copy of Features2 kept for old kernels.
	BadFeatures2 uint32
	// Version 5 compatible features.
	FeaturesCompat uint32
	// Version 5 read-only compatible features.
	FeaturesRoCompat uint32
	// Version 5 incompatible features.
	FeaturesIncompat uint32
	// Version 5 log incompatible features.
	FeaturesLogIncompat uint32
	// Superblock CRC.
	CRC uint32
	// Sparse inode chunk alignment.
	SpinoAlign uint32
	// Project quota inode.
	Pquotino uint64
	// Last write sequence number.
	Lsn int64
	// Metadata UUID, used when SbFeatIncompatMetaUUID is set.
	MetaUUID [16]byte
}

// Version returns the superblock version number.
func (sb *SbT) Version() uint16 {
	return sb.Versionnum & SbVersionNumbits
}

// IsV5 reports whether this is a version 5 (CRC-enabled) superblock.
func (sb *SbT) IsV5() bool {
	return sb.Version() == SbVersion5
}

// HasIncompat reports whether any of the given incompatible feature bits are set.
func (sb *SbT) HasIncompat(mask uint32) bool {
	return sb.IsV5() && sb.FeaturesIncompat&mask != 0
}

// MaxDblocks is the largest data block count consistent with the group geometry.
func (sb *SbT) MaxDblocks() uint64 {
	return uint64(sb.Agcount) * uint64(sb.Agblocks)
}

// MinDblocks is the smallest data block count consistent with the group geometry.
func (sb *SbT) MinDblocks() uint64 {
	if sb.Agcount == 0 {
		return MinAgBlocks
	}
	return uint64(sb.Agcount-1)*uint64(sb.Agblocks) + MinAgBlocks
}
