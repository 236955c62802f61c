package services

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/parsers/groups"
	"github.com/deploymenttheory/go-xfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger logrus.FieldLogger
}

// WithLogger routes the handle's diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func defaultLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// Filesystem is an open, read-only filesystem handle. It is safe for
// concurrent use; the group cache is the only mutable state and is guarded by
// mu.
type Filesystem struct {
	img    interfaces.Image
	offset int64
	endian binary.ByteOrder
	sb     interfaces.SuperblockReader
	log    logrus.FieldLogger

	blockSize        uint32
	inodeSize        uint32
	groupBlocks      uint64
	groupCount       uint32
	descSize         int
	descTableStart   types.DaddrT
	descTableBlocks  uint64
	firstDataBlock   types.DaddrT
	firstBlock       types.DaddrT
	lastBlock        types.DaddrT
	firstInode       types.InumT
	lastInode        types.InumT
	inodesPerGroup   uint64
	inodeTableBlocks uint64
	warnings         []string

	mu     sync.Mutex
	cache  *groupCache
	closed bool
}

// Open reads and validates the superblock found at offset bytes into img and
// returns a handle. fsType must select this format or ask for detection.
func Open(img interfaces.Image, offset int64, fsType types.FSType, opts ...Option) (*Filesystem, error) {
	o := openOptions{logger: defaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	if img == nil {
		return nil, types.NewError(types.KindInvalidArgument, "image must not be nil")
	}
	if !fsType.IsXFS() {
		return nil, types.NewError(types.KindInvalidArgument, "filesystem type %s is not handled by this parser", fsType)
	}
	if img.SectorSize() == 0 {
		return nil, types.NewError(types.KindInvalidArgument, "sector size is zero")
	}
	if offset < 0 {
		return nil, types.NewError(types.KindInvalidArgument, "negative image offset %d", offset)
	}

	log := o.logger.WithField("component", "xfs")

	data, err := readImage(img, offset+types.SbOffset, types.SbSize)
	if err != nil {
		return nil, err
	}

	endian, err := superblock.DetectByteOrder(data)
	if err != nil {
		return nil, err
	}

	sbReader, err := superblock.NewSuperblockReader(data, endian)
	if err != nil {
		return nil, err
	}

	sb := sbReader.Superblock()
	if sb.Icount < types.MinInodeCount {
		return nil, types.NewError(types.KindNotThisFormat, "inode count %d below minimum %d", sb.Icount, types.MinInodeCount)
	}

	fs := &Filesystem{
		img:    img,
		offset: offset,
		endian: endian,
		sb:     sbReader,
		log:    log,
		cache:  newGroupCache(),
	}
	if err := fs.computeGeometry(); err != nil {
		return nil, err
	}

	for _, w := range fs.warnings {
		log.Warn(w)
	}
	log.WithFields(logrus.Fields{
		"inodes":     sb.Icount,
		"root_inode": sb.Rootino,
		"blocks":     sb.Dblocks,
		"block_size": sb.Blocksize,
		"groups":     sb.Agcount,
		"endian":     endian.String(),
	}).Debug("opened filesystem")

	return fs, nil
}

// computeGeometry derives the address ranges and group layout from the
// superblock.
func (fs *Filesystem) computeGeometry() error {
	sb := fs.sb.Superblock()
	bs := uint64(sb.Blocksize)

	fs.warnings = append(fs.warnings, fs.sb.Warnings()...)

	fs.blockSize = sb.Blocksize
	fs.inodeSize = uint32(sb.Inodesize)
	if fs.inodeSize < types.DinodeStructSize {
		fs.inodeSize = types.DinodeStructSize
	}
	fs.groupBlocks = uint64(sb.Agblocks)
	fs.groupCount = sb.Agcount
	fs.descSize = groups.DescriptorSize(sb)
	fs.descTableStart = types.DaddrT(types.Howmany(types.SbSize, bs))
	fs.descTableBlocks = types.Howmany(uint64(sb.Agcount)*uint64(fs.descSize), bs)
	fs.firstDataBlock = fs.descTableStart + types.DaddrT(fs.descTableBlocks)

	fs.firstBlock = 0
	fs.lastBlock = types.DaddrT(sb.Dblocks - 1)
	fs.firstInode = 1
	fs.lastInode = types.InumT(sb.Icount)

	fs.inodesPerGroup = types.Howmany(sb.Icount, uint64(sb.Agcount))
	fs.inodeTableBlocks = types.Howmany(fs.inodesPerGroup, bs/uint64(fs.inodeSize))

	if fs.firstDataBlock > fs.lastBlock {
		return types.NewError(types.KindCorrupt, "group descriptor table of %d blocks does not fit in %d blocks",
			fs.descTableBlocks, sb.Dblocks)
	}

	if fs.groupBlocks > bs*8 {
		fs.warnings = append(fs.warnings, fmt.Sprintf("group of %d blocks exceeds the %d bits of one bitmap block", fs.groupBlocks, bs*8))
	}
	if fs.inodesPerGroup > bs*8 {
		fs.warnings = append(fs.warnings, fmt.Sprintf("%d inodes per group exceed the %d bits of one bitmap block", fs.inodesPerGroup, bs*8))
	}
	if root := types.InumT(sb.Rootino); root < fs.firstInode || root > fs.lastInode {
		fs.warnings = append(fs.warnings, fmt.Sprintf("root inode %d outside inode range [%d, %d]", root, fs.firstInode, fs.lastInode))
	}
	return nil
}

// readImage reads exactly length bytes at an absolute image offset.
func readImage(img interfaces.Image, off int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := img.ReadAt(buf, off)
	if n < length {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, types.NewReadError(off, length, err, "short read of %d bytes", n)
	}
	return buf, nil
}

// readAt reads length bytes at a filesystem-relative byte offset.
func (fs *Filesystem) readAt(off int64, length int) ([]byte, error) {
	return readImage(fs.img, fs.offset+off, length)
}

// readBlock reads a block without the closed check.
func (fs *Filesystem) readBlock(addr types.DaddrT) ([]byte, error) {
	if addr > fs.lastBlock {
		return nil, types.NewError(types.KindInvalidArgument, "block %d beyond last block %d", addr, fs.lastBlock)
	}
	return fs.readAt(int64(addr)*int64(fs.blockSize), int(fs.blockSize))
}

func (fs *Filesystem) checkOpen() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return types.NewError(types.KindInvalidArgument, "filesystem handle is closed")
	}
	return nil
}

// ReadBlock reads one filesystem block.
func (fs *Filesystem) ReadBlock(addr types.DaddrT) ([]byte, error) {
	if err := fs.checkOpen(); err != nil {
		return nil, err
	}
	return fs.readBlock(addr)
}

// Close drops the group cache. Later calls that can fail return
// InvalidArgument.
func (fs *Filesystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return types.NewError(types.KindInvalidArgument, "filesystem handle is already closed")
	}
	fs.closed = true
	fs.cache.reset()
	return nil
}

// Superblock returns the validated superblock.
func (fs *Filesystem) Superblock() interfaces.SuperblockReader {
	return fs.sb
}

// Endian returns the byte order of the on-disk structures.
func (fs *Filesystem) Endian() binary.ByteOrder {
	return fs.endian
}

// Warnings returns advisory diagnostics raised while opening.
func (fs *Filesystem) Warnings() []string {
	return append([]string(nil), fs.warnings...)
}

// BlockSize returns the filesystem block size in bytes.
func (fs *Filesystem) BlockSize() uint32 { return fs.blockSize }

// InodeSize returns the inode byte size used by this handle.
func (fs *Filesystem) InodeSize() uint32 { return fs.inodeSize }

// FirstBlock returns the lowest valid block address.
func (fs *Filesystem) FirstBlock() types.DaddrT { return fs.firstBlock }

// LastBlock returns the highest valid block address.
func (fs *Filesystem) LastBlock() types.DaddrT { return fs.lastBlock }

// FirstDataBlock returns the first block described by a group.
func (fs *Filesystem) FirstDataBlock() types.DaddrT { return fs.firstDataBlock }

// FirstInode returns the lowest valid inode number.
func (fs *Filesystem) FirstInode() types.InumT { return fs.firstInode }

// LastInode returns the highest valid inode number.
func (fs *Filesystem) LastInode() types.InumT { return fs.lastInode }

// RootInode returns the root directory inode number.
func (fs *Filesystem) RootInode() types.InumT { return fs.sb.RootInode() }

// GroupCount returns the number of groups.
func (fs *Filesystem) GroupCount() uint32 { return fs.groupCount }

// InodesPerGroup returns the number of inode slots in each group.
func (fs *Filesystem) InodesPerGroup() uint64 { return fs.inodesPerGroup }

// InodeTableBlocks returns the length of each group's inode table.
func (fs *Filesystem) InodeTableBlocks() uint64 { return fs.inodeTableBlocks }

// GroupRange returns the first and last block of group g, clipped to the
// last block.
func (fs *Filesystem) GroupRange(g uint32) (types.DaddrT, types.DaddrT) {
	first := fs.firstDataBlock + types.DaddrT(uint64(g)*fs.groupBlocks)
	last := first + types.DaddrT(fs.groupBlocks) - 1
	if last > fs.lastBlock {
		last = fs.lastBlock
	}
	return first, last
}

var _ interfaces.Filesystem = (*Filesystem)(nil)
