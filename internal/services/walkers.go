package services

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// WalkBlocks calls fn for every block in [start, end], in ascending order,
// whose classification passes flags. Block content is read unless flags
// contains BlockWalkFlagAddrOnly; a block that cannot be read is still
// reported, with Data nil and Err set.
func (fs *Filesystem) WalkBlocks(start, end types.DaddrT, flags types.BlockWalkFlags, fn interfaces.BlockWalkFunc) error {
	if fn == nil {
		return types.NewError(types.KindInvalidArgument, "block walk callback must not be nil")
	}
	if err := fs.checkOpen(); err != nil {
		return err
	}
	if start > end || start < fs.firstBlock || end > fs.lastBlock {
		return types.NewError(types.KindInvalidArgument, "invalid block range [%d, %d], valid range is [%d, %d]",
			start, end, fs.firstBlock, fs.lastBlock)
	}

	flags = flags.Normalize()
	log := fs.log.WithField("walk", "blocks")

	for addr := start; ; addr++ {
		bf := fs.BlockFlags(addr)
		if flags.Matches(bf) {
			block := &types.Block{Addr: addr, Flags: bf}
			if flags&types.BlockWalkFlagAddrOnly == 0 {
				data, err := fs.readBlock(addr)
				if err != nil {
					log.WithField("block", addr).WithError(err).Debug("block read failed")
					block.Err = err
				} else {
					block.Data = data
				}
			}

			if err := fn(block); err != nil {
				if errors.Is(err, types.ErrStopWalk) {
					return nil
				}
				return err
			}
		}
		if addr == end {
			break
		}
	}
	return nil
}

// WalkInodes calls fn for every inode in [start, end], in ascending order,
// whose flags pass the filter. Inodes that cannot be decoded are reported as
// a minimal record flagged MetaFlagUnused.
func (fs *Filesystem) WalkInodes(start, end types.InumT, flags types.MetaFlags, fn interfaces.InodeWalkFunc) error {
	if fn == nil {
		return types.NewError(types.KindInvalidArgument, "inode walk callback must not be nil")
	}
	if err := fs.checkOpen(); err != nil {
		return err
	}
	if start > end || start < fs.firstInode || end > fs.lastInode {
		return types.NewError(types.KindInvalidArgument, "invalid inode range [%d, %d], valid range is [%d, %d]",
			start, end, fs.firstInode, fs.lastInode)
	}

	flags = flags.Normalize()
	log := fs.log.WithField("walk", "inodes")

	for inum := start; ; inum++ {
		alloc := fs.InodeFlags(inum)
		// Skip the read when the allocation state alone rules the inode out.
		if flags.Matches(alloc) {
			meta, err := fs.LookupInode(inum)
			if err != nil {
				log.WithFields(logrus.Fields{"inode": inum}).WithError(err).Debug("inode lookup failed")
				meta = &types.Meta{Addr: inum, Flags: alloc | types.MetaFlagUnused}
			}

			if flags.Matches(meta.Flags) {
				if err := fn(meta); err != nil {
					if errors.Is(err, types.ErrStopWalk) {
						return nil
					}
					return err
				}
			}
		}
		if inum == end {
			break
		}
	}
	return nil
}
