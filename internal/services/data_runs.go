package services

import (
	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/parsers/extents"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// LoadAttributes builds meta's attribute list from its data fork.
//
// A studied list is returned as is without touching the image, and a list
// whose previous build failed returns the recorded error. Otherwise the list
// is rebuilt: inline inodes get one resident attribute, extent-mapped inodes
// get a default attribute holding one run per extent, plus an extent index
// attribute listing every tree block below the root when the root is an
// interior node. On failure the list is emptied, marked as errored and the
// error is kept on meta.
func (fs *Filesystem) LoadAttributes(meta *types.Meta) error {
	if meta == nil {
		return types.NewError(types.KindInvalidArgument, "metadata record must not be nil")
	}

	switch meta.AttrState {
	case types.AttrStateStudied:
		return nil
	case types.AttrStateError:
		if meta.AttrErr == nil {
			return types.NewError(types.KindCorrupt, "inode %d attributes previously failed to load", meta.Addr)
		}
		return meta.AttrErr
	}

	if err := fs.checkOpen(); err != nil {
		return err
	}

	if meta.Attrs == nil {
		meta.Attrs = types.NewAttrList()
	} else {
		meta.Attrs.Reset()
	}

	if err := fs.buildAttributes(meta); err != nil {
		meta.Attrs.Reset()
		meta.AttrState = types.AttrStateError
		meta.AttrErr = err
		fs.log.WithField("inode", meta.Addr).WithError(err).Debug("failed to load attributes")
		return err
	}

	meta.AttrState = types.AttrStateStudied
	meta.AttrErr = nil
	return nil
}

func (fs *Filesystem) buildAttributes(meta *types.Meta) error {
	switch meta.ContentType {
	case types.ContentTypeNone:
		return nil
	case types.ContentTypeInline:
		return fs.buildResident(meta)
	}

	attr := meta.Attrs.Add(types.AttrTypeDefault, types.AttrFlagNonResident)
	attr.Size = meta.Size
	attr.AllocSize = types.Roundup(meta.Size, uint64(fs.blockSize))

	root, err := extents.NewExtentNodeReader(meta.Content, fs.endian)
	if err != nil {
		return err
	}

	if root.IsLeaf() {
		return fs.addExtents(attr, root.Extents())
	}
	if len(root.Indices()) == 0 {
		return nil
	}

	count, err := fs.countIndexBlocks(root, 0, make(map[types.DaddrT]struct{}))
	if err != nil {
		return err
	}

	index := meta.Attrs.Add(types.AttrTypeExtentIndex, types.AttrFlagNonResident)
	index.Size = count * uint64(fs.blockSize)
	index.AllocSize = index.Size

	if err := fs.descend(root, attr, index, 0, make(map[types.DaddrT]struct{}, count)); err != nil {
		return err
	}
	if visited := index.MappedBlocks(); visited != count {
		return types.NewError(types.KindCorrupt, "extent tree visited %d blocks, counted %d", visited, count)
	}
	return nil
}

// buildResident stores inline file bytes in a resident attribute.
func (fs *Filesystem) buildResident(meta *types.Meta) error {
	if meta.Size > uint64(len(meta.Content)) {
		return types.NewError(types.KindCorrupt, "inline size %d exceeds data fork size %d", meta.Size, len(meta.Content))
	}
	attr := meta.Attrs.Add(types.AttrTypeDefault, types.AttrFlagResident)
	attr.Size = meta.Size
	attr.AllocSize = meta.Size
	attr.Resident = meta.Content[:meta.Size]
	return nil
}

// addExtents appends one run per leaf extent to attr.
func (fs *Filesystem) addExtents(attr *types.Attribute, exts []types.ExtentT) error {
	for _, e := range exts {
		run := types.DataRun{
			Offset: uint64(e.Block),
			Addr:   extents.ExtentStart(e),
			Len:    uint64(e.Length()),
		}
		if e.Unwritten() {
			run.Flags |= types.RunFlagUnwritten
		}
		if run.Len > 0 && (run.Addr < fs.firstDataBlock || uint64(run.Addr)+run.Len-1 > uint64(fs.lastBlock)) {
			return types.NewError(types.KindCorrupt, "extent at logical block %d maps blocks [%d, %d] outside filesystem",
				run.Offset, run.Addr, uint64(run.Addr)+run.Len-1)
		}
		if err := attr.AddRun(run); err != nil {
			return err
		}
	}
	return nil
}

// readExtentNode reads and decodes the tree block at addr and checks that it
// sits at the expected depth.
func (fs *Filesystem) readExtentNode(addr types.DaddrT, depth uint16) (interfaces.ExtentNodeReader, error) {
	if addr < fs.firstDataBlock || addr > fs.lastBlock {
		return nil, types.NewError(types.KindCorrupt, "extent tree block %d outside [%d, %d]", addr, fs.firstDataBlock, fs.lastBlock)
	}
	data, err := fs.readBlock(addr)
	if err != nil {
		return nil, err
	}
	node, err := extents.NewExtentNodeReader(data, fs.endian)
	if err != nil {
		return nil, types.WrapError(types.KindCorrupt, err, "extent tree block %d", addr)
	}
	if node.Depth() != depth {
		return nil, types.NewError(types.KindCorrupt, "extent tree block %d has depth %d, expected %d", addr, node.Depth(), depth)
	}
	return node, nil
}

// visitTreeBlock records addr in seen. A tree block referenced twice is
// corrupt.
func visitTreeBlock(seen map[types.DaddrT]struct{}, addr types.DaddrT) error {
	if _, ok := seen[addr]; ok {
		return types.NewError(types.KindCorrupt, "extent tree block %d referenced more than once", addr)
	}
	seen[addr] = struct{}{}
	return nil
}

// countIndexBlocks returns the number of tree blocks reachable below node.
// level is the number of blocks already descended through and seen holds
// every tree block counted so far.
func (fs *Filesystem) countIndexBlocks(node interfaces.ExtentNodeReader, level int, seen map[types.DaddrT]struct{}) (uint64, error) {
	if node.IsLeaf() {
		return 0, nil
	}
	if level >= types.ExtentRecursionLimit {
		return 0, types.NewError(types.KindCorrupt, "extent tree deeper than %d levels", types.ExtentRecursionLimit)
	}

	var count uint64
	for _, idx := range node.Indices() {
		addr := extents.IndexChild(idx)
		if err := visitTreeBlock(seen, addr); err != nil {
			return 0, err
		}
		child, err := fs.readExtentNode(addr, node.Depth()-1)
		if err != nil {
			return 0, err
		}
		sub, err := fs.countIndexBlocks(child, level+1, seen)
		if err != nil {
			return 0, err
		}
		count += 1 + sub
	}
	return count, nil
}

// descend records every tree block below node as a run of index and every
// leaf extent as a run of attr.
func (fs *Filesystem) descend(node interfaces.ExtentNodeReader, attr, index *types.Attribute, level int, seen map[types.DaddrT]struct{}) error {
	if level >= types.ExtentRecursionLimit {
		return types.NewError(types.KindCorrupt, "extent tree deeper than %d levels", types.ExtentRecursionLimit)
	}

	for _, idx := range node.Indices() {
		addr := extents.IndexChild(idx)
		if err := visitTreeBlock(seen, addr); err != nil {
			return err
		}
		if err := index.AddRun(types.DataRun{Offset: uint64(len(index.Runs)), Addr: addr, Len: 1}); err != nil {
			return err
		}

		child, err := fs.readExtentNode(addr, node.Depth()-1)
		if err != nil {
			return err
		}
		if child.IsLeaf() {
			if err := fs.addExtents(attr, child.Extents()); err != nil {
				return err
			}
			continue
		}
		if err := fs.descend(child, attr, index, level+1, seen); err != nil {
			return err
		}
	}
	return nil
}
