package report

import (
	"time"

	"github.com/deploymenttheory/go-xfs/internal/services"
)

// IStatRequest selects one inode to report on
type IStatRequest struct {
	Inode uint64
}

// BlocksRequest describes a block listing
type BlocksRequest struct {
	// Start and End bound the walk; a nil End means the last block
	Start uint64
	End   *uint64
	Flags []string
	Limit int
}

// InodesRequest describes an inode listing
type InodesRequest struct {
	// Start and End bound the walk; zero values mean the first and last inode
	Start uint64
	End   uint64
	Flags []string
	Limit int
}

// ScanRequest describes a whole-filesystem block scan
type ScanRequest struct {
	Workers     int
	ChunkBlocks uint64
}

// FSStatReport summarizes an open filesystem
type FSStatReport struct {
	Image          string              `json:"image" yaml:"image"`
	Offset         int64               `json:"offset" yaml:"offset"`
	Type           string              `json:"type" yaml:"type"`
	Endian         string              `json:"endian" yaml:"endian"`
	Version        uint16              `json:"version" yaml:"version"`
	UUID           string              `json:"uuid" yaml:"uuid"`
	MetaUUID       string              `json:"meta_uuid" yaml:"meta_uuid"`
	Label          string              `json:"label" yaml:"label"`
	Features       []string            `json:"features" yaml:"features"`
	BlockSize      uint32              `json:"block_size" yaml:"block_size"`
	SectorSize     uint16              `json:"sector_size" yaml:"sector_size"`
	InodeSize      uint16              `json:"inode_size" yaml:"inode_size"`
	BlockCount     uint64              `json:"block_count" yaml:"block_count"`
	FreeBlocks     uint64              `json:"free_blocks" yaml:"free_blocks"`
	InodeCount     uint64              `json:"inode_count" yaml:"inode_count"`
	FreeInodes     uint64              `json:"free_inodes" yaml:"free_inodes"`
	FirstBlock     uint64              `json:"first_block" yaml:"first_block"`
	LastBlock      uint64              `json:"last_block" yaml:"last_block"`
	FirstDataBlock uint64              `json:"first_data_block" yaml:"first_data_block"`
	FirstInode     uint64              `json:"first_inode" yaml:"first_inode"`
	LastInode      uint64              `json:"last_inode" yaml:"last_inode"`
	RootInode      uint64              `json:"root_inode" yaml:"root_inode"`
	GroupBlocks    uint32              `json:"group_blocks" yaml:"group_blocks"`
	InodesPerGroup uint64              `json:"inodes_per_group" yaml:"inodes_per_group"`
	Groups         []GroupReport       `json:"groups" yaml:"groups"`
	Warnings       []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Cache          services.CacheStats `json:"cache" yaml:"cache"`
}

// GroupReport describes one group descriptor
type GroupReport struct {
	Group       uint32 `json:"group" yaml:"group"`
	FirstBlock  uint64 `json:"first_block" yaml:"first_block"`
	LastBlock   uint64 `json:"last_block" yaml:"last_block"`
	BlockBitmap uint64 `json:"block_bitmap" yaml:"block_bitmap"`
	InodeBitmap uint64 `json:"inode_bitmap" yaml:"inode_bitmap"`
	InodeTable  uint64 `json:"inode_table" yaml:"inode_table"`
	FreeBlocks  uint32 `json:"free_blocks" yaml:"free_blocks"`
	FreeInodes  uint32 `json:"free_inodes" yaml:"free_inodes"`
	UsedDirs    uint32 `json:"used_dirs" yaml:"used_dirs"`
	Flags       uint16 `json:"flags" yaml:"flags"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// InodeReport describes one inode and its attribute list
type InodeReport struct {
	Inode      uint64            `json:"inode" yaml:"inode"`
	Flags      string            `json:"flags" yaml:"flags"`
	Mode       string            `json:"mode" yaml:"mode"`
	Nlink      uint32            `json:"nlink" yaml:"nlink"`
	UID        uint32            `json:"uid" yaml:"uid"`
	GID        uint32            `json:"gid" yaml:"gid"`
	Size       uint64            `json:"size" yaml:"size"`
	Blocks     uint64            `json:"blocks" yaml:"blocks"`
	Generation uint32            `json:"generation" yaml:"generation"`
	Format     string            `json:"format" yaml:"format"`
	Atime      time.Time         `json:"atime" yaml:"atime"`
	Mtime      time.Time         `json:"mtime" yaml:"mtime"`
	Ctime      time.Time         `json:"ctime" yaml:"ctime"`
	Crtime     *time.Time        `json:"crtime,omitempty" yaml:"crtime,omitempty"`
	AttrState  string            `json:"attr_state" yaml:"attr_state"`
	AttrError  string            `json:"attr_error,omitempty" yaml:"attr_error,omitempty"`
	Attributes []AttributeReport `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// AttributeReport describes one attribute of an inode
type AttributeReport struct {
	Type      string      `json:"type" yaml:"type"`
	ID        uint16      `json:"id" yaml:"id"`
	Resident  bool        `json:"resident" yaml:"resident"`
	Size      uint64      `json:"size" yaml:"size"`
	AllocSize uint64      `json:"alloc_size" yaml:"alloc_size"`
	Runs      []RunReport `json:"runs,omitempty" yaml:"runs,omitempty"`
}

// RunReport describes one data run
type RunReport struct {
	Offset    uint64 `json:"offset" yaml:"offset"`
	Addr      uint64 `json:"addr" yaml:"addr"`
	Length    uint64 `json:"length" yaml:"length"`
	Unwritten bool   `json:"unwritten,omitempty" yaml:"unwritten,omitempty"`
}

// BlockEntry is one row of a block listing
type BlockEntry struct {
	Addr  uint64 `json:"addr" yaml:"addr"`
	Flags string `json:"flags" yaml:"flags"`
}

// BlocksResponse is the result of a block listing
type BlocksResponse struct {
	Start     uint64       `json:"start" yaml:"start"`
	End       uint64       `json:"end" yaml:"end"`
	Blocks    []BlockEntry `json:"blocks" yaml:"blocks"`
	Truncated bool         `json:"truncated" yaml:"truncated"`
}

// InodeEntry is one row of an inode listing
type InodeEntry struct {
	Inode uint64 `json:"inode" yaml:"inode"`
	Flags string `json:"flags" yaml:"flags"`
	Mode  string `json:"mode" yaml:"mode"`
	Size  uint64 `json:"size" yaml:"size"`
}

// InodesResponse is the result of an inode listing
type InodesResponse struct {
	Start     uint64       `json:"start" yaml:"start"`
	End       uint64       `json:"end" yaml:"end"`
	Inodes    []InodeEntry `json:"inodes" yaml:"inodes"`
	Truncated bool         `json:"truncated" yaml:"truncated"`
}

// BlockCounts tallies block classifications
type BlockCounts struct {
	Blocks  uint64 `json:"blocks" yaml:"blocks"`
	Alloc   uint64 `json:"alloc" yaml:"alloc"`
	Unalloc uint64 `json:"unalloc" yaml:"unalloc"`
	Meta    uint64 `json:"meta" yaml:"meta"`
	Content uint64 `json:"content" yaml:"content"`
}

func (c *BlockCounts) add(o BlockCounts) {
	c.Blocks += o.Blocks
	c.Alloc += o.Alloc
	c.Unalloc += o.Unalloc
	c.Meta += o.Meta
	c.Content += o.Content
}

// GroupScan is the scan result for one group
type GroupScan struct {
	Group      uint32 `json:"group" yaml:"group"`
	FirstBlock uint64 `json:"first_block" yaml:"first_block"`
	LastBlock  uint64 `json:"last_block" yaml:"last_block"`
	BlockCounts `yaml:",inline"`

	// DescriptorFree is the free count the descriptor claims; -1 when the
	// descriptor could not be read
	DescriptorFree int64 `json:"descriptor_free" yaml:"descriptor_free"`
	Mismatch       bool  `json:"mismatch" yaml:"mismatch"`
}

// ScanReport is the result of a whole-filesystem block scan
type ScanReport struct {
	// Leading counts the blocks ahead of the first group
	Leading BlockCounts   `json:"leading" yaml:"leading"`
	Groups  []GroupScan   `json:"groups" yaml:"groups"`
	Totals  BlockCounts   `json:"totals" yaml:"totals"`
	Workers int           `json:"workers" yaml:"workers"`
	Chunks  int           `json:"chunks" yaml:"chunks"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}
