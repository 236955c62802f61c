package report

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-xfs/internal/types"
	"github.com/deploymenttheory/go-xfs/pkg/app"
)

// maxListLimit caps the rows a single listing may return
const maxListLimit = 1 << 20

// Validate validates an istat request
func (r *IStatRequest) Validate() error {
	if r.Inode == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "inode number is required", nil)
	}
	return nil
}

// Validate validates a block listing request
func (r *BlocksRequest) Validate() error {
	if r.End != nil && r.Start > *r.End {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("start block %d is after end block %d", r.Start, *r.End), nil)
	}
	if _, ok := types.ParseBlockWalkFlags(r.Flags); !ok {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("invalid block flags %q, use alloc, unalloc, meta, content or addr", strings.Join(r.Flags, ",")), nil)
	}
	return validateLimit(r.Limit)
}

// Validate validates an inode listing request
func (r *InodesRequest) Validate() error {
	if r.End != 0 && r.Start > r.End {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("start inode %d is after end inode %d", r.Start, r.End), nil)
	}
	if _, ok := types.ParseMetaFlags(r.Flags); !ok {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("invalid inode flags %q, use alloc, unalloc, used or unused", strings.Join(r.Flags, ",")), nil)
	}
	return validateLimit(r.Limit)
}

// Validate validates a scan request
func (r *ScanRequest) Validate() error {
	if r.Workers < 1 || r.Workers > 256 {
		return app.NewError(app.ErrCodeInvalidInput, "workers must be between 1 and 256", nil)
	}
	if r.ChunkBlocks == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "chunk size must be at least one block", nil)
	}
	return nil
}

// validateLimit accepts zero as "no limit"
func validateLimit(limit int) error {
	if limit < 0 || limit > maxListLimit {
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("limit must be between 0 and %d", maxListLimit), nil)
	}
	return nil
}
