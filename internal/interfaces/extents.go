// File: internal/interfaces/extents.go
package interfaces

import "github.com/deploymenttheory/go-xfs/internal/types"

// ExtentNodeReader provides a validated view over one extent tree node
type ExtentNodeReader interface {
	// Header returns the node header
	Header() types.ExtentHeaderT

	// Depth returns the node's height above the leaves
	Depth() uint16

	// IsLeaf reports whether the node holds extents rather than indices
	IsLeaf() bool

	// Extents returns the leaf entries; empty for interior nodes
	Extents() []types.ExtentT

	// Indices returns the interior entries; empty for leaf nodes
	Indices() []types.ExtentIdxT
}
