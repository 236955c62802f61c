package extents

import "github.com/deploymenttheory/go-xfs/internal/types"

// MaxAddress is the largest block address a split 48-bit field can hold.
const MaxAddress = 1<<48 - 1

// CombineAddress joins the high 16 and low 32 bits of a split block address.
func CombineAddress(hi uint16, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// ExtentStart returns the first physical block of a leaf extent.
func ExtentStart(e types.ExtentT) types.DaddrT {
	return types.DaddrT(CombineAddress(e.StartHi, e.StartLo))
}

// IndexChild returns the block address of the node an index entry points to.
func IndexChild(idx types.ExtentIdxT) types.DaddrT {
	return types.DaddrT(CombineAddress(idx.LeafHi, idx.LeafLo))
}
