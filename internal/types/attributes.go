package types

import (
	"fmt"
	"sort"
)

// AttrType identifies what an attribute's runs describe.
type AttrType uint32

const (
	// AttrTypeDefault is the file content.
	AttrTypeDefault AttrType = 0x0001
	// AttrTypeExtentIndex lists the blocks holding the file's extent tree nodes.
	AttrTypeExtentIndex AttrType = 0x1001
)

func (t AttrType) String() string {
	switch t {
	case AttrTypeDefault:
		return "default"
	case AttrTypeExtentIndex:
		return "extent-index"
	default:
		return fmt.Sprintf("type-0x%x", uint32(t))
	}
}

// AttrFlags describes where an attribute's content lives.
type AttrFlags uint8

const (
	// AttrFlagNonResident means content is reached through data runs.
	AttrFlagNonResident AttrFlags = 1 << 0
	// AttrFlagResident means content is held in Attribute.Resident.
	AttrFlagResident AttrFlags = 1 << 1
)

// RunFlags qualifies a data run.
type RunFlags uint8

const (
	// RunFlagUnwritten marks an allocated run whose content reads as zeros.
	RunFlagUnwritten RunFlags = 1 << 0
)

// DataRun maps Len blocks of logical file space starting at Offset to
// physical blocks starting at Addr.
type DataRun struct {
	Offset uint64
	Addr   DaddrT
	Len    uint64
	Flags  RunFlags
}

// End returns the first logical block after the run.
func (r DataRun) End() uint64 {
	return r.Offset + r.Len
}

// Attribute is one typed stream of a file.
type Attribute struct {
	Type  AttrType
	ID    uint16
	Flags AttrFlags

	// Size is the logical size in bytes; AllocSize is Size rounded to blocks.
	Size      uint64
	AllocSize uint64

	Runs     []DataRun
	Resident []byte
}

// AddRun inserts run in logical order. Runs that overlap an existing run are
// rejected as corruption.
func (a *Attribute) AddRun(run DataRun) error {
	if run.Len == 0 {
		return NewError(KindCorrupt, "zero-length run at logical block %d", run.Offset)
	}
	if run.Offset+run.Len < run.Offset {
		return NewError(KindCorrupt, "run at logical block %d length %d overflows", run.Offset, run.Len)
	}

	i := sort.Search(len(a.Runs), func(i int) bool { return a.Runs[i].Offset >= run.Offset })
	if i > 0 && a.Runs[i-1].End() > run.Offset {
		prev := a.Runs[i-1]
		return NewError(KindCorrupt, "run [%d,%d) overlaps run [%d,%d)", run.Offset, run.End(), prev.Offset, prev.End())
	}
	if i < len(a.Runs) && run.End() > a.Runs[i].Offset {
		next := a.Runs[i]
		return NewError(KindCorrupt, "run [%d,%d) overlaps run [%d,%d)", run.Offset, run.End(), next.Offset, next.End())
	}

	a.Runs = append(a.Runs, DataRun{})
	copy(a.Runs[i+1:], a.Runs[i:])
	a.Runs[i] = run
	return nil
}

// MappedBlocks returns the number of logical blocks covered by runs.
func (a *Attribute) MappedBlocks() uint64 {
	var n uint64
	for _, r := range a.Runs {
		n += r.Len
	}
	return n
}

// AttrList is the set of attributes belonging to one file.
type AttrList struct {
	attrs  []*Attribute
	nextID uint16
}

// NewAttrList returns an empty attribute list.
func NewAttrList() *AttrList {
	return &AttrList{}
}

// Add creates and appends a new attribute of the given type.
func (l *AttrList) Add(typ AttrType, flags AttrFlags) *Attribute {
	a := &Attribute{Type: typ, ID: l.nextID, Flags: flags}
	l.nextID++
	l.attrs = append(l.attrs, a)
	return a
}

// Get returns the first attribute of the given type, or nil.
func (l *AttrList) Get(typ AttrType) *Attribute {
	for _, a := range l.attrs {
		if a.Type == typ {
			return a
		}
	}
	return nil
}

// All returns the attributes in creation order.
func (l *AttrList) All() []*Attribute {
	return l.attrs
}

// Len returns the number of attributes.
func (l *AttrList) Len() int {
	return len(l.attrs)
}

// Reset drops all attributes so the list can be rebuilt.
func (l *AttrList) Reset() {
	l.attrs = nil
	l.nextID = 0
}
