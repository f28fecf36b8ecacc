package memory

import (
	"fmt"

	"github.com/google/btree"
	"github.com/kevmo314/offsetview/pkg/pointer"
)

// Regions is an address space made of several non-overlapping snapshots,
// such as the loadable segments of a core file. Reads that cross from one
// region into an adjacent one are stitched together.
type Regions struct {
	tree *btree.BTreeG[*Snapshot]
}

var _ Reader = (*Regions)(nil)

func NewRegions() *Regions {
	return &Regions{
		tree: btree.NewG[*Snapshot](2, func(a, b *Snapshot) bool { return a.Base < b.Base }),
	}
}

// Add inserts s. Empty snapshots are ignored.
func (r *Regions) Add(s *Snapshot) error {
	if len(s.Data) == 0 {
		return nil
	}
	if prev := r.find(s.Base); prev != nil && prev.End() > s.Base {
		return fmt.Errorf("region %s overlaps %s", s, prev)
	}
	var overlap *Snapshot
	r.tree.AscendGreaterOrEqual(s, func(next *Snapshot) bool {
		if next.Base < s.End() {
			overlap = next
		}
		return false
	})
	if overlap != nil {
		return fmt.Errorf("region %s overlaps %s", s, overlap)
	}
	r.tree.ReplaceOrInsert(s)
	return nil
}

// find returns the region with the greatest base not above addr.
func (r *Regions) find(addr pointer.Address) *Snapshot {
	var found *Snapshot
	r.tree.DescendLessOrEqual(&Snapshot{Base: addr}, func(s *Snapshot) bool {
		found = s
		return false
	})
	return found
}

// Region returns the region containing addr.
func (r *Regions) Region(addr pointer.Address) (*Snapshot, bool) {
	s := r.find(addr)
	if s == nil || !s.Contains(addr) {
		return nil, false
	}
	return s, true
}

func (r *Regions) Len() int {
	return r.tree.Len()
}

func (r *Regions) ReadAt(p []byte, addr pointer.Address) error {
	read := 0
	for read < len(p) {
		s, ok := r.Region(addr + pointer.Address(read))
		if !ok {
			return &UnreadableError{Addr: addr, Size: len(p)}
		}
		read += s.readAt(p[read:], addr+pointer.Address(read))
	}
	return nil
}
