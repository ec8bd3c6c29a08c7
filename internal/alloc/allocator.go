package alloc

import (
	"fmt"
	"sort"
)

const alignment = 8

// Allocator places blocks one after another from a base address.
type Allocator struct {
	base        uint64
	eof         uint64
	allocations []Allocation
}

// Allocation is one block handed out.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string
}

// New returns an allocator whose first block starts at base, rounded up
// to the alignment.
func New(base uint64) *Allocator {
	return &Allocator{base: base, eof: align(base)}
}

func align(v uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}

// Alloc reserves size bytes and returns their address. A zero size
// returns the current end without recording anything.
func (a *Allocator) Alloc(size uint64, tag string) uint64 {
	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof = align(addr + size)
	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Tag: tag})
	return addr
}

// EOF is the address just past the last block.
func (a *Allocator) EOF() uint64 { return a.eof }

// Allocations returns a copy of every block in allocation order.
func (a *Allocator) Allocations() []Allocation {
	return append([]Allocation(nil), a.allocations...)
}

// Validate checks that every block lies in [base, EOF) and that no two
// blocks overlap.
func (a *Allocator) Validate() error {
	blocks := a.Allocations()
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Addr < blocks[j].Addr })
	for i, b := range blocks {
		if b.Addr < a.base || b.Addr+b.Size > a.eof {
			return fmt.Errorf("%s at 0x%x (%d bytes) outside [0x%x, 0x%x)", b.Tag, b.Addr, b.Size, a.base, a.eof)
		}
		if i > 0 {
			prev := blocks[i-1]
			if prev.Addr+prev.Size > b.Addr {
				return fmt.Errorf("%s at 0x%x overlaps %s at 0x%x", b.Tag, b.Addr, prev.Tag, prev.Addr)
			}
		}
	}
	return nil
}
