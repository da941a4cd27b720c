package guestmem

import "fmt"

// Page is a zeroed, page-sized backing store faulted in on first access.
type Page = [PageSize]byte

// PageTable maps a faulting page-aligned address to its backing Page. It
// stands in for the real page tables a bare-metal guest would otherwise
// need to build by hand.
type PageTable struct {
	alloc *Allocator
	pages map[uint64]*Page
}

// NewPageTable creates a page table serviced by alloc's VA window.
func NewPageTable(alloc *Allocator) *PageTable {
	return &PageTable{alloc: alloc, pages: make(map[uint64]*Page)}
}

// FaultKind classifies the outcome of HandleFault.
type FaultKind int

const (
	// FaultServiced means a physical page was allocated and mapped; the
	// faulting instruction should be retried.
	FaultServiced FaultKind = iota
	// FaultCrash means the fault was outside the engine's VA window and
	// falls through to the default handler, which reports a guest crash
	// and poisons the sandbox.
	FaultCrash
)

// HandleFault services a non-present page fault at addr. Only addresses
// inside the allocator's VA window are serviced; anything else crashes.
func (pt *PageTable) HandleFault(addr uint64, present bool) FaultKind {
	if present {
		// A present-but-violating-permissions fault is never serviced:
		// permissions aren't enforced by this simulation.
		return FaultCrash
	}
	if !pt.alloc.InWindow(addr) {
		return FaultCrash
	}
	base := addr &^ (PageSize - 1)
	if _, ok := pt.pages[base]; !ok {
		pt.pages[base] = &Page{}
	}
	return FaultServiced
}

// Read reads len(dst) bytes starting at addr, faulting in pages as needed.
// It is a test/debug helper, not part of the engine ABI.
func (pt *PageTable) Read(addr uint64, dst []byte) error {
	return pt.walk(addr, len(dst), func(page *Page, off int, n int) {
		copy(dst[:n], page[off:off+n])
		dst = dst[n:]
	})
}

// Write writes src starting at addr, faulting in pages as needed.
func (pt *PageTable) Write(addr uint64, src []byte) error {
	return pt.walk(addr, len(src), func(page *Page, off int, n int) {
		copy(page[off:off+n], src[:n])
		src = src[n:]
	})
}

func (pt *PageTable) walk(addr uint64, length int, do func(page *Page, off, n int)) error {
	remaining := length
	for remaining > 0 {
		base := addr &^ (PageSize - 1)
		off := int(addr - base)
		n := PageSize - off
		if n > remaining {
			n = remaining
		}
		if pt.HandleFault(addr, false) == FaultCrash {
			return fmt.Errorf("guestmem: address 0x%x outside engine VA window", addr)
		}
		do(pt.pages[base], off, n)
		addr += uint64(n)
		remaining -= n
	}
	return nil
}
