package guestmem

import "sync"

// Prot is the permission mask the engine passes to mmap_new/mprotect.
type Prot uint32

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// Allowed mprotect combinations: R, RX, RW. Anything else is rejected
// (true W^X enforcement is a deferred refinement).
func (p Prot) valid() bool {
	switch p {
	case ProtRead, ProtRead | ProtExec, ProtRead | ProtWrite:
		return true
	default:
		return false
	}
}

// Base address and stride for the engine's coarse VA allocator.
const (
	EngineMmapBase   = 0x100_0000_0000
	EngineMmapStride = 0x100_0000_0000
	// MaxSingleMapping mirrors the guard in the original platform.rs:
	// any single mmap_new request this large is almost certainly a bug in
	// the engine, not a legitimate allocation.
	MaxSingleMapping = 0x100_0000_0000
)

// Allocator is the coarse bump allocator backing the engine's mmap_new.
// It hands out disjoint, generously-sized virtual ranges and never reclaims
// them individually; reclaim happens in bulk at sandbox teardown.
type Allocator struct {
	mu       sync.Mutex
	next     uint64
	mappings []mapping
}

type mapping struct {
	base uint64
	size uint64
	prot Prot
}

// NewAllocator creates an allocator starting at EngineMmapBase.
func NewAllocator() *Allocator {
	return &Allocator{next: EngineMmapBase}
}

// MmapNew hands out a fresh virtual range of at least size bytes. The
// pages are unbacked until first access (see PageFaultHandler).
func (a *Allocator) MmapNew(size uint64, prot Prot) (addr uint64, ok bool) {
	if size > MaxSingleMapping {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	base := a.next
	a.next += EngineMmapStride
	a.mappings = append(a.mappings, mapping{base: base, size: size, prot: prot})
	return base, true
}

// MmapRemap is a no-op: the coarse allocator overprovisions so growth in
// place is implicit.
func (a *Allocator) MmapRemap(addr, size uint64, prot Prot) bool {
	return a.InWindow(addr) && size <= MaxSingleMapping
}

// Munmap is a no-op: reclaim only happens at sandbox teardown.
func (a *Allocator) Munmap(addr, size uint64) bool {
	return true
}

// Mprotect validates the requested permission combination. Permissions are
// not enforced against any real page table; this is a permission-shape
// check only, not true W^X enforcement.
func (a *Allocator) Mprotect(addr, size uint64, prot Prot) bool {
	return prot.valid()
}

// PageSize returns the platform page size used throughout the allocator.
func (a *Allocator) PageSize() uint64 {
	return PageSize
}

// PageSize is the guest's (simulated) platform page size.
const PageSize = 4096

// InWindow reports whether addr falls within any range this allocator has
// handed out (used by the page-fault handler to distinguish a fault the
// engine should service from a genuine guest crash).
func (a *Allocator) InWindow(addr uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range a.mappings {
		if addr >= m.base && addr < m.base+roundUp(m.size, PageSize) {
			return true
		}
	}
	return false
}

func roundUp(n, align uint64) uint64 {
	if n == 0 {
		return align
	}
	return (n + align - 1) &^ (align - 1)
}
