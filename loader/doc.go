// Package loader implements the host side of getting a compiled Wasm
// artifact in front of guestrt.Runtime: map it copy-on-write when the
// platform and file system allow it, or copy the bytes across when they
// don't.
//
// There is no real separate guest address space in this module the way
// there would be with a hardware-virtualized guest, so "mapping at a
// fixed guest virtual address" has no literal host-visible counterpart
// here. What the COW path actually buys is avoiding a read(2) into a
// fresh heap allocation: mmap hands back page-cache-backed memory instead.
// FixedGuestVA is kept as a named constant purely as the address a real
// hypervisor-backed build would use, and is recorded in Result.VA for
// parity with that design, not because anything in this process maps
// memory there.
package loader
