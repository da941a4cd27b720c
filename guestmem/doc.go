// Package guestmem implements the guest-side memory plumbing a bare-metal
// Wasm engine embedding needs because there is no real OS underneath it:
// a coarse virtual-address bump allocator standing in for mmap, a
// page-fault handler that backs faulted addresses with zeroed pages,
// single-slot TLS emulation, and the amd64 trap-forwarding rule that
// redirects a #UD exception into the engine's registered trap handler.
//
// None of this is hooked into real page tables or real CPU exception
// vectors — there are none in a Go process — but the algorithms are the
// ones the original hyperlight_wasm platform.rs describes, expressed as
// plain data structures so they are directly testable.
package guestmem
