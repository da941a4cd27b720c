package guestmem

// Exception vectors from the AMD64 Architecture Programmer's Manual Volume
// 2, section 8.2, Table 8-1 — the two this shim cares about.
const (
	VectorPageFault = 14
	VectorInvalidOp = 6 // #UD, used by the engine to request a trap
)

// RegisterFrame is the minimal slice of a trapped CPU's saved state the
// trap-forwarding convention needs to rewrite: the faulting instruction
// pointer and a handful of general-purpose scratch registers, amd64 SysV
// convention.
//
// Indices follow the original hyperlight_wasm convention: Scratch[0] holds
// the original IP (so the engine's handler can recover where the trap
// happened), Scratch[1] the original frame pointer, and the rest are
// zeroed.
type RegisterFrame struct {
	IP      uint64
	Scratch [4]uint64
}

// TrapHandler is the engine-registered callback a #UD should redirect
// into. It receives (ip, fp, hasFaultingAddr, faultingAddr) as wasmtime's
// embedding ABI does.
type TrapHandler func(ip, fp uint64, hasFaultingAddr bool, faultingAddr uint64)

// TrapTable holds the single registered trap handler. The guest is
// single-instance and single-threaded, so one slot is sufficient.
type TrapTable struct {
	handler TrapHandler
}

// Register installs the engine's trap handler, analogous to the real
// shim's wasmtime_init_traps hooking vector #UD.
func (t *TrapTable) Register(h TrapHandler) {
	t.handler = h
}

// Forward redirects a trapped register frame into the registered handler
// by rewriting IP and preserving the original IP/FP in scratch registers,
// then reports whether the trap was serviced.
//
// A #UD is always forwarded if a handler is registered; every other vector
// is left alone and returns false, so the caller's default handling (a
// guest crash that poisons the sandbox) applies.
func (t *TrapTable) Forward(vector int, frame *RegisterFrame, origFP uint64) bool {
	if vector != VectorInvalidOp || t.handler == nil {
		return false
	}
	origIP := frame.IP
	frame.IP = 0 // in the real shim this becomes the handler's address;
	// the handler pointer itself isn't representable in this simulation,
	// so Forward invokes t.handler directly below instead.
	frame.Scratch[0] = origIP
	frame.Scratch[1] = origFP
	frame.Scratch[2] = 0
	frame.Scratch[3] = 0
	t.handler(origIP, origFP, false, 0)
	return true
}
