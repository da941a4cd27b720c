// Package sandbox implements the Proto -> Runtime -> Loaded state machine:
// collecting host-function registrations, initializing the guest engine,
// loading a Wasm module/component, and driving calls into it with
// snapshot/restore and interruption support.
//
// Each phase is a distinct Go type; a transition consumes the prior value
// (the old value should not be used afterward; Go cannot enforce move
// semantics, so this is a documented contract rather than a compiler-checked
// one, same as the original's consuming transitions translated literally).
package sandbox
