// Package guestrt is the guest-side Wasm-engine shim: it wires wazero to
// play the role the original engine-embedding code plays inside the VM,
// exposes the four stable guest entrypoints (InitWasmRuntime,
// LoadWasmModule, LoadWasmModulePhys, guest_dispatch_function), and
// performs the wire <-> engine-value marshalling for both directions of
// the call protocol.
//
// Two build variants select module vs component instantiation at compile
// time: the default build tags produce the module-mode Runtime; the
// "component" build tag swaps in the component-mode Runtime, which
// additionally threads a resource.Table through dispatch.
package guestrt
