// Package hostfn implements the Proto-side host function registry: Go
// closures registered by name, their wire-level signature inferred by
// reflection, serialized into the registry blob InitWasmRuntime consumes,
// and dispatched by name when a guest import calls out to the host.
package hostfn
