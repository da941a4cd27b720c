package guestrt

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/resource"
	"github.com/hlwasm/hlwasm/wire"
)

// Runtime is the guest-side Wasm engine shim: one wazero runtime plus at
// most one loaded module instance, matching the original CUR_ENGINE /
// CUR_LINKER / CUR_MODULE / CUR_STORE / CUR_INSTANCE globals, scoped to a
// single sandbox instead of process-wide statics.
type Runtime struct {
	mu sync.Mutex

	engine   wazero.Runtime
	registry []wire.FunctionDescriptor
	caller   HostCaller
	printer  Printer

	compiled wazero.CompiledModule
	instance api.Module

	retAlloc returnAllocation

	// Resources is nil in module mode; in component mode it holds the
	// per-sandbox resource type table.
	Resources *resource.Table

	// world is nil in module mode; in component mode it holds the bound
	// component-world export/import shapes BindWorld records, consulted
	// by DispatchFunction to track Own/Borrow resource handles.
	world *component.World
}

// returnAllocation tracks the guest-memory address of the most recent
// call's return value so it can be freed at the next call's entry,
// mirroring the original's free-on-next-VM-entry ownership rule.
type returnAllocation struct {
	present bool
	ptr     uint32
}

// New creates an un-initialized guest runtime shim. Call InitWasmRuntime
// before loading any module.
func New() *Runtime {
	r := &Runtime{}
	if ComponentMode {
		r.Resources = resource.NewTable()
	}
	return r
}

// InitWasmRuntime creates the wazero engine, registers the WASI p1 stubs,
// decodes the host-function registry blob and registers one import wrapper
// per descriptor, each of which marshals engine args to the wire ADT,
// issues an outgoing host call through caller, and marshals the result
// back.
func (r *Runtime) InitWasmRuntime(ctx context.Context, registryBlob []byte, caller HostCaller, printer Printer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	descs, err := wire.DecodeRegistry(registryBlob)
	if err != nil {
		return errors.Init("decode host function registry", err)
	}
	for _, d := range descs {
		if err := wire.ValidateVectorLengthConvention(d.ParameterTypes); err != nil {
			return errors.Init(fmt.Sprintf("host function %q", d.Name), err)
		}
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	engine := wazero.NewRuntimeWithConfig(ctx, cfg)

	if err := registerWASIp1(ctx, engine, printer); err != nil {
		engine.Close(ctx)
		return errors.Init("register wasi_snapshot_preview1", err)
	}

	if len(descs) > 0 {
		envBuilder := engine.NewHostModuleBuilder("env")
		for _, d := range descs {
			envBuilder = withHostFuncImport(envBuilder, d, caller)
		}
		if _, err := envBuilder.Instantiate(ctx); err != nil {
			engine.Close(ctx)
			return errors.Init("instantiate env host module", err)
		}
	}

	r.engine = engine
	r.registry = descs
	r.caller = caller
	r.printer = printer
	return nil
}

// withHostFuncImport registers one "env" import whose body round-trips
// through the wire ADT to caller.CallHost.
func withHostFuncImport(b wazero.HostModuleBuilder, d wire.FunctionDescriptor, caller HostCaller) wazero.HostModuleBuilder {
	paramTypes := engineValueTypes(d.ParameterTypes)
	resultTypes := returnValueTypes(d.ReturnType)
	name := d.Name
	params := d.ParameterTypes

	fn := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		values, err := decodeEngineArgs(ctx, mod, params, stack)
		if err != nil {
			panic(errors.Marshalling("decode host call args for "+name, err))
		}
		result, err := caller.CallHost(ctx, name, values)
		if err != nil {
			panic(errors.GuestAborted("host call "+name+" failed", err))
		}
		if d.ReturnType == wire.TagVoid {
			return
		}
		encoded, err := encodeEngineResult(ctx, mod, result)
		if err != nil {
			panic(errors.Marshalling("encode host call result for "+name, err))
		}
		stack[0] = encoded
	})

	b.NewFunctionBuilder().WithGoModuleFunction(fn, paramTypes, resultTypes).Export(name)
	return b
}

// LoadWasmModule compiles a core Wasm module from bytes (the caller's
// copy, passed in directly) and instantiates it.
func (r *Runtime) LoadWasmModule(ctx context.Context, wasmBytes []byte) error {
	compiled, err := r.engine.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Load("compile wasm module", err)
	}
	return r.instantiate(ctx, compiled)
}

// LoadWasmModulePhys compiles an artifact already mapped at a host
// virtual address, avoiding the copy LoadWasmModule performs. mapped
// describes a host-process memory window (the loader's COW mapping); the
// byte slice is read in full here since wazero's public API has no
// raw-pointer deserialize entrypoint, so the zero-copy benefit is realized
// at the loader/mmap layer rather than re-derived here.
func (r *Runtime) LoadWasmModulePhys(ctx context.Context, mapped []byte) error {
	compiled, err := r.engine.CompileModule(ctx, mapped)
	if err != nil {
		return errors.Load("compile mapped wasm module", err)
	}
	return r.instantiate(ctx, compiled)
}

func (r *Runtime) instantiate(ctx context.Context, compiled wazero.CompiledModule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	modCfg := wazero.NewModuleConfig().WithName("")
	instance, err := r.engine.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		compiled.Close(ctx)
		return errors.Load("instantiate wasm module", err)
	}
	if r.instance != nil {
		r.instance.Close(ctx)
	}
	if r.compiled != nil {
		r.compiled.Close(ctx)
	}
	r.compiled = compiled
	r.instance = instance
	r.retAlloc = returnAllocation{}
	return nil
}

// Instance exposes the current module instance for callers (dispatch,
// snapshot) that need direct wazero access.
func (r *Runtime) Instance() api.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instance
}

// SnapshotMemory copies the loaded module's entire linear memory. It
// returns ok=false if no module is currently loaded or the loaded module
// has no linear memory, so the caller (the sandbox snapshot operation) can
// tell "nothing to capture" apart from "empty memory".
func (r *Runtime) SnapshotMemory(ctx context.Context) (data []byte, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil, false
	}
	mem := r.instance.Memory()
	if mem == nil {
		return nil, false
	}
	buf, memOK := mem.Read(ctx, 0, mem.Size())
	if !memOK {
		return nil, false
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, true
}

// RestoreMemory overwrites the loaded module's linear memory in place.
// Fails if no module is loaded or the snapshot size doesn't match the
// current memory size (wazero memories don't shrink, and growth across a
// restore would mean restoring into a different module than was
// snapshotted).
func (r *Runtime) RestoreMemory(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return errors.Load("restore memory: no module loaded", nil)
	}
	mem := r.instance.Memory()
	if uint32(len(data)) != mem.Size() {
		return errors.Load("restore memory: snapshot size does not match current memory size", nil)
	}
	if !mem.Write(ctx, 0, data) {
		return errors.Load("restore memory: write out of range", nil)
	}
	return nil
}

// Close releases the wazero runtime and everything compiled within it.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return nil
	}
	return r.engine.Close(ctx)
}

// engineValueTypes maps a declared parameter list onto wazero's flat
// engine-level ABI, one api.ValueType per tag. A VecBytes tag's paired Int
// (see wire.ValidateVectorLengthConvention) already has its own entry in
// params, so no tag here expands to more than one slot; wire.EngineArgCount
// and this function must always agree on the slot count.
func engineValueTypes(params []wire.Tag) []api.ValueType {
	out := make([]api.ValueType, 0, wire.EngineArgCount(params))
	for _, t := range params {
		switch t {
		case wire.TagLong, wire.TagULong:
			out = append(out, api.ValueTypeI64)
		case wire.TagFloat:
			out = append(out, api.ValueTypeF32)
		case wire.TagDouble:
			out = append(out, api.ValueTypeF64)
		default:
			out = append(out, api.ValueTypeI32)
		}
	}
	return out
}

func returnValueTypes(t wire.Tag) []api.ValueType {
	switch t {
	case wire.TagVoid:
		return nil
	case wire.TagLong, wire.TagULong:
		return []api.ValueType{api.ValueTypeI64}
	case wire.TagFloat:
		return []api.ValueType{api.ValueTypeF32}
	case wire.TagDouble:
		return []api.ValueType{api.ValueTypeF64}
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}
