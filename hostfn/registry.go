package hostfn

import (
	"context"
	"reflect"
	"sync"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

// defaultPrintWidth caps the byte count the default HostPrint reports for
// one call. The default implementation writes nothing; it only returns the
// length of the (capped) text it was given.
const defaultPrintWidth = 4096

// entry is one registered host function: its wire descriptor (sent to the
// guest) plus enough of its Go func.Value to dispatch a call into it.
type entry struct {
	desc signature
	fn   reflect.Value
}

// Registry is the Proto-side host function registry: closures registered
// by name, serialized into the registry blob InitWasmRuntime consumes, and
// dispatched to when a guest import calls out to the host. It implements
// guestrt.HostCaller and guestrt.Printer.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]entry
	print   func(string) (int32, error)
	sealed  bool
}

// NewRegistry creates an empty registry with the default HostPrint
// implementation (writes nothing beyond what the guest already wrote to
// its own buffer; overridden via RegisterPrint).
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
		print:   defaultPrint,
	}
}

func defaultPrint(s string) (int32, error) {
	if len(s) > defaultPrintWidth {
		s = s[:defaultPrintWidth]
	}
	return int32(len(s)), nil
}

// Register infers fn's wire signature by reflection and appends it to the
// registry. fn must be a non-variadic func; it may optionally take a
// leading context.Context and/or return a trailing error alongside its
// single wire-representable result. Fails if name is empty, already
// registered, or fn's signature isn't representable.
func (r *Registry) Register(name string, fn any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return errors.Registration("registry already sealed", nil)
	}
	if name == "" {
		return errors.Registration("host function name must not be empty", nil)
	}
	if _, exists := r.entries[name]; exists {
		return errors.Registration("host function "+name+" already registered", nil)
	}

	fnVal := reflect.ValueOf(fn)
	sig, err := describeSignature(fnVal)
	if err != nil {
		return err
	}

	r.entries[name] = entry{desc: sig, fn: fnVal}
	r.order = append(r.order, name)
	return nil
}

// RegisterPrint overrides the default HostPrint implementation. It does
// not add a registry descriptor entry: HostPrint is wired directly into
// the WASI fd_write stub (via guestrt.Printer), not invoked as an ordinary
// guest import.
func (r *Registry) RegisterPrint(fn func(string) (int32, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.print = fn
}

// Seal freezes the registry against further registration and serializes
// its descriptors into the bounded-size blob load_runtime passes to
// InitWasmRuntime.
func (r *Registry) Seal() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true

	descs := make([]wire.FunctionDescriptor, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		descs = append(descs, wire.FunctionDescriptor{
			Name:           name,
			ParameterTypes: e.desc.declaredParamTypes,
			ReturnType:     e.desc.returnType,
		})
	}
	return wire.EncodeRegistry(descs)
}

// CallHost implements guestrt.HostCaller: it looks up name, converts the
// incoming wire values into Go arguments per the registered signature,
// invokes the closure, and converts its result back.
func (r *Registry) CallHost(ctx context.Context, name string, params []wire.Value) (wire.Value, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return wire.Value{}, errors.Registration("no host function registered as "+name, nil)
	}
	return callWithTagged(ctx, e.fn, e.desc, params)
}

// PrintOutput implements guestrt.Printer, forwarding to the registered
// print override.
func (r *Registry) PrintOutput(s string) (int32, error) {
	r.mu.Lock()
	fn := r.print
	r.mu.Unlock()
	return fn(s)
}
