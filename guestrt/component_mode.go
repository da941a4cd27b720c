//go:build component

package guestrt

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/resource"
	"github.com/hlwasm/hlwasm/wire"
)

// ComponentMode is true for the component build: the shim additionally
// maintains a resource table, and a bound World tracks which exports'
// parameters/results are Own/Borrow resource handles rather than plain
// values.
const ComponentMode = true

// resolveFunction walks the binding recorded at load time. Multi-module
// components are out of scope; a component's flattened core export is
// still addressed by its declared name, so lookup delegates to the same
// export table a core module would use.
func (r *Runtime) resolveFunction(name string) api.Function {
	if r.instance == nil {
		return nil
	}
	return r.instance.ExportedFunction(name)
}

// BindWorld records w as the component-world binding DispatchFunction
// consults for resource-handle bookkeeping. Call after LoadWasmModule.
func (r *Runtime) BindWorld(w *component.World) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world = w
	return nil
}

// NewResourceHandle inserts value under kind into the resource table and
// returns its handle, for host functions that hand the guest a newly
// created resource.
func (r *Runtime) NewResourceHandle(kind string, value any) (uint64, error) {
	h, err := r.Resources.Insert(kind, value)
	if err != nil {
		return 0, err
	}
	return uint64(h), nil
}

// DropResourceHandle releases handle, refusing while a borrow from an
// in-flight call is outstanding.
func (r *Runtime) DropResourceHandle(handle uint64) (any, error) {
	return r.Resources.Drop(resource.Handle(handle))
}

// beginResourceScope looks up name's bound export and, for every
// Borrow-typed parameter present in the call, holds the resource table's
// borrow count for the call's duration. The returned function releases the
// held borrows; DispatchFunction applies it to the dispatched result before
// handing it back, or to Void when the call fails after this point.
func (r *Runtime) beginResourceScope(name string, params []wire.Value) (func(wire.Value) wire.Value, error) {
	if r.world == nil {
		return identityResult, nil
	}
	fn, ok := r.world.Export(name)
	if !ok {
		return identityResult, nil
	}

	held := make([]resource.Handle, 0, len(fn.Params))
	for i, p := range fn.Params {
		if i >= len(params) || p.Kind != component.KindBorrow {
			continue
		}
		h := resource.Handle(params[i].ULong())
		if _, ok := r.Resources.GetKind(h, p.ResourceKind); !ok {
			return identityResult, errors.Marshalling("borrow: unknown or mistyped resource handle for "+name, nil)
		}
		r.Resources.Borrow(h)
		held = append(held, h)
	}

	return func(result wire.Value) wire.Value {
		for _, h := range held {
			r.Resources.ReturnBorrow(h)
		}
		return result
	}, nil
}

func identityResult(v wire.Value) wire.Value { return v }
