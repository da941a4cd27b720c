//go:build !component

package guestrt

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

// ComponentMode reports whether this build was compiled with the
// "component" build tag. The module build resolves exported functions
// directly; it carries no resource table.
const ComponentMode = false

// resolveFunction looks up a core-module export by name.
func (r *Runtime) resolveFunction(name string) api.Function {
	if r.instance == nil {
		return nil
	}
	return r.instance.ExportedFunction(name)
}

// BindWorld fails in module mode: there is no resource table to back a
// component-world's Own/Borrow handle bookkeeping.
func (r *Runtime) BindWorld(w *component.World) error {
	return errors.Init("bind_world: not supported in module mode", nil)
}

// NewResourceHandle fails in module mode for the same reason BindWorld does.
func (r *Runtime) NewResourceHandle(kind string, value any) (uint64, error) {
	return 0, errors.Init("new_resource_handle: not supported in module mode", nil)
}

// DropResourceHandle fails in module mode for the same reason BindWorld does.
func (r *Runtime) DropResourceHandle(handle uint64) (any, error) {
	return nil, errors.Init("drop_resource_handle: not supported in module mode", nil)
}

// beginResourceScope is a no-op in module mode: no world is bound, so no
// parameter can be resource-handle-typed.
func (r *Runtime) beginResourceScope(name string, params []wire.Value) (func(wire.Value) wire.Value, error) {
	return identityResult, nil
}

func identityResult(v wire.Value) wire.Value { return v }
