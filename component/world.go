// Package component describes the flat component-world binding a
// component-mode sandbox instantiates against: which guest exports are
// callable, which host imports the guest may call out to, and which of
// their parameters/results carry a resource handle rather than a plain
// value.
//
// This is a deliberately narrow slice of the WebAssembly Component
// Model's binding surface: one world, no nested interfaces or instance
// graphs, and no canonical-ABI flatten/lift/lower for compound record,
// variant, or list payloads (those still cross the wire as the plain
// wire.Tag scalars guestrt.marshal already supports). See DESIGN.md for
// what a full binary component decoder would add beyond this.
package component

import "go.bytecodealliance.org/wit"

// ParamKind classifies how a single function parameter or result crosses
// the resource-handle boundary.
type ParamKind int

const (
	// KindValue carries a plain value; no resource.Table involvement.
	KindValue ParamKind = iota
	// KindOwn transfers ownership of a resource handle: the callee is
	// responsible for eventually dropping it.
	KindOwn
	// KindBorrow lends a resource handle for the call's duration only;
	// the table's borrow count is held across the call and released
	// when it returns.
	KindBorrow
)

// Param describes one function parameter or result.
type Param struct {
	Kind ParamKind
	// ResourceKind names the resource.Table kind a KindOwn/KindBorrow
	// parameter's handle was inserted under, so a mismatched handle
	// (the right number, the wrong resource type) is rejected instead
	// of silently accepted.
	ResourceKind string
}

// Function is one bound export (guest function reachable from
// call_guest_function) or import (host function the guest calls out to).
type Function struct {
	Name   string
	Params []Param
	Result Param
}

// World is the component-world binding a Loaded sandbox dispatches
// against in component mode.
type World struct {
	Exports map[string]Function
	Imports map[string]Function
}

// NewWorld returns an empty World ready for AddExport/AddImport calls.
func NewWorld() *World {
	return &World{Exports: map[string]Function{}, Imports: map[string]Function{}}
}

// AddExport registers a guest-callable function's resource-handle shape.
func (w *World) AddExport(fn Function) { w.Exports[fn.Name] = fn }

// AddImport registers a host-callable function's resource-handle shape.
func (w *World) AddImport(fn Function) { w.Imports[fn.Name] = fn }

// Export looks up a bound export by name.
func (w *World) Export(name string) (Function, bool) {
	fn, ok := w.Exports[name]
	return fn, ok
}

// ParamKindOf classifies a WIT type's resource-handle shape: wit.Own and
// wit.Borrow type-def kinds become KindOwn/KindBorrow, everything else
// (including compound types this build doesn't lower/lift) is KindValue.
func ParamKindOf(t wit.Type) ParamKind {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return KindValue
	}
	switch td.Kind.(type) {
	case *wit.Own:
		return KindOwn
	case *wit.Borrow:
		return KindBorrow
	default:
		return KindValue
	}
}
