// Package resource implements the per-sandbox resource type table used in
// component mode: a map from resource kind to an opaque integer handle,
// giving the host a stable reference to guest-managed resources crossing
// the VM boundary.
//
// The handle table is borrow-tracked (Drop refuses while a borrow is
// outstanding) and generalized from a fixed WIT type-id space to an open
// set of string-named resource kinds, since only "kind -> handle" bookkeeping
// is needed here, not a full WIT type registry.
package resource
