package sandbox

import (
	"context"

	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/hypervisor"
)

// Snapshot is an immutable capture of a sandbox's full VM state: the
// hypervisor-owned guest physical memory arena (mailbox buffers plus the
// guest heap/stack region) and, when a module is loaded, the wazero
// linear-memory bytes captured through guestrt.Runtime.SnapshotMemory.
// Captured once, shared freely afterward: restore never mutates a
// Snapshot, so the same value can back every later Loaded produced from
// the Runtime it was captured on.
type Snapshot struct {
	arena       hypervisor.MemorySnapshot
	guestMem    []byte
	hasGuestMem bool
}

func captureSnapshot(ctx context.Context, m hypervisor.Machine, rt *guestrt.Runtime) Snapshot {
	mem, ok := rt.SnapshotMemory(ctx)
	return Snapshot{
		arena:       m.Snapshot(),
		guestMem:    mem,
		hasGuestMem: ok,
	}
}

// restore overwrites m and, if this snapshot captured a loaded module's
// linear memory, rt's memory too. A snapshot taken with no module loaded
// (hasGuestMem == false) only touches the arena, which is exactly the
// runtime-phase snapshot unload_module restores to.
func (s Snapshot) restore(ctx context.Context, m hypervisor.Machine, rt *guestrt.Runtime) error {
	m.Restore(s.arena)
	if !s.hasGuestMem {
		return nil
	}
	return rt.RestoreMemory(ctx, s.guestMem)
}

// Len reports the combined byte size of the captured state without
// exposing its unexported fields.
func (s Snapshot) Len() int {
	return s.arena.Len() + len(s.guestMem)
}

// Equal reports bitwise equality of the captured arena and guest memory,
// used to check that two snapshots taken back to back with no
// intervening call are identical.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.hasGuestMem != o.hasGuestMem {
		return false
	}
	return string(s.arena.Bytes()) == string(o.arena.Bytes()) && string(s.guestMem) == string(o.guestMem)
}
