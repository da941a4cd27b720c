package resource

import (
	"sync"

	"github.com/hlwasm/hlwasm/errors"
)

// Handle is an opaque, 1-based reference into a Table. The zero value is
// never a valid handle.
type Handle uint32

type entry struct {
	kind        string
	value       any
	borrowCount uint32
	valid       bool
}

// Table is a per-sandbox handle table keyed by resource kind, used only in
// component mode to give the host stable references into guest-managed
// resources.
type Table struct {
	mu       sync.RWMutex
	entries  []entry
	freeList []Handle
	closed   bool
}

// NewTable creates an empty resource table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

// Insert stores value under the given resource kind and returns its handle.
func (t *Table) Insert(kind string, value any) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.New(errors.PhaseLoaded, errors.KindPoisonedSandbox).
			Detail("resource table closed").Build()
	}

	e := entry{kind: kind, value: value, valid: true}
	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h, nil
	}
	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// Get retrieves a resource by handle, regardless of kind.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.lookup(h)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetKind retrieves a resource only if it was inserted under kind.
func (t *Table) GetKind(h Handle, kind string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.lookup(h)
	if !ok || e.kind != kind {
		return nil, false
	}
	return e.value, true
}

// Borrow increments a handle's outstanding-borrow count.
func (t *Table) Borrow(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.index(h)
	if !ok {
		return false
	}
	t.entries[idx].borrowCount++
	return true
}

// ReturnBorrow decrements a handle's outstanding-borrow count.
func (t *Table) ReturnBorrow(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.index(h)
	if !ok || t.entries[idx].borrowCount == 0 {
		return false
	}
	t.entries[idx].borrowCount--
	return true
}

// Drop removes a handle, refusing if borrows are outstanding.
func (t *Table) Drop(h Handle) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.index(h)
	if !ok {
		return nil, errors.New(errors.PhaseLoaded, errors.KindMarshallingError).
			Detail("drop: unknown resource handle").Build()
	}
	if t.entries[idx].borrowCount > 0 {
		return nil, errors.New(errors.PhaseLoaded, errors.KindMarshallingError).
			Detail("drop: resource has outstanding borrows").Build()
	}
	value := t.entries[idx].value
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, h)
	return value, nil
}

// Len reports the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Close invalidates every live handle. Further Insert calls fail.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.entries = nil
	t.freeList = nil
}

func (t *Table) lookup(h Handle) (entry, bool) {
	idx, ok := t.index(h)
	if !ok {
		return entry{}, false
	}
	return t.entries[idx], true
}

func (t *Table) index(h Handle) (int, bool) {
	if h == 0 {
		return 0, false
	}
	idx := int(h) - 1
	if idx < 0 || idx >= len(t.entries) || !t.entries[idx].valid {
		return 0, false
	}
	return idx, true
}
