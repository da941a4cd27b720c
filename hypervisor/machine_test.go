package hypervisor

import "testing"

func TestSoftwareMachine_GuestPhysZeroInitialized(t *testing.T) {
	m := NewSoftwareMachine(64)
	phys := m.GuestPhys()
	if len(phys) != 64 {
		t.Fatalf("len(GuestPhys()) = %d, want 64", len(phys))
	}
	for i, b := range phys {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestSoftwareMachine_RegionIsAViewNotACopy(t *testing.T) {
	m := NewSoftwareMachine(16)
	r := m.Region(4, 8)
	r[0] = 0xAB
	if m.GuestPhys()[4] != 0xAB {
		t.Fatal("Region must return a view into the arena, not a copy")
	}
}

func TestSoftwareMachine_RegionOutOfBoundsPanics(t *testing.T) {
	m := NewSoftwareMachine(16)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-bounds region")
		}
	}()
	m.Region(10, 10)
}

func TestSoftwareMachine_RegionCapPreventsSpill(t *testing.T) {
	m := NewSoftwareMachine(16)
	r := m.Region(0, 4)
	r = append(r, 1, 2, 3, 4, 5) // forces reallocation since cap == len == 4
	if &m.GuestPhys()[4] == &r[4] {
		t.Fatal("appending past a region's length must not write into its neighbor")
	}
}

func TestSoftwareMachine_SnapshotRestoreRoundTrip(t *testing.T) {
	m := NewSoftwareMachine(8)
	phys := m.GuestPhys()
	copy(phys, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	snap := m.Snapshot()
	copy(phys, []byte{0, 0, 0, 0, 0, 0, 0, 0})

	m.Restore(snap)
	for i, want := range []byte{1, 2, 3, 4, 5, 6, 7, 8} {
		if m.GuestPhys()[i] != want {
			t.Fatalf("byte %d = %d, want %d", i, m.GuestPhys()[i], want)
		}
	}
}

func TestSoftwareMachine_SnapshotIsIndependentOfLaterWrites(t *testing.T) {
	m := NewSoftwareMachine(4)
	snap := m.Snapshot()
	copy(m.GuestPhys(), []byte{9, 9, 9, 9})
	for _, b := range snap.Bytes() {
		if b != 0 {
			t.Fatal("snapshot must not observe writes made after it was taken")
		}
	}
}

func TestSoftwareMachine_RestorePanicsOnSizeMismatch(t *testing.T) {
	m := NewSoftwareMachine(8)
	other := NewSoftwareMachine(4)
	snap := other.Snapshot()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic restoring a snapshot of the wrong size")
		}
	}()
	m.Restore(snap)
}

func TestMemorySnapshot_Len(t *testing.T) {
	m := NewSoftwareMachine(12)
	if got := m.Snapshot().Len(); got != 12 {
		t.Fatalf("Len() = %d, want 12", got)
	}
}
