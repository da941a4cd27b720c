package guestmem

import "testing"

func TestAllocator_MmapNewStride(t *testing.T) {
	a := NewAllocator()
	a1, ok := a.MmapNew(4096, ProtRead|ProtWrite)
	if !ok || a1 != EngineMmapBase {
		t.Fatalf("first mmap = 0x%x, want base 0x%x", a1, EngineMmapBase)
	}
	a2, ok := a.MmapNew(4096, ProtRead|ProtWrite)
	if !ok || a2 != EngineMmapBase+EngineMmapStride {
		t.Fatalf("second mmap = 0x%x, want 0x%x", a2, EngineMmapBase+EngineMmapStride)
	}
}

func TestAllocator_MmapNewTooLarge(t *testing.T) {
	a := NewAllocator()
	if _, ok := a.MmapNew(MaxSingleMapping+1, ProtRead); ok {
		t.Error("oversized mmap_new should fail")
	}
}

func TestAllocator_Mprotect(t *testing.T) {
	a := NewAllocator()
	cases := []struct {
		prot Prot
		want bool
	}{
		{ProtRead, true},
		{ProtRead | ProtExec, true},
		{ProtRead | ProtWrite, true},
		{ProtExec, false},
		{ProtRead | ProtWrite | ProtExec, false},
	}
	for _, c := range cases {
		if got := a.Mprotect(0, 4096, c.prot); got != c.want {
			t.Errorf("Mprotect(%v) = %v, want %v", c.prot, got, c.want)
		}
	}
}

func TestAllocator_InWindow(t *testing.T) {
	a := NewAllocator()
	base, _ := a.MmapNew(8192, ProtRead|ProtWrite)
	if !a.InWindow(base) || !a.InWindow(base + PageSize) {
		t.Error("addresses inside the mapping should be in window")
	}
	if a.InWindow(0x1_0000_0000) {
		t.Error("the fixed Wasm-artifact VA should not be in the engine's mmap window")
	}
}

func TestPageTable_ServicesWindowFaults(t *testing.T) {
	a := NewAllocator()
	base, _ := a.MmapNew(2*PageSize, ProtRead|ProtWrite)
	pt := NewPageTable(a)

	if kind := pt.HandleFault(base, false); kind != FaultServiced {
		t.Fatalf("fault in window should be serviced, got %v", kind)
	}
	if kind := pt.HandleFault(0xdeadbeef, false); kind != FaultCrash {
		t.Fatalf("fault outside window should crash, got %v", kind)
	}
}

func TestPageTable_ReadWriteZerosOnFirstAccess(t *testing.T) {
	a := NewAllocator()
	base, _ := a.MmapNew(2*PageSize, ProtRead|ProtWrite)
	pt := NewPageTable(a)

	buf := make([]byte, 16)
	if err := pt.Read(base+10, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("freshly faulted page should read as zero, got %v", buf)
		}
	}

	payload := []byte("hello wasm")
	if err := pt.Write(base+10, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	roundtrip := make([]byte, len(payload))
	if err := pt.Read(base+10, roundtrip); err != nil {
		t.Fatalf("Read back: %v", err)
	}
	if string(roundtrip) != string(payload) {
		t.Errorf("Read back = %q, want %q", roundtrip, payload)
	}
}

func TestPageTable_CrossPageWriteFaultsOutOfWindow(t *testing.T) {
	a := NewAllocator()
	base, _ := a.MmapNew(PageSize, ProtRead|ProtWrite)
	pt := NewPageTable(a)
	// Writing past the single mapped page should hit an address the
	// allocator never handed out.
	if err := pt.Write(base+PageSize-4, make([]byte, 16)); err == nil {
		t.Error("write crossing outside the mapping should fault")
	}
}

func TestTrapTable_ForwardsUD(t *testing.T) {
	var tt TrapTable
	var gotIP, gotFP uint64
	tt.Register(func(ip, fp uint64, hasAddr bool, addr uint64) {
		gotIP, gotFP = ip, fp
	})

	frame := &RegisterFrame{IP: 0x4000}
	if !tt.Forward(VectorInvalidOp, frame, 0x5000) {
		t.Fatal("a #UD with a registered handler should be forwarded")
	}
	if gotIP != 0x4000 || gotFP != 0x5000 {
		t.Errorf("handler invoked with ip=0x%x fp=0x%x, want 0x4000/0x5000", gotIP, gotFP)
	}
	if frame.Scratch[0] != 0x4000 || frame.Scratch[1] != 0x5000 {
		t.Errorf("scratch registers not preserved: %+v", frame.Scratch)
	}
}

func TestTrapTable_OtherVectorsNotForwarded(t *testing.T) {
	var tt TrapTable
	tt.Register(func(ip, fp uint64, hasAddr bool, addr uint64) {
		t.Error("handler should not be invoked for a non-#UD vector")
	})
	frame := &RegisterFrame{}
	if tt.Forward(VectorPageFault, frame, 0) {
		t.Error("#PF should not be forwarded through the trap table")
	}
}

func TestTLS_SingleSlot(t *testing.T) {
	var tls TLS
	if tls.Get() != nil {
		t.Error("new TLS should start nil")
	}
	var b byte
	tls.Set(&b)
	if tls.Get() != &b {
		t.Error("Get should return the last Set value")
	}
}

func TestCodeMemory_NoopPublish(t *testing.T) {
	cm := CodeMemory{}
	if cm.RequiredAlignment() != PageSize {
		t.Errorf("alignment = %d, want page size %d", cm.RequiredAlignment(), PageSize)
	}
	if err := cm.PublishExecutable(0x1000, 4096); err != nil {
		t.Errorf("publish should be a no-op success: %v", err)
	}
	if err := cm.UnpublishExecutable(0x1000, 4096); err != nil {
		t.Errorf("unpublish should be a no-op success: %v", err)
	}
}
