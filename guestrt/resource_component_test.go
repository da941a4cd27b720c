//go:build component

package guestrt

import (
	"testing"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/wire"
)

func TestBindWorld_RecordsWorld(t *testing.T) {
	r := New()
	w := component.NewWorld()
	if err := r.BindWorld(w); err != nil {
		t.Fatalf("BindWorld: %v", err)
	}
	if r.world != w {
		t.Fatal("BindWorld did not record the World")
	}
}

func TestResourceHandle_NewAndDrop(t *testing.T) {
	r := New()
	h, err := r.NewResourceHandle("file", 7)
	if err != nil {
		t.Fatalf("NewResourceHandle: %v", err)
	}
	v, err := r.DropResourceHandle(h)
	if err != nil {
		t.Fatalf("DropResourceHandle: %v", err)
	}
	if v.(int) != 7 {
		t.Fatalf("dropped value = %v, want 7", v)
	}
}

func TestBeginResourceScope_BorrowHeldThenReleased(t *testing.T) {
	r := New()
	w := component.NewWorld()
	w.AddExport(component.Function{
		Name: "use_file",
		Params: []component.Param{
			{Kind: component.KindBorrow, ResourceKind: "file"},
		},
	})
	if err := r.BindWorld(w); err != nil {
		t.Fatalf("BindWorld: %v", err)
	}

	h, err := r.NewResourceHandle("file", 1)
	if err != nil {
		t.Fatalf("NewResourceHandle: %v", err)
	}

	release, err := r.beginResourceScope("use_file", []wire.Value{wire.ULong(h)})
	if err != nil {
		t.Fatalf("beginResourceScope: %v", err)
	}

	if _, err := r.DropResourceHandle(h); err == nil {
		t.Fatal("expected Drop to refuse while a borrow is held")
	}

	release(wire.Void())

	if _, err := r.DropResourceHandle(h); err != nil {
		t.Fatalf("DropResourceHandle after release: %v", err)
	}
}

func TestBeginResourceScope_RejectsMistypedHandle(t *testing.T) {
	r := New()
	w := component.NewWorld()
	w.AddExport(component.Function{
		Name:   "use_socket",
		Params: []component.Param{{Kind: component.KindBorrow, ResourceKind: "socket"}},
	})
	if err := r.BindWorld(w); err != nil {
		t.Fatalf("BindWorld: %v", err)
	}

	h, _ := r.NewResourceHandle("file", 1)
	if _, err := r.beginResourceScope("use_socket", []wire.Value{wire.ULong(h)}); err == nil {
		t.Fatal("expected a kind mismatch to be rejected")
	}
}

func TestBeginResourceScope_UnboundExportIsNoop(t *testing.T) {
	r := New()
	release, err := r.beginResourceScope("whatever", nil)
	if err != nil {
		t.Fatalf("beginResourceScope with no bound world: %v", err)
	}
	v := release(wire.Int(5))
	if v.Int() != 5 {
		t.Fatalf("release() must pass the result through unchanged, got %v", v)
	}
}
