package resource

import "testing"

func TestTable_InsertGet(t *testing.T) {
	tbl := NewTable()
	h, err := tbl.Insert("file", 42)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v, ok := tbl.Get(h)
	if !ok || v.(int) != 42 {
		t.Fatalf("Get = %v, %v, want 42, true", v, ok)
	}
}

func TestTable_GetKindMismatch(t *testing.T) {
	tbl := NewTable()
	h, _ := tbl.Insert("file", 1)
	if _, ok := tbl.GetKind(h, "socket"); ok {
		t.Error("GetKind should fail for the wrong kind")
	}
	if _, ok := tbl.GetKind(h, "file"); !ok {
		t.Error("GetKind should succeed for the right kind")
	}
}

func TestTable_DropRefusesOutstandingBorrow(t *testing.T) {
	tbl := NewTable()
	h, _ := tbl.Insert("file", 1)
	tbl.Borrow(h)
	if _, err := tbl.Drop(h); err == nil {
		t.Error("Drop should refuse while a borrow is outstanding")
	}
	tbl.ReturnBorrow(h)
	if _, err := tbl.Drop(h); err != nil {
		t.Errorf("Drop after ReturnBorrow: %v", err)
	}
}

func TestTable_HandleReuse(t *testing.T) {
	tbl := NewTable()
	h1, _ := tbl.Insert("file", 1)
	tbl.Drop(h1)
	h2, _ := tbl.Insert("file", 2)
	if h2 != h1 {
		t.Errorf("expected handle reuse, got h1=%d h2=%d", h1, h2)
	}
	if _, ok := tbl.Get(h1); !ok {
		t.Error("reused handle should resolve to the new value")
	}
}

func TestTable_CloseInvalidatesHandles(t *testing.T) {
	tbl := NewTable()
	h, _ := tbl.Insert("file", 1)
	tbl.Close()
	if _, ok := tbl.Get(h); ok {
		t.Error("handles should not resolve after Close")
	}
	if _, err := tbl.Insert("file", 2); err == nil {
		t.Error("Insert should fail after Close")
	}
}
