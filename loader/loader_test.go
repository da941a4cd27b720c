package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/wire"
)

type stubCaller struct{}

func (stubCaller) CallHost(ctx context.Context, name string, params []wire.Value) (wire.Value, error) {
	return wire.Int(0), nil
}

type stubPrinter struct{}

func (stubPrinter) PrintOutput(s string) (int32, error) { return int32(len(s)), nil }

func newInitializedRuntime(t *testing.T) *guestrt.Runtime {
	t.Helper()
	rt := guestrt.New()
	blob := wire.EncodeRegistry(nil)
	if err := rt.InitWasmRuntime(context.Background(), blob, stubCaller{}, stubPrinter{}); err != nil {
		t.Fatalf("InitWasmRuntime: %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func TestLoad_RejectsUncompilableFile(t *testing.T) {
	rt := newInitializedRuntime(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "not-wasm.bin")
	if err := os.WriteFile(path, []byte("not a real wasm module"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, _, err := Load(context.Background(), rt, path)
	if err == nil {
		t.Fatal("expected a compile error for a non-wasm file")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	rt := newInitializedRuntime(t)

	_, _, err := Load(context.Background(), rt, filepath.Join(t.TempDir(), "missing.wasm"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadFromBuffer_RejectsGarbage(t *testing.T) {
	rt := newInitializedRuntime(t)

	_, err := LoadFromBuffer(context.Background(), rt, []byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected a compile error for a garbage buffer")
	}
}

func TestLoadByMapping_RejectsGarbage(t *testing.T) {
	rt := newInitializedRuntime(t)

	_, err := LoadByMapping(context.Background(), rt, []byte("definitely not wasm"))
	if err == nil {
		t.Fatal("expected a compile error for a garbage mapping")
	}
}

func TestMethodString(t *testing.T) {
	cases := map[Method]string{
		MethodMapped:        "mapped",
		MethodCopied:        "copied",
		MethodCallerMapping: "caller_mapping",
		Method(99):          "unknown",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Errorf("Method(%d).String() = %q, want %q", m, got, want)
		}
	}
}
