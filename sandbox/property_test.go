package sandbox_test

import (
	"context"
	"testing"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/sandbox"
	"github.com/hlwasm/hlwasm/sandbox/testwasm"
	"github.com/hlwasm/hlwasm/wire"
)

// TestPhaseProgression exercises the full Proto -> Runtime -> Loaded ->
// Runtime path, the only transition graph the sandbox package allows.
func TestPhaseProgression(t *testing.T) {
	ctx := context.Background()

	proto, err := sandbox.NewBuilder().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rt, err := proto.LoadRuntime(ctx)
	if err != nil {
		t.Fatalf("load_runtime: %v", err)
	}

	loaded, err := rt.LoadModuleFromBuffer(ctx, testwasm.Echo())
	if err != nil {
		t.Fatalf("load_module_from_buffer: %v", err)
	}

	if _, err := loaded.CallGuestFunction(ctx, "echo", []wire.Value{wire.Int(7)}, wire.TagInt); err != nil {
		t.Fatalf("call_guest_function: %v", err)
	}

	rt2, err := loaded.UnloadModule(ctx)
	if err != nil {
		t.Fatalf("unload_module: %v", err)
	}

	loaded2, err := rt2.LoadModuleFromBuffer(ctx, testwasm.HelloWorld())
	if err != nil {
		t.Fatalf("reload after unload: %v", err)
	}
	if _, err := loaded2.CallGuestFunction(ctx, "hello_world", []wire.Value{wire.Int(0)}, wire.TagInt); err != nil {
		t.Fatalf("call after reload: %v", err)
	}
}

// TestSnapshotIdempotence checks that taking two snapshots back to back
// with no intervening call produces bitwise-identical captures.
func TestSnapshotIdempotence(t *testing.T) {
	ctx := context.Background()
	loaded := newLoaded(t, testwasm.CalcFib(), nil)

	s1, err := loaded.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot 1: %v", err)
	}
	s2, err := loaded.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot 2: %v", err)
	}
	if !s1.Equal(s2) {
		t.Fatal("two snapshots taken with no intervening call should be equal")
	}
}

// TestRestoreClearsPoisoning drives the sandbox into a poisoned state via
// an interrupted call and checks restore brings it back to usable.
func TestRestoreClearsPoisoning(t *testing.T) {
	ctx := context.Background()
	loaded := newLoaded(t, testwasm.CalcFib(), nil)

	snap, err := loaded.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	loaded.InterruptHandle().Kill()
	_, err = loaded.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(5)}, wire.TagInt)
	if err == nil {
		t.Fatal("expected the latched kill to fail this call")
	}
	if !loaded.IsPoisoned() {
		t.Fatal("sandbox should be poisoned after a latched kill")
	}

	if err := loaded.Restore(ctx, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if loaded.IsPoisoned() {
		t.Fatal("restore should clear poisoning")
	}

	got, err := loaded.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(10)}, wire.TagInt)
	if err != nil {
		t.Fatalf("call_guest_function after restore: %v", err)
	}
	if got.Int() != 55 {
		t.Fatalf("calc_fib(10) after restore = %d, want 55", got.Int())
	}
}

// TestUnloadRecoversFromPoisoning checks unload_module always succeeds and
// produces a usable Runtime regardless of poisoning.
func TestUnloadRecoversFromPoisoning(t *testing.T) {
	ctx := context.Background()
	loaded := newLoaded(t, testwasm.CalcFib(), nil)

	loaded.InterruptHandle().Kill()
	if _, err := loaded.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(5)}, wire.TagInt); err == nil {
		t.Fatal("expected the latched kill to fail this call")
	}
	if !loaded.IsPoisoned() {
		t.Fatal("sandbox should be poisoned")
	}

	rt, err := loaded.UnloadModule(ctx)
	if err != nil {
		t.Fatalf("unload_module should succeed even while poisoned: %v", err)
	}

	loaded2, err := rt.LoadModuleFromBuffer(ctx, testwasm.CalcFib())
	if err != nil {
		t.Fatalf("load_module_from_buffer after unload: %v", err)
	}
	got, err := loaded2.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(10)}, wire.TagInt)
	if err != nil {
		t.Fatalf("call_guest_function on reloaded module: %v", err)
	}
	if got.Int() != 55 {
		t.Fatalf("calc_fib(10) = %d, want 55", got.Int())
	}
}

// TestPoisonedSandboxRejectsAllOperations checks that, once poisoned, every
// call_guest_function fails fast with PoisonedSandbox rather than re-running
// the guest.
func TestPoisonedSandboxRejectsAllOperations(t *testing.T) {
	ctx := context.Background()
	loaded := newLoaded(t, testwasm.CalcFib(), nil)

	loaded.InterruptHandle().Kill()
	if _, err := loaded.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(1)}, wire.TagInt); err == nil {
		t.Fatal("expected failure")
	}

	_, err := loaded.CallGuestFunction(ctx, "calc_fib", []wire.Value{wire.Int(1)}, wire.TagInt)
	if !errors.IsKind(err, errors.KindPoisonedSandbox) {
		t.Fatalf("got %v, want PoisonedSandbox", err)
	}

	if _, err := loaded.Snapshot(ctx); !errors.IsKind(err, errors.KindPoisonedSandbox) {
		t.Fatalf("snapshot while poisoned: got %v, want PoisonedSandbox", err)
	}
}

// TestComponentWorldRejectedInModuleMode checks that configuring a
// ComponentWorld on a module-mode build surfaces BindWorld's "not
// supported" error at load_module time instead of silently ignoring it.
func TestComponentWorldRejectedInModuleMode(t *testing.T) {
	if guestrt.ComponentMode {
		t.Skip("built with the component tag")
	}
	ctx := context.Background()

	proto, err := sandbox.NewBuilder().WithComponentWorld(component.NewWorld()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rt, err := proto.LoadRuntime(ctx)
	if err != nil {
		t.Fatalf("load_runtime: %v", err)
	}
	if _, err := rt.LoadModuleFromBuffer(ctx, testwasm.Echo()); err == nil {
		t.Fatal("expected load_module_from_buffer to fail: module mode cannot bind a ComponentWorld")
	}
}
