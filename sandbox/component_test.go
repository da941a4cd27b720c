//go:build component

package sandbox_test

import (
	"context"
	"testing"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/sandbox"
	"github.com/hlwasm/hlwasm/sandbox/testwasm"
	"github.com/hlwasm/hlwasm/wire"
)

func TestComponentWorld_BorrowedHandleRoundTrip(t *testing.T) {
	ctx := context.Background()

	world := component.NewWorld()
	world.AddExport(component.Function{
		Name:   "echo",
		Params: []component.Param{{Kind: component.KindBorrow, ResourceKind: "buf"}},
		Result: component.Param{Kind: component.KindValue},
	})

	proto, err := sandbox.NewBuilder().WithComponentWorld(world).Build()
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

	handle, err := loaded.NewResourceHandle("buf", []byte("payload"))
	if err != nil {
		t.Fatalf("new_resource_handle: %v", err)
	}

	got, err := loaded.CallGuestFunction(ctx, "echo", []wire.Value{wire.ULong(handle)}, wire.TagULong)
	if err != nil {
		t.Fatalf("call_guest_function: %v", err)
	}
	if got.ULong() != handle {
		t.Fatalf("echo did not pass the handle through: got %d, want %d", got.ULong(), handle)
	}

	if _, err := loaded.DropResourceHandle(handle); err != nil {
		t.Fatalf("drop_resource_handle after call completion: %v", err)
	}
}
