package guestrt

import (
	"context"

	"github.com/hlwasm/hlwasm/wire"
)

// HostCaller issues an outgoing host call for a guest import not otherwise
// serviced in-process. InitWasmRuntime registers one import wrapper per
// host function descriptor, and that wrapper calls this on every
// invocation; the sandbox layer
// supplies the concrete implementation, keeping guestrt ignorant of the
// host-function registry's storage.
type HostCaller interface {
	CallHost(ctx context.Context, name string, params []wire.Value) (wire.Value, error)
}

// Printer receives guest stdout text forwarded through fd_write on fd 1,
// standing in for the original PrintOutput host function.
type Printer interface {
	PrintOutput(s string) (int32, error)
}
