package sandbox

import (
	"context"
	"sync/atomic"
)

// InterruptHandle asynchronously cancels an in-progress call_guest_function.
// It is safe to call Kill from any goroutine at any time, including when
// no call is in progress, in which case the kill is latched and consumed
// by the next call_guest_function. Handles must be re-acquired after any
// module transition (load_module, unload_module): what a stale handle does
// afterward is undefined, so this build doesn't attempt to make one do
// anything useful.
type InterruptHandle struct {
	killed *atomic.Bool
	cancel *atomic.Pointer[context.CancelFunc]
}

// Kill latches the interrupt and, if a call is currently in progress,
// cancels its context immediately. wazero's WithCloseOnContextDone then
// forces the in-flight call to exit with a cancellation error, which
// call_guest_function reports as ExecutionCanceledByHost.
func (h InterruptHandle) Kill() {
	h.killed.Store(true)
	if cf := h.cancel.Load(); cf != nil {
		(*cf)()
	}
}
