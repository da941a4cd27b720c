package guestrt

import (
	"context"
	"strings"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

// DispatchFunction is the Go mirror of guest_dispatch_function: any guest
// function not otherwise registered as a stable ABI entrypoint is routed
// here. It frees the previous call's return allocation, looks up the
// exported function, marshals params into engine values, invokes, and
// marshals the result back.
func (r *Runtime) DispatchFunction(ctx context.Context, frame wire.CallFrame) wire.ReturnFrame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.instance == nil {
		return errReturn("no wasm instance available")
	}

	if r.retAlloc.present {
		if err := freeGuest(ctx, r.instance, r.retAlloc.ptr); err != nil {
			return errReturn("free previous return allocation: " + err.Error())
		}
		r.retAlloc = returnAllocation{}
	}

	fn := r.resolveFunction(frame.FunctionName)
	if fn == nil {
		return errReturn("function not found: " + frame.FunctionName)
	}

	releaseBorrows, err := r.beginResourceScope(frame.FunctionName, frame.Parameters)
	if err != nil {
		return errReturn(err.Error())
	}

	args, err := wireParamsToEngineArgs(ctx, r.instance, frame.Parameters)
	if err != nil {
		releaseBorrows(wire.Void())
		return errReturn(err.Error())
	}

	results, err := fn.Call(ctx, args...)
	if err != nil {
		releaseBorrows(wire.Void())
		if isCanceled(err) {
			return ReturnFrameFromError(errors.ExecutionCanceled(err.Error()))
		}
		return errReturn("guest function trapped: " + err.Error())
	}

	value, ptr, err := engineResultToWireValue(ctx, r.instance.Memory(), frame.ReturnType, results)
	if err != nil {
		releaseBorrows(wire.Void())
		return errReturn(err.Error())
	}
	if ptr != 0 {
		r.retAlloc = returnAllocation{present: true, ptr: ptr}
	}
	return wire.ReturnFrame{Ok: true, Value: releaseBorrows(value)}
}

// isCanceled reports whether err is wazero's WithCloseOnContextDone
// termination error, produced when the host cancels or times out the
// invoking context. wazero surfaces this as a plain formatted error rather
// than a typed one, so matching is done on the message wazero is
// documented to produce for exit-on-context-done.
func isCanceled(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "context canceled")
}

func errReturn(msg string) wire.ReturnFrame {
	return wire.ReturnFrame{Ok: false, ErrMessage: msg}
}

// ReturnFrameFromError renders a structured *errors.Error as a wire return
// frame's error branch.
func ReturnFrameFromError(err error) wire.ReturnFrame {
	return wire.ReturnFrame{Ok: false, ErrMessage: err.Error()}
}
