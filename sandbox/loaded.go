package sandbox

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/hostfn"
	"github.com/hlwasm/hlwasm/hypervisor"
	"github.com/hlwasm/hlwasm/loader"
	"github.com/hlwasm/hlwasm/mailbox"
	"github.com/hlwasm/hlwasm/metrics"
	"github.com/hlwasm/hlwasm/wire"
)

// Loaded is the third sandbox phase: a Wasm module/component is
// instantiated and guest calls may be issued. A Loaded carries a poisoned
// flag (set on any abnormal guest exit) that only restore and
// unload_module clear.
type Loaded struct {
	cfg             Config
	machine         hypervisor.Machine
	mbox            mailbox.Mailbox
	reg             *hostfn.Registry
	rt              *guestrt.Runtime
	runtimeSnapshot Snapshot
	mset            *metrics.Set
	closer          loader.Closer

	// mu serializes call_guest_function/snapshot/restore/unload_module:
	// at most one caller may drive a sandbox at a time.
	mu sync.Mutex

	poisoned atomic.Bool
	killed   atomic.Bool
	cancel   atomic.Pointer[context.CancelFunc]
}

// IsPoisoned reports whether the sandbox is currently poisoned.
func (l *Loaded) IsPoisoned() bool {
	return l.poisoned.Load()
}

// InterruptHandle returns a handle whose Kill asynchronously terminates an
// in-progress call_guest_function with ExecutionCanceledByHost.
func (l *Loaded) InterruptHandle() InterruptHandle {
	return InterruptHandle{killed: &l.killed, cancel: &l.cancel}
}

// CallGuestFunction encodes (name, params, returnType) into the parameter
// mailbox, runs the guest dispatch, and decodes the result mailbox. On
// abnormal exit it poisons the sandbox and returns the original error; on
// a benign dispatch-level failure (e.g. an unknown function name) the
// sandbox stays healthy.
func (l *Loaded) CallGuestFunction(ctx context.Context, name string, params []wire.Value, returnType wire.Tag) (wire.Value, error) {
	if l.poisoned.Load() {
		return wire.Value{}, errors.Poisoned()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.poisoned.Load() {
		return wire.Value{}, errors.Poisoned()
	}

	l.cfg.logger().Debug("call_guest_function", zap.String("sandbox_id", l.cfg.ID.String()), zap.String("name", name))

	if l.killed.Swap(false) {
		l.poisoned.Store(true)
		err := errors.ExecutionCanceled("kill() latched before this call started")
		l.cfg.logger().Warn("call_guest_function interrupted before start",
			zap.String("sandbox_id", l.cfg.ID.String()), zap.String("name", name))
		return wire.Value{}, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	l.cancel.Store(&cancel)
	defer func() {
		l.cancel.Store(nil)
		l.killed.Store(false)
		cancel()
	}()

	frame := wire.CallFrame{FunctionName: name, Parameters: params, ReturnType: returnType}
	if !l.mbox.PutParams(frame.Encode()) {
		return wire.Value{}, errors.Marshalling("call frame exceeds parameter mailbox capacity", nil)
	}
	decodedFrame, err := wire.DecodeCallFrame(l.mbox.Params)
	if err != nil {
		return wire.Value{}, err
	}

	ret := l.rt.DispatchFunction(callCtx, decodedFrame)

	if !l.mbox.PutResults(ret.Encode()) {
		return wire.Value{}, errors.Marshalling("return frame exceeds result mailbox capacity", nil)
	}
	resultFrame, err := wire.DecodeReturnFrame(l.mbox.Results)
	if err != nil {
		return wire.Value{}, err
	}

	if !resultFrame.Ok {
		kind, poison := classifyDispatchFailure(resultFrame.ErrMessage)
		e := errors.New(errors.PhaseLoaded, kind).Detail(resultFrame.ErrMessage).Build()
		if poison {
			l.poisoned.Store(true)
			l.cfg.logger().Warn("call_guest_function abnormal exit, sandbox poisoned",
				zap.String("sandbox_id", l.cfg.ID.String()), zap.String("name", name), zap.Error(e))
		}
		return wire.Value{}, e
	}

	l.cfg.logger().Debug("call_guest_function ok",
		zap.String("sandbox_id", l.cfg.ID.String()), zap.String("name", name))
	return resultFrame.Value, nil
}

// classifyDispatchFailure maps the plain-text failure a wire-level
// ReturnFrame carries (the mailbox boundary has no room for a typed Go
// error) back onto an error Kind and whether the failure should poison the
// sandbox. Abnormal guest exits (cancellation, traps) poison; dispatch-time
// bookkeeping failures (unknown function, decode and marshalling errors)
// leave the sandbox healthy, reported as a MarshallingError.
func classifyDispatchFailure(msg string) (kind errors.Kind, poison bool) {
	switch {
	case strings.Contains(msg, string(errors.KindExecutionCanceled)):
		return errors.KindExecutionCanceled, true
	case strings.HasPrefix(msg, "guest function trapped"):
		return errors.KindGuestAborted, true
	case strings.HasPrefix(msg, "no wasm instance"),
		strings.HasPrefix(msg, "function not found"),
		strings.Contains(msg, "decode"),
		strings.Contains(msg, string(errors.KindMarshallingError)):
		return errors.KindMarshallingError, false
	default:
		return errors.KindGuestAborted, true
	}
}

// Snapshot captures the full VM state. Fails with PoisonedSandbox if the
// sandbox is currently poisoned.
func (l *Loaded) Snapshot(ctx context.Context) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.poisoned.Load() {
		return Snapshot{}, errors.Poisoned()
	}
	snap := captureSnapshot(ctx, l.machine, l.rt)
	l.cfg.logger().Debug("snapshot", zap.String("sandbox_id", l.cfg.ID.String()))
	return snap, nil
}

// Restore overwrites VM state from snap and unconditionally clears
// poisoned, the primary recovery path.
func (l *Loaded) Restore(ctx context.Context, snap Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := snap.restore(ctx, l.machine, l.rt); err != nil {
		return err
	}
	l.poisoned.Store(false)
	l.killed.Store(false)
	l.cfg.logger().Debug("restore ok", zap.String("sandbox_id", l.cfg.ID.String()))
	return nil
}

// UnloadModule restores the retained runtime-phase snapshot regardless of
// poisoning and returns the Runtime that can load a fresh module.
func (l *Loaded) UnloadModule(ctx context.Context) (*Runtime, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.runtimeSnapshot.restore(ctx, l.machine, l.rt); err != nil {
		return nil, err
	}
	l.poisoned.Store(false)
	l.killed.Store(false)
	if err := l.closer.Close(); err != nil {
		l.cfg.logger().Warn("unload_module: releasing module mapping failed",
			zap.String("sandbox_id", l.cfg.ID.String()), zap.Error(err))
	}

	l.mset.Leave(metrics.PhaseLoaded)
	l.mset.Unload()
	l.mset.Enter(metrics.PhaseRuntime)
	l.cfg.logger().Debug("unload_module ok", zap.String("sandbox_id", l.cfg.ID.String()))

	return &Runtime{
		cfg:             l.cfg,
		machine:         l.machine,
		mbox:            l.mbox,
		reg:             l.reg,
		rt:              l.rt,
		runtimeSnapshot: l.runtimeSnapshot,
		mset:            l.mset,
	}, nil
}

// NewResourceHandle lets a registered host function hand the guest a
// stable reference to a host-owned resource it just created. Fails on a
// module-mode build (see guestrt.Runtime.NewResourceHandle).
func (l *Loaded) NewResourceHandle(kind string, value any) (uint64, error) {
	return l.rt.NewResourceHandle(kind, value)
}

// DropResourceHandle releases a resource handle the guest is done with,
// refusing while an in-flight call still holds a borrow on it.
func (l *Loaded) DropResourceHandle(handle uint64) (any, error) {
	return l.rt.DropResourceHandle(handle)
}

// Dispose releases the guest engine and any host-side module mapping
// without transitioning back to Runtime. Go has no destructors, so this
// stands in for the terminal teardown a value's destructor would perform
// in a language with them: callers that are done with a sandbox entirely
// (rather than unloading to reuse the Runtime) should call it to
// decrement the active-sandbox gauge and free resources.
func (l *Loaded) Dispose(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mset.Leave(metrics.PhaseLoaded)
	closeErr := l.closer.Close()
	if err := l.rt.Close(ctx); err != nil {
		return err
	}
	return closeErr
}
