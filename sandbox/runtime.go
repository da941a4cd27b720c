package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/hostfn"
	"github.com/hlwasm/hlwasm/hypervisor"
	"github.com/hlwasm/hlwasm/loader"
	"github.com/hlwasm/hlwasm/mailbox"
	"github.com/hlwasm/hlwasm/metrics"
)

// Runtime is the second sandbox phase: the guest engine is initialized and
// a snapshot of that state is retained; loading an artifact produces a
// Loaded.
type Runtime struct {
	cfg             Config
	machine         hypervisor.Machine
	mbox            mailbox.Mailbox
	reg             *hostfn.Registry
	rt              *guestrt.Runtime
	runtimeSnapshot Snapshot
	mset            *metrics.Set
}

// LoadModule attempts to map path copy-on-write into the guest, falling
// back to a copy on failure, per loader.Load.
func (r *Runtime) LoadModule(ctx context.Context, path string) (*Loaded, error) {
	result, closer, err := loader.Load(ctx, r.rt, path)
	if err != nil {
		r.cfg.logger().Warn("load_module failed",
			zap.String("sandbox_id", r.cfg.ID.String()), zap.String("path", path), zap.Error(err))
		return nil, err
	}
	return r.toLoaded(closer, result)
}

// LoadModuleFromBuffer always takes the copy path.
func (r *Runtime) LoadModuleFromBuffer(ctx context.Context, wasmBytes []byte) (*Loaded, error) {
	result, err := loader.LoadFromBuffer(ctx, r.rt, wasmBytes)
	if err != nil {
		r.cfg.logger().Warn("load_module_from_buffer failed", zap.String("sandbox_id", r.cfg.ID.String()), zap.Error(err))
		return nil, err
	}
	return r.toLoaded(noopCloser{}, result)
}

// LoadModuleByMapping maps the caller's host memory directly into the
// guest with RX permissions. The caller is responsible for keeping base
// alive and immutable until the returned Loaded is disposed.
func (r *Runtime) LoadModuleByMapping(ctx context.Context, base []byte) (*Loaded, error) {
	result, err := loader.LoadByMapping(ctx, r.rt, base)
	if err != nil {
		r.cfg.logger().Warn("load_module_by_mapping failed", zap.String("sandbox_id", r.cfg.ID.String()), zap.Error(err))
		return nil, err
	}
	return r.toLoaded(noopCloser{}, result)
}

// toLoaded binds the configured ComponentWorld, if any, then transitions
// metrics and returns the Loaded. Binding only succeeds on a component-mode
// build (see guestrt.Runtime.BindWorld); a module-mode build with a
// ComponentWorld configured fails here rather than silently ignoring it.
func (r *Runtime) toLoaded(closer loader.Closer, result loader.Result) (*Loaded, error) {
	if r.cfg.ComponentWorld != nil {
		if err := r.rt.BindWorld(r.cfg.ComponentWorld); err != nil {
			closer.Close()
			r.cfg.logger().Warn("bind_world failed", zap.String("sandbox_id", r.cfg.ID.String()), zap.Error(err))
			return nil, err
		}
	}

	r.mset.Leave(metrics.PhaseRuntime)
	r.mset.Enter(metrics.PhaseLoaded)
	r.mset.Load()
	r.cfg.logger().Debug("load_module ok",
		zap.String("sandbox_id", r.cfg.ID.String()), zap.String("method", result.Method.String()))

	return &Loaded{
		cfg:             r.cfg,
		machine:         r.machine,
		mbox:            r.mbox,
		reg:             r.reg,
		rt:              r.rt,
		runtimeSnapshot: r.runtimeSnapshot,
		mset:            r.mset,
		closer:          closer,
	}, nil
}

// noopCloser is used for load paths that don't hold a host-side mapping
// the Loaded value must release.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }
