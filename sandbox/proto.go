package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/guestrt"
	"github.com/hlwasm/hlwasm/hostfn"
	"github.com/hlwasm/hlwasm/hypervisor"
	"github.com/hlwasm/hlwasm/mailbox"
	"github.com/hlwasm/hlwasm/metrics"
)

// Proto is the first sandbox phase: the guest image is conceptually loaded
// (in this build, the guest physical memory arena exists and a bundled
// image would be mapped into it by a real hardware-backed build; here the
// guest is a Go runtime shim driven directly), no engine is initialized
// yet, and host functions may be registered.
type Proto struct {
	cfg     Config
	machine hypervisor.Machine
	mbox    mailbox.Mailbox
	reg     *hostfn.Registry
	mset    *metrics.Set
}

func newProto(cfg Config) (*Proto, error) {
	machine := hypervisor.NewSoftwareMachine(cfg.arenaSize())
	mbox := mailbox.FromRegions(
		machine.Region(0, cfg.InputBufferSize),
		machine.Region(cfg.InputBufferSize, cfg.OutputBufferSize),
	)

	reg := hostfn.NewRegistry()
	if cfg.HostPrintFn != nil {
		reg.RegisterPrint(cfg.HostPrintFn)
	}

	mset, err := metrics.New(cfg.registerer())
	if err != nil {
		return nil, errors.Init("metrics registration failed", err)
	}
	mset.Enter(metrics.PhaseProto)

	cfg.logger().Debug("sandbox built",
		zap.String("sandbox_id", cfg.ID.String()),
		zap.Int("guest_input_buffer_size", cfg.InputBufferSize),
		zap.Int("guest_output_buffer_size", cfg.OutputBufferSize),
		zap.Int("guest_stack_size", cfg.StackSize),
		zap.Int("guest_heap_size", cfg.HeapSize))

	return &Proto{cfg: cfg, machine: machine, mbox: mbox, reg: reg, mset: mset}, nil
}

// Register appends a host function to the registry, inferring its wire
// signature by reflection. Fails if name is empty, already registered, or
// fn's signature can't be represented in the wire ADT.
func (p *Proto) Register(name string, fn any) error {
	if err := p.reg.Register(name, fn); err != nil {
		p.cfg.logger().Warn("host function registration failed",
			zap.String("sandbox_id", p.cfg.ID.String()), zap.String("name", name), zap.Error(err))
		return err
	}
	return nil
}

// RegisterPrint replaces the default HostPrint implementation.
func (p *Proto) RegisterPrint(fn func(string) (int32, error)) {
	p.reg.RegisterPrint(fn)
}

// LoadRuntime seals the host function registry, initializes the guest
// engine with it, and captures the snapshot every later Loaded value
// restores to on unload_module. Consumes p: callers must not use it again.
func (p *Proto) LoadRuntime(ctx context.Context) (*Runtime, error) {
	blob := p.reg.Seal()
	if len(blob) > p.cfg.FunctionDefinitionSize {
		p.mset.Leave(metrics.PhaseProto)
		return nil, errors.Init("serialized host function registry exceeds function_definition_size", nil)
	}

	rt := guestrt.New()
	if err := rt.InitWasmRuntime(ctx, blob, p.reg, p.reg); err != nil {
		p.mset.Leave(metrics.PhaseProto)
		p.cfg.logger().Warn("load_runtime failed", zap.String("sandbox_id", p.cfg.ID.String()), zap.Error(err))
		return nil, err
	}

	snap := captureSnapshot(ctx, p.machine, rt)

	p.mset.Leave(metrics.PhaseProto)
	p.mset.Enter(metrics.PhaseRuntime)
	p.cfg.logger().Debug("load_runtime ok", zap.String("sandbox_id", p.cfg.ID.String()))

	return &Runtime{
		cfg:             p.cfg,
		machine:         p.machine,
		mbox:            p.mbox,
		reg:             p.reg,
		rt:              rt,
		runtimeSnapshot: snap,
		mset:            p.mset,
	}, nil
}
