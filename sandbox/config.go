package sandbox

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hlwasm/hlwasm/component"
	"github.com/hlwasm/hlwasm/mailbox"
)

// Size floors below which a configured value is silently clamped up.
const (
	minFunctionDefinitionSize = 4 << 10 // 4 KiB, enough for a modest registry
	defaultFunctionDefSize    = 16 << 10
	defaultStackSize          = 256 << 10
	defaultHeapSize           = 4 << 20
	defaultOutputBufferSize   = mailbox.DefaultOutputBuffer
)

// Config is the resolved, post-clamping configuration a Builder produces.
// It is carried by every phase so later transitions (load_runtime,
// load_module, call_guest_function) can log and emit metrics consistently.
type Config struct {
	// ID identifies this sandbox in every log line it produces, so a
	// process running many sandboxes can correlate a phase transition or
	// call failure back to the sandbox it happened on. Assigned once by
	// Builder.Build; never set directly.
	ID uuid.UUID

	InputBufferSize        int
	OutputBufferSize       int
	StackSize              int
	HeapSize               int
	FunctionDefinitionSize int

	DebugPort        int
	CrashdumpEnabled bool

	HostPrintFn func(string) (int32, error)

	// Logger receives Debug/Warn lines at every phase transition. Nil is
	// treated as zap.NewNop(), applied here as a field on the config value
	// instead of a package-global singleton since every sandbox may
	// reasonably want its own logger.
	Logger *zap.Logger

	// MetricsRegisterer is where the six lifecycle gauges/counters are
	// registered. Nil means prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer

	// ComponentWorld binds component-world export/import resource-handle
	// shapes for a component-mode build. Runtime.LoadModule* rejects it
	// with a plain error on a module-mode build, since there is no
	// resource table to back Own/Borrow bookkeeping there. Nil means no
	// resource handles are tracked even in a component-mode build.
	ComponentWorld *component.World
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) registerer() prometheus.Registerer {
	if c.MetricsRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return c.MetricsRegisterer
}

// arenaSize is the total guest physical memory this sandbox's
// hypervisor.SoftwareMachine must provide: the two mailbox buffers plus the
// guest heap/stack arena, even though this in-process build has no
// separate page table to carve those regions out of.
func (c Config) arenaSize() int {
	return c.InputBufferSize + c.OutputBufferSize + c.StackSize + c.HeapSize
}

// Builder collects sandbox configuration and produces a Proto. Values below
// a documented floor are silently clamped up and logged at Warn; values
// above are accepted as-is.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with default sizes.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		InputBufferSize:        mailbox.MinInputBufferSize,
		OutputBufferSize:       defaultOutputBufferSize,
		StackSize:              defaultStackSize,
		HeapSize:               defaultHeapSize,
		FunctionDefinitionSize: defaultFunctionDefSize,
	}}
}

// WithGuestInputBufferSize sets the host->guest parameter mailbox size.
func (b *Builder) WithGuestInputBufferSize(n int) *Builder {
	b.cfg.InputBufferSize = n
	return b
}

// WithGuestOutputBufferSize sets the guest->host result mailbox size.
func (b *Builder) WithGuestOutputBufferSize(n int) *Builder {
	b.cfg.OutputBufferSize = n
	return b
}

// WithGuestStackSize sets the guest stack size.
func (b *Builder) WithGuestStackSize(n int) *Builder {
	b.cfg.StackSize = n
	return b
}

// WithGuestHeapSize sets the guest heap size.
func (b *Builder) WithGuestHeapSize(n int) *Builder {
	b.cfg.HeapSize = n
	return b
}

// WithFunctionDefinitionSize sets the capacity of the serialized
// host-function descriptor table passed to InitWasmRuntime.
func (b *Builder) WithFunctionDefinitionSize(n int) *Builder {
	b.cfg.FunctionDefinitionSize = n
	return b
}

// WithDebuggingEnabled records a GDB stub port for the guest. The port is
// recorded for parity and logging only: no debugger actually attaches in
// this in-process build (see SPEC_FULL.md, Non-goals).
func (b *Builder) WithDebuggingEnabled(port int) *Builder {
	b.cfg.DebugPort = port
	return b
}

// WithCrashdumpEnabled records the crashdump-on-guest-crash preference.
func (b *Builder) WithCrashdumpEnabled(enabled bool) *Builder {
	b.cfg.CrashdumpEnabled = enabled
	return b
}

// WithHostPrintFn replaces the default HostPrint implementation.
func (b *Builder) WithHostPrintFn(fn func(string) (int32, error)) *Builder {
	b.cfg.HostPrintFn = fn
	return b
}

// WithLogger sets the logger every phase transition writes to.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.cfg.Logger = l
	return b
}

// WithMetricsRegisterer sets where the lifecycle gauges/counters register.
func (b *Builder) WithMetricsRegisterer(r prometheus.Registerer) *Builder {
	b.cfg.MetricsRegisterer = r
	return b
}

// WithComponentWorld binds w's export/import resource-handle shapes once
// a module is loaded. Only meaningful for a component-mode build.
func (b *Builder) WithComponentWorld(w *component.World) *Builder {
	b.cfg.ComponentWorld = w
	return b
}

// clamp raises v to floor if below it, logging a Warn naming the field and
// the floor applied.
func clamp(log *zap.Logger, field string, v, floor int) int {
	if v >= floor {
		return v
	}
	log.Warn("sandbox config value below floor, clamped",
		zap.String("field", field), zap.Int("got", v), zap.Int("floor", floor))
	return floor
}

// Build resolves floors, constructs the guest physical memory arena and
// its mailbox, and returns a Proto. The error return covers both a
// hardware-backed build's failure to find a virtualization backend
// (NoHypervisorFound, unreachable in this in-process build) and a
// metrics registerer rejecting one of the lifecycle collectors.
func (b *Builder) Build() (*Proto, error) {
	log := b.cfg.logger()

	cfg := b.cfg
	cfg.ID = uuid.New()
	cfg.InputBufferSize = clamp(log, "guest_input_buffer_size", cfg.InputBufferSize, mailbox.MinInputBufferSize)
	cfg.StackSize = clamp(log, "guest_stack_size", cfg.StackSize, mailbox.MinStackSize)
	cfg.HeapSize = clamp(log, "guest_heap_size", cfg.HeapSize, mailbox.MinHeapSize)
	cfg.FunctionDefinitionSize = clamp(log, "function_definition_size", cfg.FunctionDefinitionSize, minFunctionDefinitionSize)
	if cfg.OutputBufferSize <= 0 {
		cfg.OutputBufferSize = defaultOutputBufferSize
	}

	return newProto(cfg)
}
