package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the sandbox lifecycle the error occurred.
type Phase string

const (
	PhaseBuild   Phase = "build"
	PhaseProto   Phase = "proto"
	PhaseRuntime Phase = "runtime"
	PhaseLoaded  Phase = "loaded"
	PhaseMarshal Phase = "marshal"
	PhaseLoader  Phase = "loader"
	PhaseGuest   Phase = "guest"
	PhaseIO      Phase = "io"
)

// Kind categorizes the error by the condition that produced it.
type Kind string

const (
	KindNoHypervisorFound Kind = "no_hypervisor_found"
	KindConfigOutOfRange  Kind = "config_out_of_range"
	KindRegistrationError Kind = "registration_error"
	KindInitFailed        Kind = "init_failed"
	KindLoadFailed        Kind = "load_failed"
	KindExecutionCanceled Kind = "execution_canceled_by_host"
	KindGuestAborted      Kind = "guest_aborted"
	KindMemoryFault       Kind = "memory_fault"
	KindStackExhausted    Kind = "stack_exhausted"
	KindPoisonedSandbox   Kind = "poisoned_sandbox"
	KindMarshallingError  Kind = "marshalling_error"
	KindIOError           Kind = "io_error"
)

// Error is the structured error type used throughout hlwasm.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error so errors.Is/As work through Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind and, unless
// target's Phase is empty, the same Phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Phase == "" || e.Phase == t.Phase)
}

// IsKind reports whether err is an *Error of the given Kind, regardless of
// phase. Poisoning and cancellation checks use this.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			if e.Kind == kind {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New starts a Builder for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message, printf-style.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed *Error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Convenience constructors for the named error kinds below.

// NoHypervisorFound is returned by Builder.Build when no virtualization
// backend is available.
func NoHypervisorFound(detail string) *Error {
	return New(PhaseBuild, KindNoHypervisorFound).Detail(detail).Build()
}

// ConfigOutOfRange is produced (non-fatally; the build proceeds) when a
// configuration value is clamped to its floor.
func ConfigOutOfRange(field string, got, floor uint64) *Error {
	return New(PhaseBuild, KindConfigOutOfRange).
		Detail("%s=%d below floor %d, clamped", field, got, floor).Build()
}

// Registration wraps a host function registration failure.
func Registration(detail string, cause error) *Error {
	return New(PhaseProto, KindRegistrationError).Detail(detail).Cause(cause).Build()
}

// Init wraps a Proto -> Runtime transition failure.
func Init(detail string, cause error) *Error {
	return New(PhaseProto, KindInitFailed).Detail(detail).Cause(cause).Build()
}

// Load wraps a Runtime -> Loaded transition failure (module/component load).
func Load(detail string, cause error) *Error {
	return New(PhaseRuntime, KindLoadFailed).Detail(detail).Cause(cause).Build()
}

// ExecutionCanceled marks an in-flight call_guest_function as killed by an
// InterruptHandle.
func ExecutionCanceled(detail string) *Error {
	return New(PhaseLoaded, KindExecutionCanceled).Detail(detail).Build()
}

// GuestAborted marks a guest panic/trap that was not a clean return.
func GuestAborted(detail string, cause error) *Error {
	return New(PhaseLoaded, KindGuestAborted).Detail(detail).Cause(cause).Build()
}

// MemoryFault marks an out-of-window guest memory access.
func MemoryFault(detail string) *Error {
	return New(PhaseLoaded, KindMemoryFault).Detail(detail).Build()
}

// StackExhausted marks guest stack/heap exhaustion.
func StackExhausted(detail string) *Error {
	return New(PhaseLoaded, KindStackExhausted).Detail(detail).Build()
}

// Poisoned is returned by any Loaded operation while poisoned=true.
func Poisoned() *Error {
	return New(PhaseLoaded, KindPoisonedSandbox).Detail("sandbox is poisoned; restore or unload first").Build()
}

// Marshalling wraps a wire encode/decode failure. The sandbox stays
// healthy; the call simply fails.
func Marshalling(detail string, cause error) *Error {
	return New(PhaseMarshal, KindMarshallingError).Detail(detail).Cause(cause).Build()
}

// IO wraps an I/O failure (file read for module load, mmap, etc).
func IO(detail string, cause error) *Error {
	return New(PhaseIO, KindIOError).Detail(detail).Cause(cause).Build()
}
