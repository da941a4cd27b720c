package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "full error",
			err:      New(PhaseLoaded, KindMemoryFault).Detail("write at 0x%x out of window", 0xdead).Build(),
			contains: []string{"[loaded]", "memory_fault", "0xdead"},
		},
		{
			name:     "minimal error",
			err:      New(PhaseBuild, KindNoHypervisorFound).Build(),
			contains: []string{"[build]", "no_hypervisor_found"},
		},
		{
			name:     "with cause",
			err:      New(PhaseIO, KindIOError).Detail("read module").Cause(stderrors.New("permission denied")).Build(),
			contains: []string{"[io]", "io_error", "read module", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Error() = %q, want substring %q", got, want)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := New(PhaseRuntime, KindInitFailed).Cause(cause).Build()

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestError_Is(t *testing.T) {
	a := Poisoned()
	b := New(PhaseLoaded, KindPoisonedSandbox).Build()
	if !stderrors.Is(a, b) {
		t.Error("two poisoned errors with matching phase/kind should compare equal via Is")
	}

	c := New(PhaseRuntime, KindLoadFailed).Build()
	if stderrors.Is(a, c) {
		t.Error("errors with different kinds should not compare equal")
	}
}

func TestIsKind(t *testing.T) {
	wrapped := Load("load echo.wasm", Poisoned())
	if !IsKind(wrapped, KindPoisonedSandbox) {
		t.Error("IsKind should walk the Cause chain")
	}
	if IsKind(wrapped, KindIOError) {
		t.Error("IsKind should not match an absent kind")
	}
}
