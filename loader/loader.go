package loader

import (
	"context"
	"os"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/guestrt"
)

// FixedGuestVA is the guest virtual address a mapped artifact is
// conceptually loaded at. See the package doc for why this module has no
// literal host-visible mapping at this address.
const FixedGuestVA = 0x1_0000_0000

// Method reports which of the three load paths a Load call actually took.
type Method int

const (
	// MethodMapped means the artifact was mapped copy-on-write and handed
	// to the runtime without a bulk copy.
	MethodMapped Method = iota
	// MethodCopied means the bytes were read into host memory and handed
	// to the runtime as an owned copy.
	MethodCopied
	// MethodCallerMapping means the caller's own byte slice was used
	// directly, per LoadByMapping's unsafe contract.
	MethodCallerMapping
)

func (m Method) String() string {
	switch m {
	case MethodMapped:
		return "mapped"
	case MethodCopied:
		return "copied"
	case MethodCallerMapping:
		return "caller_mapping"
	default:
		return "unknown"
	}
}

// Result describes how an artifact was loaded, for logging and metrics.
type Result struct {
	Method Method
	VA     uint64
	Size   int
}

// Close releases any mapping the load path established. Copy paths return
// a no-op closer. Callers should always defer Close on a successful Load.
type Closer interface {
	Close() error
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Load loads the Wasm artifact at path into rt. It attempts a
// copy-on-write mapping first; if the platform or file system doesn't
// support it, or the mapping attempt otherwise fails, it falls back to
// reading the file into host memory and copying it across.
func Load(ctx context.Context, rt *guestrt.Runtime, path string) (Result, Closer, error) {
	if mapped, closer, ok := tryMap(path); ok {
		if err := rt.LoadWasmModulePhys(ctx, mapped); err != nil {
			closer.Close()
			return Result{}, nil, err
		}
		return Result{Method: MethodMapped, VA: FixedGuestVA, Size: len(mapped)}, closer, nil
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Result{}, nil, errors.Load("read module file: "+err.Error(), err)
	}
	if err := rt.LoadWasmModule(ctx, bytes); err != nil {
		return Result{}, nil, err
	}
	return Result{Method: MethodCopied, Size: len(bytes)}, noopCloser{}, nil
}

// LoadFromBuffer always takes the copy path: bytes are handed to the
// runtime as-is, which treats them as its own owned copy.
func LoadFromBuffer(ctx context.Context, rt *guestrt.Runtime, bytes []byte) (Result, error) {
	if err := rt.LoadWasmModule(ctx, bytes); err != nil {
		return Result{}, err
	}
	return Result{Method: MethodCopied, Size: len(bytes)}, nil
}

// LoadByMapping maps base directly into the runtime without copying it.
// This is unsafe in the same sense the name implies: base must remain
// alive and unmodified by the caller for as long as the resulting Loaded
// sandbox exists, since the runtime reads it as read-execute-only guest
// memory rather than owning a private copy. On failure to use base
// directly (not expected to happen in this in-process implementation, but
// kept for parity with a hardware-virtualized backend that can reject a
// mapping request) callers should retry via LoadFromBuffer.
func LoadByMapping(ctx context.Context, rt *guestrt.Runtime, base []byte) (Result, error) {
	if err := rt.LoadWasmModulePhys(ctx, base); err != nil {
		return Result{}, err
	}
	return Result{Method: MethodCallerMapping, VA: FixedGuestVA, Size: len(base)}, nil
}
