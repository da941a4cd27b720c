// Package errors provides the structured error type used across hlwasm.
//
// Errors are categorized by Phase (where, in the sandbox lifecycle, the
// error occurred) and Kind (what went wrong). Use the Builder for
// structured construction:
//
//	err := errors.New(errors.PhaseLoaded, errors.KindPoisonedSandbox).
//		Detail("call_guest_function on a poisoned sandbox").
//		Build()
//
// or one of the convenience constructors (errors.Poisoned, errors.Load, ...)
// for the common cases named explicitly below.
package errors
