package wire

import "github.com/hlwasm/hlwasm/errors"

// ValidateVectorLengthConvention enforces the vector-length convention: a
// VecBytes parameter in a declared signature must be immediately followed by
// an Int (the pointer/length pair that a VecBytes flattens to at the
// engine-level ABI). Any deviation is a structural RegistrationError.
func ValidateVectorLengthConvention(params []Tag) error {
	for i, t := range params {
		if t != TagVecBytes {
			continue
		}
		if i+1 >= len(params) || params[i+1] != TagInt {
			return errors.Registration(
				"VecBytes parameter must be immediately followed by Int (pointer, length)", nil)
		}
	}
	return nil
}

// EngineArgCount returns how many flat engine-level arguments params
// flattens to. A VecBytes parameter's length is not implicit: the
// vector-length convention requires the explicit Int that
// ValidateVectorLengthConvention checks for, so every declared tag
// (VecBytes and its paired Int included) already corresponds to exactly
// one engine-level argument.
func EngineArgCount(params []Tag) int {
	return len(params)
}
