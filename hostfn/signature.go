package hostfn

import (
	"context"
	"reflect"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// signature is what describeSignature derives from a registered closure's
// Go func type: which wire tags its wasm-visible parameters and return
// carry, plus whether the closure additionally wants a leading
// context.Context and/or returns a trailing error.
//
// logicalParamTypes has one entry per actual Go parameter (a []byte
// parameter is one TagVecBytes entry, matching one wire.Value produced by
// the marshaller at call time). declaredParamTypes is the descriptor sent
// to the guest: it has an extra synthetic TagInt immediately after every
// TagVecBytes, per the vector-length convention, even though the Go
// closure itself takes no separate length argument.
type signature struct {
	logicalParamTypes  []wire.Tag
	declaredParamTypes []wire.Tag
	returnType         wire.Tag
	hasCtx             bool
	hasErr             bool
}

// describeSignature inspects fn's Go type and derives its wire signature.
// fn must be a func. A leading context.Context parameter and a trailing
// error result are recognized and excluded from the wire-visible
// parameter/return list; every other parameter and the (at most one)
// remaining result must be one of the representable scalar or reference
// types. Anything else is a RegistrationError.
func describeSignature(fn reflect.Value) (signature, error) {
	if fn.Kind() != reflect.Func {
		return signature{}, errors.Registration("host function must be a func", nil)
	}
	t := fn.Type()
	if t.IsVariadic() {
		return signature{}, errors.Registration("host function must not be variadic", nil)
	}

	var sig signature

	nIn := t.NumIn()
	start := 0
	if nIn > 0 && t.In(0) == ctxType {
		sig.hasCtx = true
		start = 1
	}
	for i := start; i < nIn; i++ {
		tag, ok := tagForGoType(t.In(i))
		if !ok {
			return signature{}, errors.Registration(
				"host function parameter "+t.In(i).String()+" is not representable in the wire ADT", nil)
		}
		sig.logicalParamTypes = append(sig.logicalParamTypes, tag)
		sig.declaredParamTypes = append(sig.declaredParamTypes, tag)
		if tag == wire.TagVecBytes {
			sig.declaredParamTypes = append(sig.declaredParamTypes, wire.TagInt)
		}
	}

	nOut := t.NumOut()
	end := nOut
	if nOut > 0 && t.Out(nOut-1) == errType {
		sig.hasErr = true
		end = nOut - 1
	}
	switch end {
	case 0:
		sig.returnType = wire.TagVoid
	case 1:
		tag, ok := tagForGoType(t.Out(0))
		if !ok {
			return signature{}, errors.Registration(
				"host function return type "+t.Out(0).String()+" is not representable in the wire ADT", nil)
		}
		sig.returnType = tag
	default:
		return signature{}, errors.Registration(
			"host function must return at most one value besides a trailing error", nil)
	}

	if err := wire.ValidateVectorLengthConvention(sig.declaredParamTypes); err != nil {
		return signature{}, err
	}
	return sig, nil
}

var bytesType = reflect.TypeOf([]byte(nil))

func tagForGoType(t reflect.Type) (wire.Tag, bool) {
	switch {
	case t == bytesType:
		return wire.TagVecBytes, true
	case t.Kind() == reflect.String:
		return wire.TagString, true
	}
	switch t.Kind() {
	case reflect.Int32:
		return wire.TagInt, true
	case reflect.Uint32:
		return wire.TagUInt, true
	case reflect.Int64:
		return wire.TagLong, true
	case reflect.Uint64:
		return wire.TagULong, true
	case reflect.Bool:
		return wire.TagBool, true
	case reflect.Float32:
		return wire.TagFloat, true
	case reflect.Float64:
		return wire.TagDouble, true
	default:
		return 0, false
	}
}
