package hostfn

import (
	"context"
	"reflect"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

// callWithTagged invokes fn with params converted to fn's declared Go
// argument types, per sig.logicalParamTypes (one wire.Value per Go
// parameter; a VecBytes value maps to a single []byte argument, with no
// separate length argument since the guest marshaller already collapsed
// the pointer/length pair into one value before this call).
func callWithTagged(ctx context.Context, fn reflect.Value, sig signature, params []wire.Value) (wire.Value, error) {
	if len(params) != len(sig.logicalParamTypes) {
		return wire.Value{}, errors.Marshalling("host function call arity mismatch", nil)
	}

	args := make([]reflect.Value, 0, len(params)+1)
	if sig.hasCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	for i, v := range params {
		if v.Tag != sig.logicalParamTypes[i] {
			return wire.Value{}, errors.Marshalling("host function call parameter type mismatch", nil)
		}
		args = append(args, goValueForTagged(v))
	}

	out := fn.Call(args)

	var callErr error
	if sig.hasErr {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			callErr = last.Interface().(error)
		}
	}
	if callErr != nil {
		return wire.Value{}, callErr
	}

	if sig.returnType == wire.TagVoid {
		return wire.Void(), nil
	}
	return taggedValueForGo(sig.returnType, out[0]), nil
}

func goValueForTagged(v wire.Value) reflect.Value {
	switch v.Tag {
	case wire.TagInt:
		return reflect.ValueOf(v.Int())
	case wire.TagUInt:
		return reflect.ValueOf(v.UInt())
	case wire.TagLong:
		return reflect.ValueOf(v.Long())
	case wire.TagULong:
		return reflect.ValueOf(v.ULong())
	case wire.TagBool:
		return reflect.ValueOf(v.Bool())
	case wire.TagFloat:
		return reflect.ValueOf(v.Float32())
	case wire.TagDouble:
		return reflect.ValueOf(v.Float64())
	case wire.TagString:
		return reflect.ValueOf(v.Str())
	case wire.TagVecBytes:
		return reflect.ValueOf(v.Bytes())
	default:
		return reflect.ValueOf(nil)
	}
}

func taggedValueForGo(tag wire.Tag, rv reflect.Value) wire.Value {
	switch tag {
	case wire.TagInt:
		return wire.Int(int32(rv.Int()))
	case wire.TagUInt:
		return wire.UInt(uint32(rv.Uint()))
	case wire.TagLong:
		return wire.Long(rv.Int())
	case wire.TagULong:
		return wire.ULong(rv.Uint())
	case wire.TagBool:
		return wire.Bool(rv.Bool())
	case wire.TagFloat:
		return wire.Float32(float32(rv.Float()))
	case wire.TagDouble:
		return wire.Float64(rv.Float())
	case wire.TagString:
		return wire.String(rv.String())
	case wire.TagVecBytes:
		return wire.Bytes(rv.Bytes())
	default:
		return wire.Void()
	}
}
