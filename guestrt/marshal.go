package guestrt

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/wire"
)

// This file is the Go mirror of the original's marshal.rs: hl_param_to_val,
// val_to_hl_result, val_to_hl_param, hl_return_to_val. Two directions cross
// the guest/engine boundary, and each allocates in guest memory only when
// data flows *into* the guest (strings/bytes the guest must own a copy of);
// reading guest-owned data back out is a plain, non-owning memory read.

func readCString(ctx context.Context, mem api.Memory, ptr uint32) (string, error) {
	var b []byte
	for {
		chunk, ok := mem.Read(ctx, ptr+uint32(len(b)), 1)
		if !ok {
			return "", errors.MemoryFault("read c string: out of bounds")
		}
		if chunk[0] == 0 {
			break
		}
		b = append(b, chunk[0])
		if len(b) > wire.MaxStringLen {
			return "", errors.MemoryFault("c string exceeds max length without a NUL terminator")
		}
	}
	return string(b), nil
}

func readBytesAt(ctx context.Context, mem api.Memory, ptr, length uint32) ([]byte, error) {
	b, ok := mem.Read(ctx, ptr, length)
	if !ok {
		return nil, errors.MemoryFault("read bytes: out of bounds")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func mallocGuest(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	malloc := mod.ExportedFunction("malloc")
	if malloc == nil {
		return 0, errors.GuestAborted("malloc function not exported", nil)
	}
	results, err := malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, errors.GuestAborted("malloc call failed", err)
	}
	return uint32(results[0]), nil
}

func freeGuest(ctx context.Context, mod api.Module, ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	free := mod.ExportedFunction("free")
	if free == nil {
		// Not every test fixture exports free; leaking a single prior
		// return buffer is harmless here.
		return nil
	}
	_, err := free.Call(ctx, uint64(ptr))
	return err
}

func writeCStringToGuest(ctx context.Context, mod api.Module, s string) (uint32, error) {
	if len(s) > wire.MaxStringLen {
		return 0, errors.Marshalling("string exceeds max length", nil)
	}
	buf := append([]byte(s), 0)
	ptr, err := mallocGuest(ctx, mod, uint32(len(buf)))
	if err != nil {
		return 0, err
	}
	if !mod.Memory().Write(ctx, ptr, buf) {
		return 0, errors.MemoryFault("write c string: out of bounds")
	}
	return ptr, nil
}

func writeBytesToGuest(ctx context.Context, mod api.Module, b []byte) (uint32, error) {
	if len(b) > wire.MaxBytesLen {
		return 0, errors.Marshalling("bytes exceed max length", nil)
	}
	ptr, err := mallocGuest(ctx, mod, uint32(len(b)))
	if err != nil {
		return 0, err
	}
	if len(b) > 0 && !mod.Memory().Write(ctx, ptr, b) {
		return 0, errors.MemoryFault("write bytes: out of bounds")
	}
	return ptr, nil
}

// decodeEngineArgs reads a host-import wrapper's engine-level stack
// (guest-owned, non-owning read) into wire values, honoring the
// vector-length convention for VecBytes. params is the declared signature,
// which already carries an explicit Int entry immediately after each
// VecBytes (see wire.ValidateVectorLengthConvention); that paired Int is
// bookkeeping for the length slot, not a second logical parameter, so the
// loop skips over it once the VecBytes it belongs to has been decoded.
func decodeEngineArgs(ctx context.Context, mod api.Module, params []wire.Tag, stack []uint64) ([]wire.Value, error) {
	mem := mod.Memory()
	values := make([]wire.Value, 0, len(params))
	i := 0
	for idx := 0; idx < len(params); idx++ {
		t := params[idx]
		switch t {
		case wire.TagInt:
			values = append(values, wire.Int(int32(api.DecodeI32(stack[i]))))
			i++
		case wire.TagUInt:
			values = append(values, wire.UInt(api.DecodeU32(stack[i])))
			i++
		case wire.TagLong:
			values = append(values, wire.Long(int64(stack[i])))
			i++
		case wire.TagULong:
			values = append(values, wire.ULong(stack[i]))
			i++
		case wire.TagBool:
			values = append(values, wire.Bool(api.DecodeU32(stack[i]) != 0))
			i++
		case wire.TagFloat:
			values = append(values, wire.Float32(api.DecodeF32(stack[i])))
			i++
		case wire.TagDouble:
			values = append(values, wire.Float64(math.Float64frombits(stack[i])))
			i++
		case wire.TagString:
			s, err := readCString(ctx, mem, api.DecodeU32(stack[i]))
			if err != nil {
				return nil, err
			}
			values = append(values, wire.String(s))
			i++
		case wire.TagVecBytes:
			ptr := api.DecodeU32(stack[i])
			length := api.DecodeU32(stack[i+1])
			b, err := readBytesAt(ctx, mem, ptr, length)
			if err != nil {
				return nil, err
			}
			values = append(values, wire.Bytes(b))
			i += 2
			idx++ // consume the paired Int tag; it has no stack slot of its own left to read
		default:
			return nil, errors.Marshalling("unsupported parameter tag", nil)
		}
	}
	return values, nil
}

// encodeEngineResult allocates a host-returned wire value into guest
// memory (when it's a reference type) and returns the raw engine-level
// stack encoding.
func encodeEngineResult(ctx context.Context, mod api.Module, v wire.Value) (uint64, error) {
	switch v.Tag {
	case wire.TagInt, wire.TagUInt:
		return uint64(api.EncodeU32(v.UInt())), nil
	case wire.TagLong, wire.TagULong:
		return v.ULong(), nil
	case wire.TagBool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case wire.TagFloat:
		return uint64(api.EncodeF32(v.Float32())), nil
	case wire.TagDouble:
		return math.Float64bits(v.Float64()), nil
	case wire.TagString:
		ptr, err := writeCStringToGuest(ctx, mod, v.Str())
		return uint64(ptr), err
	case wire.TagVecBytes:
		ptr, err := writeBytesToGuest(ctx, mod, v.Bytes())
		return uint64(ptr), err
	default:
		return 0, errors.Marshalling("unsupported result tag", nil)
	}
}

// wireParamsToEngineArgs converts a host->guest CallFrame's parameters
// (owned by the host, en route into the guest) into engine-level stack
// args ahead of guest_dispatch_function's exported-function call.
func wireParamsToEngineArgs(ctx context.Context, mod api.Module, params []wire.Value) ([]uint64, error) {
	args := make([]uint64, 0, len(params)+1)
	for _, p := range params {
		switch p.Tag {
		case wire.TagInt, wire.TagUInt, wire.TagBool:
			args = append(args, uint64(uint32(p.ULong())))
		case wire.TagLong, wire.TagULong:
			args = append(args, p.ULong())
		case wire.TagFloat:
			args = append(args, uint64(math.Float32bits(p.Float32())))
		case wire.TagDouble:
			args = append(args, math.Float64bits(p.Float64()))
		case wire.TagString:
			ptr, err := writeCStringToGuest(ctx, mod, p.Str())
			if err != nil {
				return nil, err
			}
			args = append(args, uint64(ptr))
		case wire.TagVecBytes:
			ptr, err := writeBytesToGuest(ctx, mod, p.Bytes())
			if err != nil {
				return nil, err
			}
			args = append(args, uint64(ptr), uint64(len(p.Bytes())))
		default:
			return nil, errors.Marshalling("unsupported parameter tag", nil)
		}
	}
	return args, nil
}

// engineResultToWireValue reads a guest exported function's raw result
// (owned by the guest's own allocator, per the "hyperlight owns return
// values, frees on next entry" rule) into a wire.Value, reporting the
// guest-memory pointer to free at the next dispatch if the tag is a
// reference type.
func engineResultToWireValue(ctx context.Context, mem api.Memory, expect wire.Tag, results []uint64) (wire.Value, uint32, error) {
	if expect == wire.TagVoid {
		return wire.Void(), 0, nil
	}
	r := results[0]
	switch expect {
	case wire.TagInt:
		return wire.Int(int32(api.DecodeU32(r))), 0, nil
	case wire.TagUInt:
		return wire.UInt(api.DecodeU32(r)), 0, nil
	case wire.TagLong:
		return wire.Long(int64(r)), 0, nil
	case wire.TagULong:
		return wire.ULong(r), 0, nil
	case wire.TagBool:
		return wire.Bool(r != 0), 0, nil
	case wire.TagFloat:
		return wire.Float32(api.DecodeF32(r)), 0, nil
	case wire.TagDouble:
		return wire.Float64(math.Float64frombits(r)), 0, nil
	case wire.TagString:
		ptr := api.DecodeU32(r)
		s, err := readCString(ctx, mem, ptr)
		if err != nil {
			return wire.Value{}, 0, err
		}
		return wire.String(s), ptr, nil
	case wire.TagVecBytes:
		ptr := api.DecodeU32(r)
		lenBytes, ok := mem.Read(ctx, ptr, 4)
		if !ok {
			return wire.Value{}, 0, errors.MemoryFault("read vec_bytes length prefix: out of bounds")
		}
		length := uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16 | uint32(lenBytes[3])<<24
		b, err := readBytesAt(ctx, mem, ptr+4, length)
		if err != nil {
			return wire.Value{}, 0, err
		}
		return wire.Bytes(b), ptr, nil
	default:
		return wire.Value{}, 0, errors.Marshalling("unsupported return tag", nil)
	}
}
