package wire

import (
	"encoding/binary"

	"github.com/hlwasm/hlwasm/errors"
)

// CallFrame is the host->guest parameter frame: function name, positional
// parameters, and the return type the caller expects back.
type CallFrame struct {
	FunctionName string
	Parameters   []Value
	ReturnType   Tag
}

// Encode writes the call frame into a fresh byte slice.
func (f CallFrame) Encode() []byte {
	buf := make([]byte, 0, 64+len(f.Parameters)*9)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.FunctionName)))
	buf = append(buf, f.FunctionName...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.Parameters)))
	for _, p := range f.Parameters {
		buf = EncodeValue(buf, p)
	}
	buf = append(buf, byte(f.ReturnType))
	return buf
}

// DecodeCallFrame parses a CallFrame previously produced by Encode.
func DecodeCallFrame(buf []byte) (CallFrame, error) {
	var f CallFrame
	if len(buf) < 4 {
		return f, errors.Marshalling("call frame: truncated name length", nil)
	}
	nameLen := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	if len(buf) < nameLen {
		return f, errors.Marshalling("call frame: truncated name", nil)
	}
	f.FunctionName = string(buf[:nameLen])
	buf = buf[nameLen:]

	if len(buf) < 4 {
		return f, errors.Marshalling("call frame: truncated parameter count", nil)
	}
	count := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	f.Parameters = make([]Value, 0, count)
	for i := 0; i < count; i++ {
		v, n, err := DecodeValue(buf)
		if err != nil {
			return f, errors.Marshalling("call frame: decode parameter", err)
		}
		f.Parameters = append(f.Parameters, v)
		buf = buf[n:]
	}

	if len(buf) < 1 {
		return f, errors.Marshalling("call frame: truncated return type", nil)
	}
	f.ReturnType = Tag(buf[0])
	return f, nil
}

// ReturnFrame is the guest->host result frame. Ok==false carries the
// failure as plain text: dispatch-level errors (e.g. "function not found")
// as well as guest traps and cancellations, which the sandbox tells apart
// by their message.
type ReturnFrame struct {
	ErrMessage string
	Value      Value
	Ok         bool
}

func (f ReturnFrame) Encode() []byte {
	buf := make([]byte, 0, 32)
	if f.Ok {
		buf = append(buf, 1)
		buf = EncodeValue(buf, f.Value)
		return buf
	}
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.ErrMessage)))
	buf = append(buf, f.ErrMessage...)
	return buf
}

func DecodeReturnFrame(buf []byte) (ReturnFrame, error) {
	var f ReturnFrame
	if len(buf) < 1 {
		return f, errors.Marshalling("return frame: empty", nil)
	}
	ok := buf[0] != 0
	buf = buf[1:]
	if ok {
		v, _, err := DecodeValue(buf)
		if err != nil {
			return f, errors.Marshalling("return frame: decode value", err)
		}
		return ReturnFrame{Ok: true, Value: v}, nil
	}
	if len(buf) < 4 {
		return f, errors.Marshalling("return frame: truncated error length", nil)
	}
	n := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	if len(buf) < n {
		return f, errors.Marshalling("return frame: truncated error message", nil)
	}
	return ReturnFrame{Ok: false, ErrMessage: string(buf[:n])}, nil
}

// FunctionDescriptor is one entry of the host-function registry blob sent
// to InitWasmRuntime.
type FunctionDescriptor struct {
	Name           string
	ParameterTypes []Tag
	ReturnType     Tag
}

// EncodeRegistry serializes a set of descriptors into the bounded-size blob
// passed as InitWasmRuntime's argument.
func EncodeRegistry(descs []FunctionDescriptor) []byte {
	buf := make([]byte, 0, 64*len(descs))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(descs)))
	for _, d := range descs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(d.Name)))
		buf = append(buf, d.Name...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(d.ParameterTypes)))
		for _, t := range d.ParameterTypes {
			buf = append(buf, byte(t))
		}
		buf = append(buf, byte(d.ReturnType))
	}
	return buf
}

// DecodeRegistry parses a blob previously produced by EncodeRegistry.
func DecodeRegistry(buf []byte) ([]FunctionDescriptor, error) {
	if len(buf) < 4 {
		return nil, errors.Marshalling("registry blob: truncated count", nil)
	}
	count := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	out := make([]FunctionDescriptor, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < 4 {
			return nil, errors.Marshalling("registry blob: truncated name length", nil)
		}
		nameLen := int(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		if len(buf) < nameLen {
			return nil, errors.Marshalling("registry blob: truncated name", nil)
		}
		name := string(buf[:nameLen])
		buf = buf[nameLen:]

		if len(buf) < 4 {
			return nil, errors.Marshalling("registry blob: truncated param count", nil)
		}
		paramCount := int(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		if len(buf) < paramCount+1 {
			return nil, errors.Marshalling("registry blob: truncated params/return", nil)
		}
		params := make([]Tag, paramCount)
		for j := 0; j < paramCount; j++ {
			params[j] = Tag(buf[j])
		}
		buf = buf[paramCount:]
		ret := Tag(buf[0])
		buf = buf[1:]

		out = append(out, FunctionDescriptor{Name: name, ParameterTypes: params, ReturnType: ret})
	}
	return out, nil
}
