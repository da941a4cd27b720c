package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlwasm/hlwasm/wire"
)

// FuncSpec names one guest function's wire-level signature, since a
// CallFrame carries no type metadata a CLI could discover on its own the
// way a binary component's WIT-typed export table would let the caller
// list functions and their types directly.
type FuncSpec struct {
	Name   string
	Params []wire.Tag
	Result wire.Tag
}

// parseFuncSpec parses "-sig name:tag,tag,...:resultTag" (the result and
// its separator are optional; a bare "name" or "name:" declares a
// void-returning, no-argument function).
func parseFuncSpec(s string) (FuncSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	spec := FuncSpec{Name: strings.TrimSpace(parts[0]), Result: wire.TagVoid}
	if spec.Name == "" {
		return FuncSpec{}, fmt.Errorf("signature %q: missing function name", s)
	}

	if len(parts) >= 2 && strings.TrimSpace(parts[1]) != "" {
		for _, p := range strings.Split(parts[1], ",") {
			tag, err := parseTag(strings.TrimSpace(p))
			if err != nil {
				return FuncSpec{}, fmt.Errorf("signature %q: %w", s, err)
			}
			spec.Params = append(spec.Params, tag)
		}
	}

	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		tag, err := parseTag(strings.TrimSpace(parts[2]))
		if err != nil {
			return FuncSpec{}, fmt.Errorf("signature %q: result %w", s, err)
		}
		spec.Result = tag
	}

	return spec, nil
}

// parseTag maps the short names an operator would type on a command line
// onto the wire.Tag this build's marshalling layer actually understands.
func parseTag(s string) (wire.Tag, error) {
	switch strings.ToLower(s) {
	case "void":
		return wire.TagVoid, nil
	case "i32", "int":
		return wire.TagInt, nil
	case "u32", "uint":
		return wire.TagUInt, nil
	case "i64", "long":
		return wire.TagLong, nil
	case "u64", "ulong":
		return wire.TagULong, nil
	case "bool":
		return wire.TagBool, nil
	case "f32", "float":
		return wire.TagFloat, nil
	case "f64", "double":
		return wire.TagDouble, nil
	case "string", "str":
		return wire.TagString, nil
	case "bytes":
		return wire.TagVecBytes, nil
	default:
		return wire.TagVoid, fmt.Errorf("unknown type tag %q", s)
	}
}

// tagPlaceholder is what a textinput field shows before the operator
// types a value, naming the tag the typed argument must parse as.
func tagPlaceholder(t wire.Tag) string {
	return t.String()
}

// parseArg converts one textinput's literal string into the wire.Value a
// parameter of tag t expects. Bytes arguments are read as plain UTF-8
// text; there is no hex/base64 convention here the way a binary
// component's canonical-ABI lowering would impose one.
func parseArg(t wire.Tag, raw string) (wire.Value, error) {
	switch t {
	case wire.TagVoid:
		return wire.Void(), nil
	case wire.TagInt:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Int(int32(v)), nil
	case wire.TagUInt:
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.UInt(uint32(v)), nil
	case wire.TagLong:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Long(v), nil
	case wire.TagULong:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.ULong(v), nil
	case wire.TagBool:
		return wire.Bool(raw == "true" || raw == "1"), nil
	case wire.TagFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Float32(float32(v)), nil
	case wire.TagDouble:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return wire.Value{}, err
		}
		return wire.Float64(v), nil
	case wire.TagString:
		return wire.String(raw), nil
	case wire.TagVecBytes:
		return wire.Bytes([]byte(raw)), nil
	default:
		return wire.Value{}, fmt.Errorf("unsupported type tag %v", t)
	}
}

// formatResult renders a wire.Value back to a one-line display string.
func formatResult(v wire.Value) string {
	switch v.Tag {
	case wire.TagVoid:
		return "(void)"
	case wire.TagInt:
		return strconv.FormatInt(int64(v.Int()), 10)
	case wire.TagUInt:
		return strconv.FormatUint(uint64(v.UInt()), 10)
	case wire.TagLong:
		return strconv.FormatInt(v.Long(), 10)
	case wire.TagULong:
		return strconv.FormatUint(v.ULong(), 10)
	case wire.TagBool:
		return strconv.FormatBool(v.Bool())
	case wire.TagFloat:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case wire.TagDouble:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case wire.TagString:
		return v.Str()
	case wire.TagVecBytes:
		return fmt.Sprintf("%q", v.Bytes())
	default:
		return fmt.Sprintf("%v", v)
	}
}
