package wire

import (
	"fmt"
	"math"
)

// Tag identifies a variant of the tagged value ADT.
type Tag uint8

const (
	TagVoid Tag = iota
	TagInt
	TagUInt
	TagLong
	TagULong
	TagBool
	TagFloat
	TagDouble
	TagString
	TagVecBytes
	// tagUnknown is not produced by EncodeValue or DecodeValue: an
	// unrecognized tag byte decodes to Void together with a marshalling
	// error (see DecodeValue).
	tagUnknown Tag = 0xFF
)

func (t Tag) String() string {
	switch t {
	case TagVoid:
		return "void"
	case TagInt:
		return "i32"
	case TagUInt:
		return "u32"
	case TagLong:
		return "i64"
	case TagULong:
		return "u64"
	case TagBool:
		return "bool"
	case TagFloat:
		return "f32"
	case TagDouble:
		return "f64"
	case TagString:
		return "string"
	case TagVecBytes:
		return "vec_bytes"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// IsReference reports whether the tag is a reference type (string/bytes)
// that crosses the boundary by pointer rather than by value.
func (t Tag) IsReference() bool {
	return t == TagString || t == TagVecBytes
}

// Value is one instance of the tagged value ADT. Only the field matching
// Tag is meaningful; the zero Value is Void.
type Value struct {
	str   string
	bytes []byte
	bits  uint64
	Tag   Tag
}

func Void() Value { return Value{Tag: TagVoid} }
func Int(v int32) Value { return Value{Tag: TagInt, bits: uint64(uint32(v))} }
func UInt(v uint32) Value { return Value{Tag: TagUInt, bits: uint64(v)} }
func Long(v int64) Value { return Value{Tag: TagLong, bits: uint64(v)} }
func ULong(v uint64) Value { return Value{Tag: TagULong, bits: v} }
func Bool(v bool) Value {
	var b uint64
	if v {
		b = 1
	}
	return Value{Tag: TagBool, bits: b}
}
func Float32(v float32) Value { return Value{Tag: TagFloat, bits: uint64(math.Float32bits(v))} }
func Float64(v float64) Value { return Value{Tag: TagDouble, bits: math.Float64bits(v)} }
func String(v string) Value { return Value{Tag: TagString, str: v} }
func Bytes(v []byte) Value { return Value{Tag: TagVecBytes, bytes: v} }

func (v Value) Int() int32 { return int32(uint32(v.bits)) }
func (v Value) UInt() uint32 { return uint32(v.bits) }
func (v Value) Long() int64 { return int64(v.bits) }
func (v Value) ULong() uint64 { return v.bits }
func (v Value) Bool() bool { return v.bits != 0 }
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v Value) Float64() float64 { return math.Float64frombits(v.bits) }
func (v Value) Str() string { return v.str }
func (v Value) Bytes() []byte { return v.bytes }

// Equal compares two Values for bitwise/byte equality, used by the
// marshal round-trip tests.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case TagString:
		return v.str == o.str
	case TagVecBytes:
		return string(v.bytes) == string(o.bytes)
	default:
		return v.bits == o.bits
	}
}
