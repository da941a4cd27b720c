package wire

import (
	"encoding/binary"

	"github.com/hlwasm/hlwasm/errors"
)

// MaxStringLen and MaxBytesLen bound a single scalar payload so a corrupt or
// hostile length prefix can't make the decoder allocate unbounded memory.
const (
	MaxStringLen = 16 << 20 // 16 MiB
	MaxBytesLen  = 16 << 20 // 16 MiB
)

// EncodeValue appends v's schema-driven encoding to buf and returns the
// result. Layout: 1-byte tag, then a tag-specific payload.
func EncodeValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Tag))
	switch v.Tag {
	case TagVoid:
		// no payload
	case TagInt, TagUInt, TagFloat:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v.bits))
	case TagLong, TagULong, TagDouble:
		buf = binary.LittleEndian.AppendUint64(buf, v.bits)
	case TagBool:
		b := byte(0)
		if v.bits != 0 {
			b = 1
		}
		buf = append(buf, b)
	case TagString:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.str)))
		buf = append(buf, v.str...)
	case TagVecBytes:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.bytes)))
		buf = append(buf, v.bytes...)
	default:
		// Forward-compatible producers never emit an unknown tag; this
		// branch only matters to decoders.
	}
	return buf
}

// DecodeValue reads one Value from buf and returns it plus the number of
// bytes consumed. An unrecognized tag byte decodes to a Void value, since
// there is no way to know how many payload bytes an unknown tag would
// occupy.
func DecodeValue(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, errors.Marshalling("empty buffer: missing tag byte", nil)
	}
	tag := Tag(buf[0])
	rest := buf[1:]

	switch tag {
	case TagVoid:
		return Void(), 1, nil
	case TagInt, TagUInt, TagFloat:
		if len(rest) < 4 {
			return Value{}, 0, errors.Marshalling("truncated 4-byte payload", nil)
		}
		bits := uint64(binary.LittleEndian.Uint32(rest))
		return Value{Tag: tag, bits: bits}, 5, nil
	case TagLong, TagULong, TagDouble:
		if len(rest) < 8 {
			return Value{}, 0, errors.Marshalling("truncated 8-byte payload", nil)
		}
		return Value{Tag: tag, bits: binary.LittleEndian.Uint64(rest)}, 9, nil
	case TagBool:
		if len(rest) < 1 {
			return Value{}, 0, errors.Marshalling("truncated bool payload", nil)
		}
		bits := uint64(0)
		if rest[0] != 0 {
			bits = 1
		}
		return Value{Tag: tag, bits: bits}, 2, nil
	case TagString:
		n, hdr, err := readLen(rest, MaxStringLen)
		if err != nil {
			return Value{}, 0, err
		}
		if len(rest) < hdr+n {
			return Value{}, 0, errors.Marshalling("truncated string payload", nil)
		}
		s := string(rest[hdr : hdr+n])
		return Value{Tag: tag, str: s}, 1 + hdr + n, nil
	case TagVecBytes:
		n, hdr, err := readLen(rest, MaxBytesLen)
		if err != nil {
			return Value{}, 0, err
		}
		if len(rest) < hdr+n {
			return Value{}, 0, errors.Marshalling("truncated bytes payload", nil)
		}
		b := make([]byte, n)
		copy(b, rest[hdr:hdr+n])
		return Value{Tag: tag, bytes: b}, 1 + hdr + n, nil
	default:
		// Unknown tag: we cannot know its payload length, so we can only
		// report it rather than skip past it safely.
		return Void(), 1, errors.Marshalling("unrecognized tag, treating as unknown type", nil)
	}
}

func readLen(rest []byte, max int) (n, hdr int, err error) {
	if len(rest) < 4 {
		return 0, 0, errors.Marshalling("truncated length prefix", nil)
	}
	l := binary.LittleEndian.Uint32(rest)
	if l > uint32(max) {
		return 0, 0, errors.Marshalling("length prefix exceeds maximum", nil)
	}
	return int(l), 4, nil
}
