// Package testwasm hand-assembles minimal Wasm binaries for sandbox tests,
// the way linker/internal/wasm's SynthModuleBuilder assembles synthetic
// modules for virtual instances: direct section framing, no text-format
// parser or external toolchain involved.
package testwasm

// EncodeULEB128 encodes an unsigned 32-bit value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

// EncodeSLEB128 encodes a signed 32-bit value in LEB128 format.
func EncodeSLEB128(v int32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			result = append(result, b)
			break
		}
		result = append(result, b|0x80)
	}
	return result
}
