package testwasm

// ValType is a Wasm value type encoding, used for both locals and
// signatures.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Import describes a single function import. Functions are the only
// import kind the fixtures need.
type Import struct {
	Module  string
	Name    string
	Params  []ValType
	Results []ValType
}

// Func describes one locally defined function. Body holds raw instruction
// bytes; Build appends the locals declaration in front and the closing
// end opcode after, so Body should contain neither.
type Func struct {
	Params  []ValType
	Results []ValType
	Locals  []ValType
	Body    []byte
	Export  string
}

// Memory describes the module's single linear memory, in page units (64KiB).
type Memory struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Export string
}

// Data is one active data segment loaded at Offset in linear memory.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module is the set of pieces Build assembles into a binary. Funcs are
// indexed after all Imports, matching Wasm's single function index space.
type Module struct {
	Imports []Import
	Funcs   []Func
	Memory  *Memory
	Data    []Data
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = append(out, EncodeULEB128(uint32(len(body)))...)
	return append(out, body...)
}

func appendFuncType(sec []byte, params, results []ValType) []byte {
	sec = append(sec, 0x60)
	sec = append(sec, EncodeULEB128(uint32(len(params)))...)
	for _, p := range params {
		sec = append(sec, byte(p))
	}
	sec = append(sec, EncodeULEB128(uint32(len(results)))...)
	for _, r := range results {
		sec = append(sec, byte(r))
	}
	return sec
}

func encodeLocals(locals []ValType) []byte {
	if len(locals) == 0 {
		return EncodeULEB128(0)
	}
	type run struct {
		typ   ValType
		count uint32
	}
	var runs []run
	for _, t := range locals {
		if n := len(runs); n > 0 && runs[n-1].typ == t {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{typ: t, count: 1})
	}
	buf := EncodeULEB128(uint32(len(runs)))
	for _, r := range runs {
		buf = append(buf, EncodeULEB128(r.count)...)
		buf = append(buf, byte(r.typ))
	}
	return buf
}

// Build serializes the module into a complete binary: magic, version, and
// type/import/function/memory/export/code/data sections. The type section
// is always emitted; each of the others is present only if it has content.
func (m Module) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var typeSec []byte
	typeSec = append(typeSec, EncodeULEB128(uint32(len(m.Imports)+len(m.Funcs)))...)
	for _, im := range m.Imports {
		typeSec = appendFuncType(typeSec, im.Params, im.Results)
	}
	for _, f := range m.Funcs {
		typeSec = appendFuncType(typeSec, f.Params, f.Results)
	}
	out = appendSection(out, 0x01, typeSec)

	if len(m.Imports) > 0 {
		var sec []byte
		sec = append(sec, EncodeULEB128(uint32(len(m.Imports)))...)
		for i, im := range m.Imports {
			sec = append(sec, EncodeULEB128(uint32(len(im.Module)))...)
			sec = append(sec, im.Module...)
			sec = append(sec, EncodeULEB128(uint32(len(im.Name)))...)
			sec = append(sec, im.Name...)
			sec = append(sec, 0x00)
			sec = append(sec, EncodeULEB128(uint32(i))...)
		}
		out = appendSection(out, 0x02, sec)
	}

	if len(m.Funcs) > 0 {
		var sec []byte
		sec = append(sec, EncodeULEB128(uint32(len(m.Funcs)))...)
		for i := range m.Funcs {
			sec = append(sec, EncodeULEB128(uint32(len(m.Imports)+i))...)
		}
		out = appendSection(out, 0x03, sec)
	}

	if m.Memory != nil {
		var sec []byte
		sec = append(sec, EncodeULEB128(1)...)
		if m.Memory.HasMax {
			sec = append(sec, 0x01)
			sec = append(sec, EncodeULEB128(m.Memory.Min)...)
			sec = append(sec, EncodeULEB128(m.Memory.Max)...)
		} else {
			sec = append(sec, 0x00)
			sec = append(sec, EncodeULEB128(m.Memory.Min)...)
		}
		out = appendSection(out, 0x05, sec)
	}

	var exports []exportEntry
	for i, f := range m.Funcs {
		if f.Export != "" {
			exports = append(exports, exportEntry{f.Export, 0x00, uint32(len(m.Imports) + i)})
		}
	}
	if m.Memory != nil && m.Memory.Export != "" {
		exports = append(exports, exportEntry{m.Memory.Export, 0x02, 0})
	}
	if len(exports) > 0 {
		var sec []byte
		sec = append(sec, EncodeULEB128(uint32(len(exports)))...)
		for _, e := range exports {
			sec = append(sec, EncodeULEB128(uint32(len(e.name)))...)
			sec = append(sec, e.name...)
			sec = append(sec, e.kind)
			sec = append(sec, EncodeULEB128(e.idx)...)
		}
		out = appendSection(out, 0x07, sec)
	}

	if len(m.Funcs) > 0 {
		var sec []byte
		sec = append(sec, EncodeULEB128(uint32(len(m.Funcs)))...)
		for _, f := range m.Funcs {
			body := encodeLocals(f.Locals)
			body = append(body, f.Body...)
			body = append(body, 0x0b)
			sec = append(sec, EncodeULEB128(uint32(len(body)))...)
			sec = append(sec, body...)
		}
		out = appendSection(out, 0x0a, sec)
	}

	if len(m.Data) > 0 {
		var sec []byte
		sec = append(sec, EncodeULEB128(uint32(len(m.Data)))...)
		for _, d := range m.Data {
			sec = append(sec, 0x00, 0x41)
			sec = append(sec, EncodeSLEB128(int32(d.Offset))...)
			sec = append(sec, 0x0b)
			sec = append(sec, EncodeULEB128(uint32(len(d.Bytes)))...)
			sec = append(sec, d.Bytes...)
		}
		out = appendSection(out, 0x0b, sec)
	}

	return out
}
