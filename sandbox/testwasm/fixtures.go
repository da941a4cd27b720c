package testwasm

// Opcodes used below, named for readability at each call site.
const (
	opLocalGet     = 0x20
	opLocalSet     = 0x21
	opI32Const     = 0x41
	opF64Mul       = 0xA2
	opF64Nearest   = 0x9E
	opI32TruncF64S = 0xAA
	opI32Add       = 0x6A
	opI32GeS       = 0x4E
	opBlock        = 0x02
	opLoop         = 0x03
	opBr           = 0x0C
	opBrIf         = 0x0D
	opCall         = 0x10
	opEmptyBlock   = 0x40
)

// Echo returns a module exporting "echo", which returns its single i32
// argument unchanged. Used to exercise marshalling of a pointer round trip
// without touching guest memory.
func Echo() []byte {
	return Module{
		Funcs: []Func{{
			Params:  []ValType{I32},
			Results: []ValType{I32},
			Export:  "echo",
			Body:    []byte{opLocalGet, 0x00},
		}},
	}.Build()
}

// CallHostFunction returns a module exporting "call_host_function", which
// imports hostModule.hostFunc (i32)->i32, calls it with argument, and
// returns its result.
func CallHostFunction(hostModule, hostFunc string, argument int32) []byte {
	body := []byte{opI32Const}
	body = append(body, EncodeSLEB128(argument)...)
	body = append(body, opCall, 0x00)

	return Module{
		Imports: []Import{{
			Module: hostModule, Name: hostFunc,
			Params: []ValType{I32}, Results: []ValType{I32},
		}},
		Funcs: []Func{{
			Params:  []ValType{},
			Results: []ValType{I32},
			Export:  "call_host_function",
			Body:    body,
		}},
	}.Build()
}

// RoundToNearestInt returns a module exporting "round_to_nearest_int",
// which computes round(a*b) and truncates to i32: f64.mul, f64.nearest,
// i32.trunc_f64_s.
func RoundToNearestInt() []byte {
	return Module{
		Funcs: []Func{{
			Params:  []ValType{F64, F64},
			Results: []ValType{I32},
			Export:  "round_to_nearest_int",
			Body: []byte{
				opLocalGet, 0x00,
				opLocalGet, 0x01,
				opF64Mul,
				opF64Nearest,
				opI32TruncF64S,
			},
		}},
	}.Build()
}

// KeepCPUBusy returns a module exporting "keep_cpu_busy", an unconditional
// loop with no exit condition: the only way out is the host canceling the
// call's context.
func KeepCPUBusy() []byte {
	return Module{
		Funcs: []Func{{
			Params:  []ValType{},
			Results: []ValType{},
			Export:  "keep_cpu_busy",
			Body: []byte{
				opLoop, opEmptyBlock,
				opBr, 0x00,
				0x0b, // end loop
			},
		}},
	}.Build()
}

// CalcFib returns a module exporting "calc_fib", an iterative Fibonacci
// computation: locals a, b, i, t starting from a=0, b=1, i=0, looping while
// i<n and returning a.
func CalcFib() []byte {
	const (
		n = 0
		a = 1
		b = 2
		i = 3
		t = 4
	)
	body := []byte{
		opI32Const, 0x00, opLocalSet, a,
		opI32Const, 0x01, opLocalSet, b,
		opI32Const, 0x00, opLocalSet, i,

		opBlock, opEmptyBlock,
		opLoop, opEmptyBlock,
		opLocalGet, i,
		opLocalGet, n,
		opI32GeS,
		opBrIf, 0x01,

		opLocalGet, a,
		opLocalGet, b,
		opI32Add,
		opLocalSet, t,

		opLocalGet, b,
		opLocalSet, a,

		opLocalGet, t,
		opLocalSet, b,

		opLocalGet, i,
		opI32Const, 0x01,
		opI32Add,
		opLocalSet, i,

		opBr, 0x00,
		0x0b, // end loop
		0x0b, // end block
		opLocalGet, a,
	}

	return Module{
		Funcs: []Func{{
			Params:  []ValType{I32},
			Results: []ValType{I32},
			Locals:  []ValType{I32, I32, I32, I32},
			Export:  "calc_fib",
			Body:    body,
		}},
	}.Build()
}

// HelloWorld returns a module exporting "hello_world", which ignores its
// string-pointer argument and always returns 0.
func HelloWorld() []byte {
	return Module{
		Funcs: []Func{{
			Params:  []ValType{I32},
			Results: []ValType{I32},
			Export:  "hello_world",
			Body:    []byte{opI32Const, 0x00},
		}},
	}.Build()
}

// PassBufferAndLengthToHost returns a module with a string constant stored
// in a data segment at dataOffset, exporting "pass_buffer_and_length_to_host",
// which calls hostModule.hostFunc(ptr, length, secondArg)->i32 with the
// segment's address and length and returns its result. length is
// len(message); secondArg is passed as given, so a call site can pass the
// same number for both.
func PassBufferAndLengthToHost(hostModule, hostFunc string, message string, dataOffset uint32, secondArg int32) []byte {
	body := []byte{opI32Const}
	body = append(body, EncodeSLEB128(int32(dataOffset))...)
	body = append(body, opI32Const)
	body = append(body, EncodeSLEB128(int32(len(message)))...)
	body = append(body, opI32Const)
	body = append(body, EncodeSLEB128(secondArg)...)
	body = append(body, opCall, 0x00)

	return Module{
		Imports: []Import{{
			Module: hostModule, Name: hostFunc,
			Params: []ValType{I32, I32, I32}, Results: []ValType{I32},
		}},
		Memory: &Memory{Min: 1, Export: "memory"},
		Data:   []Data{{Offset: dataOffset, Bytes: []byte(message)}},
		Funcs: []Func{{
			Params:  []ValType{},
			Results: []ValType{I32},
			Export:  "pass_buffer_and_length_to_host",
			Body:    body,
		}},
	}.Build()
}
