package wire

import "testing"

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		Void(),
		Int(-7),
		UInt(42),
		Long(-1234567890123),
		ULong(9876543210),
		Bool(true),
		Bool(false),
		Float32(3.5),
		Float64(-2.25),
		String("Hello World!"),
		String(""),
		Bytes([]byte("Hello World!")),
		Bytes(nil),
	}

	for _, v := range cases {
		buf := EncodeValue(nil, v)
		got, n, err := DecodeValue(buf)
		if err != nil {
			t.Fatalf("DecodeValue(%v): %v", v, err)
		}
		if n != len(buf) {
			t.Errorf("DecodeValue consumed %d bytes, want %d", n, len(buf))
		}
		if !got.Equal(v) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, v)
		}
	}
}

func TestDecodeValue_UnknownTagIsVoid(t *testing.T) {
	buf := []byte{0xAB}
	v, n, err := DecodeValue(buf)
	if err == nil {
		t.Fatal("expected an error surfacing the unknown tag")
	}
	if v.Tag != TagVoid || n != 1 {
		t.Errorf("unknown tag should decode to Void/1, got %+v/%d", v, n)
	}
}

func TestDecodeValue_Truncated(t *testing.T) {
	buf := []byte{byte(TagLong), 1, 2, 3}
	if _, _, err := DecodeValue(buf); err == nil {
		t.Fatal("expected truncated payload to error")
	}
}

func TestCallFrameRoundTrip(t *testing.T) {
	f := CallFrame{
		FunctionName: "RoundToNearestInt",
		Parameters:   []Value{Float64(1.331), Float64(24.0)},
		ReturnType:   TagInt,
	}
	buf := f.Encode()
	got, err := DecodeCallFrame(buf)
	if err != nil {
		t.Fatalf("DecodeCallFrame: %v", err)
	}
	if got.FunctionName != f.FunctionName || got.ReturnType != f.ReturnType || len(got.Parameters) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Parameters[0].Equal(f.Parameters[0]) || !got.Parameters[1].Equal(f.Parameters[1]) {
		t.Fatalf("parameter mismatch: %+v", got.Parameters)
	}
}

func TestReturnFrameRoundTrip(t *testing.T) {
	ok := ReturnFrame{Ok: true, Value: String("Hello World!")}
	buf := ok.Encode()
	got, err := DecodeReturnFrame(buf)
	if err != nil {
		t.Fatalf("DecodeReturnFrame: %v", err)
	}
	if !got.Ok || !got.Value.Equal(ok.Value) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	bad := ReturnFrame{Ok: false, ErrMessage: "function not found"}
	buf = bad.Encode()
	got, err = DecodeReturnFrame(buf)
	if err != nil {
		t.Fatalf("DecodeReturnFrame: %v", err)
	}
	if got.Ok || got.ErrMessage != bad.ErrMessage {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestRegistryBlobRoundTrip(t *testing.T) {
	descs := []FunctionDescriptor{
		{Name: "HostPrint", ParameterTypes: []Tag{TagString}, ReturnType: TagInt},
		{Name: "TestHostFunc", ParameterTypes: []Tag{TagInt}, ReturnType: TagInt},
		{Name: "HostFuncWithBufferAndLength", ParameterTypes: []Tag{TagVecBytes, TagInt}, ReturnType: TagVoid},
	}
	buf := EncodeRegistry(descs)
	got, err := DecodeRegistry(buf)
	if err != nil {
		t.Fatalf("DecodeRegistry: %v", err)
	}
	if len(got) != len(descs) {
		t.Fatalf("got %d descriptors, want %d", len(got), len(descs))
	}
	for i := range descs {
		if got[i].Name != descs[i].Name || got[i].ReturnType != descs[i].ReturnType {
			t.Errorf("descriptor %d mismatch: %+v", i, got[i])
		}
	}
}

func TestValidateVectorLengthConvention(t *testing.T) {
	if err := ValidateVectorLengthConvention([]Tag{TagVecBytes, TagInt}); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := ValidateVectorLengthConvention([]Tag{TagVecBytes, TagString}); err == nil {
		t.Error("VecBytes not followed by Int should be rejected")
	}
	if err := ValidateVectorLengthConvention([]Tag{TagVecBytes}); err == nil {
		t.Error("VecBytes at end of signature should be rejected")
	}
}

func TestEngineArgCount(t *testing.T) {
	got := EngineArgCount([]Tag{TagVecBytes, TagInt, TagString})
	if got != 3 {
		t.Errorf("EngineArgCount = %d, want 3", got)
	}
}
