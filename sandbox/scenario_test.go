package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/hlwasm/hlwasm/errors"
	"github.com/hlwasm/hlwasm/sandbox"
	"github.com/hlwasm/hlwasm/sandbox/testwasm"
	"github.com/hlwasm/hlwasm/wire"
)

func newLoaded(t *testing.T, wasmBytes []byte, register func(*sandbox.Proto)) *sandbox.Loaded {
	t.Helper()
	ctx := context.Background()

	proto, err := sandbox.NewBuilder().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if register != nil {
		register(proto)
	}

	rt, err := proto.LoadRuntime(ctx)
	if err != nil {
		t.Fatalf("load_runtime: %v", err)
	}

	loaded, err := rt.LoadModuleFromBuffer(ctx, wasmBytes)
	if err != nil {
		t.Fatalf("load_module_from_buffer: %v", err)
	}
	return loaded
}

func TestEchoRoundTrip(t *testing.T) {
	loaded := newLoaded(t, testwasm.Echo(), nil)

	got, err := loaded.CallGuestFunction(context.Background(), "echo", []wire.Value{wire.Int(4242)}, wire.TagInt)
	if err != nil {
		t.Fatalf("call_guest_function: %v", err)
	}
	if got.Int() != 4242 {
		t.Fatalf("echo: got %d, want 4242", got.Int())
	}
}

func TestCallHostFunction(t *testing.T) {
	loaded := newLoaded(t, testwasm.CallHostFunction("env", "TestHostFunc", 41), func(p *sandbox.Proto) {
		if err := p.Register("TestHostFunc", func(x int32) (int32, error) {
			return x + 1, nil
		}); err != nil {
			t.Fatalf("register: %v", err)
		}
	})

	got, err := loaded.CallGuestFunction(context.Background(), "call_host_function", nil, wire.TagInt)
	if err != nil {
		t.Fatalf("call_guest_function: %v", err)
	}
	if got.Int() != 42 {
		t.Fatalf("call_host_function: got %d, want 42", got.Int())
	}
}

func TestRoundToNearestInt(t *testing.T) {
	loaded := newLoaded(t, testwasm.RoundToNearestInt(), nil)

	cases := []struct {
		a, b float64
		want int32
	}{
		{1.331, 24.0, 32},
		{-5.7, 10.3, -59},
		{1.5, 1.5, 2},
	}
	for _, c := range cases {
		got, err := loaded.CallGuestFunction(context.Background(), "round_to_nearest_int",
			[]wire.Value{wire.Float64(c.a), wire.Float64(c.b)}, wire.TagInt)
		if err != nil {
			t.Fatalf("round_to_nearest_int(%v, %v): %v", c.a, c.b, err)
		}
		if got.Int() != c.want {
			t.Fatalf("round_to_nearest_int(%v, %v) = %d, want %d", c.a, c.b, got.Int(), c.want)
		}
	}
}

func TestCalcFib(t *testing.T) {
	loaded := newLoaded(t, testwasm.CalcFib(), nil)

	got, err := loaded.CallGuestFunction(context.Background(), "calc_fib", []wire.Value{wire.Int(10)}, wire.TagInt)
	if err != nil {
		t.Fatalf("calc_fib: %v", err)
	}
	if got.Int() != 55 {
		t.Fatalf("calc_fib(10) = %d, want 55", got.Int())
	}
}

func TestHelloWorld(t *testing.T) {
	loaded := newLoaded(t, testwasm.HelloWorld(), nil)

	got, err := loaded.CallGuestFunction(context.Background(), "hello_world", []wire.Value{wire.Int(0)}, wire.TagInt)
	if err != nil {
		t.Fatalf("hello_world: %v", err)
	}
	if got.Int() != 0 {
		t.Fatalf("hello_world: got %d, want 0", got.Int())
	}
}

func TestPassBufferAndLengthToHost(t *testing.T) {
	const message = "Hello World!"
	var gotBuf []byte
	var gotLen, gotSecond int32

	loaded := newLoaded(t, testwasm.PassBufferAndLengthToHost("env", "HostFuncWithBufferAndLength", message, 1024, 12),
		func(p *sandbox.Proto) {
			if err := p.Register("HostFuncWithBufferAndLength", func(buf []byte, second int32) (int32, error) {
				gotBuf = append([]byte(nil), buf...)
				gotLen = int32(len(buf))
				gotSecond = second
				return int32(len(buf)), nil
			}); err != nil {
				t.Fatalf("register: %v", err)
			}
		})

	got, err := loaded.CallGuestFunction(context.Background(), "pass_buffer_and_length_to_host", nil, wire.TagInt)
	if err != nil {
		t.Fatalf("pass_buffer_and_length_to_host: %v", err)
	}
	if got.Int() != int32(len(message)) {
		t.Fatalf("pass_buffer_and_length_to_host = %d, want %d", got.Int(), len(message))
	}
	if string(gotBuf) != message {
		t.Fatalf("host saw buffer %q, want %q", gotBuf, message)
	}
	if gotLen != 12 || gotSecond != 12 {
		t.Fatalf("host saw length=%d second=%d, want both 12", gotLen, gotSecond)
	}
}

func TestKeepCPUBusyInterruption(t *testing.T) {
	loaded := newLoaded(t, testwasm.KeepCPUBusy(), nil)
	handle := loaded.InterruptHandle()

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		handle.Kill()
	}()

	_, err := loaded.CallGuestFunction(context.Background(), "keep_cpu_busy", nil, wire.TagVoid)
	close(done)

	if err == nil {
		t.Fatal("keep_cpu_busy: expected cancellation error, got nil")
	}
	if !errors.IsKind(err, errors.KindExecutionCanceled) {
		t.Fatalf("keep_cpu_busy: got %v, want ExecutionCanceled", err)
	}
	if !loaded.IsPoisoned() {
		t.Fatal("keep_cpu_busy: sandbox should be poisoned after an abnormal exit")
	}
}
