package mailbox

import "testing"

func TestNew_ClampsFloors(t *testing.T) {
	m := New(1024, 0)
	if len(m.Params) != MinInputBufferSize {
		t.Errorf("params buffer = %d, want clamped to %d", len(m.Params), MinInputBufferSize)
	}
	if len(m.Results) != DefaultOutputBuffer {
		t.Errorf("results buffer = %d, want default %d", len(m.Results), DefaultOutputBuffer)
	}
}

func TestNew_AcceptsLarger(t *testing.T) {
	m := New(1<<20, 2<<20)
	if len(m.Params) != 1<<20 || len(m.Results) != 2<<20 {
		t.Errorf("oversized buffers were clamped: %+v", m)
	}
}

func TestPutParams_TooLarge(t *testing.T) {
	m := New(MinInputBufferSize, 0)
	if m.PutParams(make([]byte, len(m.Params)+1)) {
		t.Error("PutParams should reject a frame larger than capacity")
	}
	if !m.PutParams(make([]byte, 16)) {
		t.Error("PutParams should accept a frame within capacity")
	}
}
