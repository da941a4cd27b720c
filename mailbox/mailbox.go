// Package mailbox implements the pair of fixed-size shared buffers used to
// carry wire frames across the host/guest boundary.
package mailbox

// Minimum buffer sizes. Values below these are silently clamped up by the
// sandbox builder; values above are accepted as-is.
const (
	MinInputBufferSize  = 192 << 10 // 192 KiB
	MinStackSize        = 64 << 10  // 64 KiB
	MinHeapSize         = 1 << 20   // 1 MiB
	DefaultOutputBuffer = 64 << 10  // 64 KiB, no mandated floor
)

// Mailbox holds the host->guest parameter buffer and the guest->host result
// buffer. Both are plain byte slices: in a real hypervisor-backed sandbox
// these would be regions of guest physical memory visible to both sides;
// here they are exactly that conceptually, owned by hypervisor.Machine, and
// Mailbox is just the pair of byte-slice views into that memory.
type Mailbox struct {
	Params  []byte
	Results []byte
}

// New allocates a Mailbox with the given buffer sizes, clamped to the
// floors above. The buffers are plain Go heap allocations, useful for
// tests that exercise marshalling without a hypervisor.Machine.
func New(inputSize, outputSize int) Mailbox {
	if inputSize < MinInputBufferSize {
		inputSize = MinInputBufferSize
	}
	if outputSize <= 0 {
		outputSize = DefaultOutputBuffer
	}
	return Mailbox{
		Params:  make([]byte, inputSize),
		Results: make([]byte, outputSize),
	}
}

// FromRegions builds a Mailbox from two existing byte slices rather than
// allocating its own. The sandbox builder uses this to carve the mailbox
// out of a hypervisor.Machine's guest physical memory arena, the way a
// real hypervisor-backed sandbox lays the mailbox out as a region of
// memory both host and guest already share.
func FromRegions(params, results []byte) Mailbox {
	return Mailbox{Params: params, Results: results}
}

// PutParams copies frame into the parameter buffer. It fails if frame does
// not fit, mirroring a real mailbox's fixed capacity.
func (m Mailbox) PutParams(frame []byte) bool {
	if len(frame) > len(m.Params) {
		return false
	}
	copy(m.Params, frame)
	return true
}

// PutResults copies frame into the result buffer.
func (m Mailbox) PutResults(frame []byte) bool {
	if len(frame) > len(m.Results) {
		return false
	}
	copy(m.Results, frame)
	return true
}
