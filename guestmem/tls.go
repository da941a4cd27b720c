package guestmem

import "sync/atomic"

// TLS is a single-slot atomic pointer standing in for thread-local storage.
// Safe because the guest is single-threaded.
type TLS struct {
	slot atomic.Pointer[byte]
}

func (t *TLS) Get() *byte { return t.slot.Load() }
func (t *TLS) Set(p *byte) { t.slot.Store(p) }
