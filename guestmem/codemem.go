package guestmem

// CodeMemory implements the engine's custom-code-memory hook: alignment is
// the page size, and publish/unpublish are no-ops because true W^X page
// table flips are a deferred refinement.
type CodeMemory struct{}

func (CodeMemory) RequiredAlignment() uint64 { return PageSize }
func (CodeMemory) PublishExecutable(ptr uint64, length uint64) error { return nil }
func (CodeMemory) UnpublishExecutable(ptr uint64, length uint64) error { return nil }
