//go:build !unix

package loader

// tryMap always reports failure on platforms without the unix mmap
// family, so Load falls back to its copy path unconditionally.
func tryMap(path string) (data []byte, closer Closer, ok bool) {
	return nil, nil, false
}
