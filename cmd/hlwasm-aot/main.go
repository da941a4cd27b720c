// Command hlwasm-aot precompiles Wasm artifacts into a sandbox's engine
// compilation cache and reports whether an artifact's engine requirements
// are compatible with the engine this build embeds. It is out-of-core
// completeness tooling, not part of the sandbox lifecycle itself.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
