package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

func newCheckWasmtimeVersionCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "check-wasmtime-version <file>",
		Short: "Report whether an artifact compiles against this build's embedded engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0], debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

// runCheck answers the question the original tool's embedded-wasmtime
// version check answers -- "will this artifact load against the engine this
// build ships" -- the only way a pure-Go engine with no separate version
// string can answer it: by actually compiling the artifact.
func runCheck(path string, debug bool) error {
	log := newLogger(debug)
	defer log.Sync()

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		log.Debug("incompatible", zap.String("file", path), zap.Error(err))
		return fmt.Errorf("%s is not compatible with this build's engine: %w", path, err)
	}
	defer compiled.Close(ctx)

	fmt.Printf("%s is compatible with this build's engine\n", path)
	return nil
}
