package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hlwasm-aot",
		Short: "Precompile and inspect Wasm artifacts for hlwasm sandboxes",
	}
	cmd.AddCommand(newCompileCommand())
	cmd.AddCommand(newCheckWasmtimeVersionCommand())
	return cmd
}
