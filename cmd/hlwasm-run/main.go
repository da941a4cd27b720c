// Command hlwasm-run loads a raw Wasm artifact into a sandbox and drives
// call_guest_function against it, either once from the command line or
// repeatedly from an interactive TUI. Unlike a binary component's
// canonical-ABI export table, this build's wire.CallFrame carries no
// self-describing signatures, so the operator declares each callable
// function's parameter/result tags with a repeatable -sig flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/hlwasm/hlwasm/sandbox"
	"github.com/hlwasm/hlwasm/wire"
)

type sigFlags []string

func (s *sigFlags) String() string     { return strings.Join(*s, ",") }
func (s *sigFlags) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "path to a Wasm module/component file")
		funcName    = flag.String("func", "", "function to call (non-interactive mode)")
		argsStr     = flag.String("args", "", "comma-separated arguments for -func, in declared order")
		list        = flag.Bool("list", false, "list declared -sig functions and exit")
		interactive = flag.Bool("i", false, "interactive mode with a TUI")
	)
	var sigs sigFlags
	flag.Var(&sigs, "sig", "function signature: name:tag,tag,...:resultTag (repeatable)")
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: hlwasm-run -wasm <file> -sig name:tags:result [-sig ...] [-func name -args a,b,c | -list | -i]")
		os.Exit(1)
	}

	specs := make(map[string]FuncSpec, len(sigs))
	var order []string
	for _, s := range sigs {
		spec, err := parseFuncSpec(s)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		specs[spec.Name] = spec
		order = append(order, spec.Name)
	}

	if *list {
		for _, name := range order {
			fmt.Println(formatSig(specs[name]))
		}
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "interactive mode requires a terminal on stdout")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, specs, order); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(*wasmFile, *funcName, *argsStr, specs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func formatSig(f FuncSpec) string {
	tags := make([]string, len(f.Params))
	for i, t := range f.Params {
		tags[i] = t.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", f.Name, strings.Join(tags, ", "), f.Result.String())
}

func runOnce(wasmFile, funcName, argsStr string, specs map[string]FuncSpec) error {
	if funcName == "" {
		return fmt.Errorf("-func is required outside -list/-i")
	}
	spec, ok := specs[funcName]
	if !ok {
		return fmt.Errorf("no -sig declared for function %q", funcName)
	}

	var rawArgs []string
	if argsStr != "" {
		rawArgs = strings.Split(argsStr, ",")
	}
	if len(rawArgs) != len(spec.Params) {
		return fmt.Errorf("%s expects %d argument(s), got %d", funcName, len(spec.Params), len(rawArgs))
	}

	params := make([]wire.Value, len(rawArgs))
	for i, raw := range rawArgs {
		v, err := parseArg(spec.Params[i], raw)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		params[i] = v
	}

	wasmBytes, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", wasmFile, err)
	}

	ctx := context.Background()
	loaded, cleanup, err := loadSandbox(ctx, wasmBytes)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := loaded.CallGuestFunction(ctx, funcName, params, spec.Result)
	if err != nil {
		return fmt.Errorf("call_guest_function %s: %w", funcName, err)
	}
	fmt.Println(formatResult(result))
	return nil
}

// loadSandbox builds a default Proto, advances it straight through to
// Loaded, and returns a cleanup that disposes it. Every hlwasm-run
// invocation gets its own sandbox; there is no session reuse across
// -func calls the way a long-lived host process would keep one around.
func loadSandbox(ctx context.Context, wasmBytes []byte) (*sandbox.Loaded, func(), error) {
	proto, err := sandbox.NewBuilder().Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build sandbox: %w", err)
	}
	rt, err := proto.LoadRuntime(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load_runtime: %w", err)
	}
	loaded, err := rt.LoadModuleFromBuffer(ctx, wasmBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("load_module_from_buffer: %w", err)
	}
	return loaded, func() { loaded.Dispose(ctx) }, nil
}
