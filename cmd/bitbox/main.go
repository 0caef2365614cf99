// Command bitbox is the thin driver around the assembler, VM, debugger, and session
// service: assemble a source file, run an image, open the symbolic debugger, or serve the
// HTTP/WebSocket session API. Each subcommand loads bbconfig for its defaults, overridden by
// whatever flags are passed explicitly.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/bitbox-lang/bitbox/api"
	"github.com/bitbox-lang/bitbox/bbconfig"
	"github.com/bitbox-lang/bitbox/debugger"
	"github.com/bitbox-lang/bitbox/loader"
	"github.com/bitbox-lang/bitbox/vm"
)

// Version information, overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3 -X main.Commit=... -X main.Date=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "asm":
		err = runAsm(os.Args[2:])
	case "run":
		err = runRun(os.Args[2:])
	case "debug":
		err = runDebug(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "-version", "--version", "version":
		printVersion()
		return
	case "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "bitbox: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "bitbox: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("bitbox %s\n", Version)
	if Commit != "unknown" {
		fmt.Printf("commit: %s\n", Commit)
	}
	if Date != "unknown" {
		fmt.Printf("built: %s\n", Date)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `bitbox — typed register-machine assembly toolchain

Usage:
  bitbox asm <file.bb> [-o out.bbimg] [-symbols-file FILE]
  bitbox run <file.bb|out.bbimg> [-- argv...]
  bitbox debug <file.bb|out.bbimg> [-tui] [-gui]
  bitbox serve [-port N]
  bitbox version
  bitbox help

Commands:
  asm     Assemble a source file to a .bbimg image.
  run     Assemble (if source) or load (if image) and run to completion.
  debug   Launch the symbolic debugger: a line-oriented REPL by default,
          or a terminal/graphical UI with -tui/-gui.
  serve   Start the HTTP/WebSocket session server.
`)
}

// looksLikeImage reports whether path's extension marks it as a pre-built image rather than
// source, so run/debug can accept either without a flag.
func looksLikeImage(path string) bool {
	return len(path) > 6 && path[len(path)-6:] == ".bbimg"
}

func runAsm(args []string) error {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	out := fs.String("o", "", "output image path (default: <input>.bbimg)")
	symbolsFile := fs.String("symbols-file", "", "dump the resolved symbol table to this file (default: from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("asm: expected exactly one source file")
	}
	path := fs.Arg(0)

	cfg, err := bbconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	img, info, err := loader.AssembleFileWithDebugInfoAndMode(path, cfg.Assembler.DuplicateEntry)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = path + ".bbimg"
	}
	if err := os.WriteFile(outPath, img, 0600); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	fmt.Printf("assembled %s -> %s (%d bytes)\n", path, outPath, len(img))

	symOut := *symbolsFile
	if symOut == "" {
		symOut = cfg.Assembler.SymbolsOutputFile
	}
	if symOut != "" {
		if err := dumpSymbols(info.Symbols, symOut); err != nil {
			return err
		}
	}
	return nil
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	maxSteps := fs.Uint64("max-steps", 0, "halt after this many fetch/decode/execute cycles (0 = from config, or unbounded)")
	heapHint := fs.Uint64("heap-hint", 0, "pre-grow the heap to this many bytes before running (0 = from config)")
	enableTrace := fs.Bool("trace", false, "record an execution trace")
	enableStats := fs.Bool("stats", false, "record performance statistics and print a summary on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run: expected a source or image file")
	}
	path := fs.Arg(0)
	argv := fs.Args()[1:]

	cfg, err := bbconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	machine, err := loadProgram(path, argv, cfg.Assembler.DuplicateEntry)
	if err != nil {
		return err
	}

	steps := *maxSteps
	if steps == 0 {
		steps = cfg.VM.MaxSteps
	}
	heap := *heapHint
	if heap == 0 {
		heap = cfg.VM.HeapHint
	}
	trace := *enableTrace || cfg.VM.EnableTrace
	stats := *enableStats || cfg.VM.EnableStats
	traceOut, closeTrace, err := openTraceOutput(trace, cfg.Trace.OutputFile)
	if err != nil {
		return err
	}
	if closeTrace != nil {
		defer closeTrace()
	}
	applyExecutionOptions(machine, steps, heap, trace, stats, traceOut, cfg.Trace)

	runErr := machine.Run()
	if stats && machine.Stats != nil {
		machine.Stats.Finish()
		if err := writeStatistics(machine.Stats, cfg.Statistics); err != nil {
			fmt.Fprintf(os.Stderr, "writing statistics: %v\n", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if machine.State == vm.StateError {
		return machine.LastErr
	}
	return nil
}

func runDebug(args []string) error {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	tuiMode := fs.Bool("tui", false, "use the terminal UI debugger")
	guiMode := fs.Bool("gui", false, "use the graphical debugger")
	maxSteps := fs.Uint64("max-steps", 0, "halt after this many fetch/decode/execute cycles (0 = from config, or unbounded)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("debug: expected exactly one source or image file")
	}
	path := fs.Arg(0)

	cfg, err := bbconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var (
		machine *vm.VM
		symbols map[string]uint32
		srcMap  map[uint32]string
	)
	if looksLikeImage(path) {
		machine, err = loader.LoadImageFile(path, nil)
	} else {
		var img []byte
		var info *loader.DebugInfo
		img, info, err = loader.AssembleFileWithDebugInfoAndMode(path, cfg.Assembler.DuplicateEntry)
		if err == nil {
			machine, err = loader.LoadImage(img, nil)
			symbols, srcMap = info.Symbols, info.SourceMap
		}
	}
	if err != nil {
		return err
	}
	steps := *maxSteps
	if steps == 0 {
		steps = cfg.VM.MaxSteps
	}
	if steps > 0 {
		machine.MaxSteps = steps
	}

	dbg := debugger.NewDebugger(machine)
	dbg.SetEntryOffset(machine.PC())
	dbg.History = debugger.NewCommandHistoryWithSize(cfg.Debugger.HistorySize)
	if symbols != nil {
		dbg.LoadSymbols(symbols)
	}
	if srcMap != nil {
		dbg.LoadSourceMap(srcMap)
	}

	switch {
	case *guiMode:
		return debugger.RunGUI(dbg)
	case *tuiMode:
		return debugger.RunTUI(dbg)
	default:
		return debugger.RunCLI(dbg)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 0, "listen port (default: from config, or 4470)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := bbconfig.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listenPort := *port
	if listenPort == 0 {
		listenPort = portFromAddr(cfg.Server.ListenAddr, 4470)
	}

	server := api.NewServerWithConfig(listenPort, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nshutting down bitbox session server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
			}
		})
	}

	go func() {
		<-sigChan
		shutdown()
		os.Exit(0)
	}()

	// serve is typically launched as a child of a GUI or editor plugin; exit along with it
	// rather than lingering as an orphaned server once the parent is gone.
	monitor := api.NewProcessMonitor(func() {
		shutdown()
		os.Exit(0)
	})
	monitor.Start()
	defer monitor.Stop()

	fmt.Printf("bitbox session server listening on :%d\n", listenPort)
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		shutdown()
		return err
	}
	return nil
}

// portFromAddr extracts the trailing ":port" from an addr string such as "127.0.0.1:4470",
// falling back to def if addr has no parseable port suffix.
func portFromAddr(addr string, def int) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			var n int
			if _, err := fmt.Sscanf(addr[i+1:], "%d", &n); err == nil && n > 0 {
				return n
			}
			break
		}
	}
	return def
}

// loadProgram assembles path if it looks like source, or loads it directly if it is a
// pre-built image, seeding argv either way.
func loadProgram(path string, argv []string, duplicateEntryMode string) (*vm.VM, error) {
	if looksLikeImage(path) {
		return loader.LoadImageFile(path, argv)
	}
	img, err := loader.AssembleFileWithMode(path, duplicateEntryMode)
	if err != nil {
		return nil, err
	}
	return loader.LoadImage(img, argv)
}

// applyExecutionOptions wires run-mode flags (falling back to nothing when left at their
// zero value) onto a freshly loaded VM before its first Step.
func applyExecutionOptions(machine *vm.VM, maxSteps, heapHint uint64, trace, stats bool, traceOut io.Writer, traceCfg bbconfig.TraceConfig) {
	if maxSteps > 0 {
		machine.MaxSteps = maxSteps
	}
	if heapHint > 0 {
		machine.Heap.Grow(heapHint)
	}
	if trace {
		machine.Trace = vm.NewExecutionTrace(traceOut)
		machine.Trace.IncludeTiming = traceCfg.IncludeTiming
		if traceCfg.MaxEntries > 0 {
			machine.Trace.MaxEntries = traceCfg.MaxEntries
		}
		machine.Trace.Start(&machine.Registers)
	}
	if stats {
		machine.Stats = vm.NewStatistics()
		machine.Stats.Start()
	}
}

// openTraceOutput opens cfg's configured trace file when tracing is enabled, falling back to
// stderr when no output file is configured. The returned close func is nil when there is
// nothing to close.
func openTraceOutput(enabled bool, outputFile string) (io.Writer, func(), error) {
	if !enabled || outputFile == "" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(outputFile) // #nosec G304 -- user-configured trace output path
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// writeStatistics renders stats in cfg's configured format, to cfg's configured file if any
// or stderr otherwise.
func writeStatistics(stats *vm.Statistics, cfg bbconfig.StatisticsConfig) error {
	var w io.Writer = os.Stderr
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile) // #nosec G304 -- user-configured statistics output path
		if err != nil {
			return fmt.Errorf("creating statistics file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch cfg.Format {
	case "csv":
		return stats.ExportCSV(w)
	case "json":
		return stats.ExportJSON(w)
	default:
		_, err := fmt.Fprintln(w, stats.Summary())
		return err
	}
}

func dumpSymbols(symbols map[string]uint32, path string) error {
	f, err := os.Create(path) // #nosec G304 -- user-specified symbol output path
	if err != nil {
		return fmt.Errorf("creating symbol file: %w", err)
	}
	defer f.Close()

	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return symbols[names[i]] < symbols[names[j]] })

	fmt.Fprintln(f, "Symbol Table")
	fmt.Fprintln(f, "============")
	for _, name := range names {
		fmt.Fprintf(f, "%-30s 0x%08X\n", name, symbols[name])
	}
	return nil
}
