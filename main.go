package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fpgrars/fpgrars/config"
	"github.com/fpgrars/fpgrars/linker"
	"github.com/fpgrars/fpgrars/loader"
	"github.com/fpgrars/fpgrars/parser"
	"github.com/fpgrars/fpgrars/render"
	"github.com/fpgrars/fpgrars/vm"
)

// Version information, overridable at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion       = flag.Bool("version", false, "Show version information")
		showHelp          = flag.Bool("help", false, "Show help information")
		port              = flag.Int("port", 0, "MIDI port index")
		portShort         = flag.Int("p", 0, "MIDI port index (shorthand)")
		noVideo           = flag.Bool("no-video", false, "Suppress the renderer")
		printInstructions = flag.Bool("print-instructions", false, "Dump decoded program and exit")
		printState        = flag.Bool("print-state", false, "Dump final register/memory summary")
		width             = flag.Int("width", 0, "Renderer width (default from config, 320)")
		widthShort        = flag.Int("w", 0, "Renderer width, shorthand")
		height            = flag.Int("height", 0, "Renderer height (default from config, 240)")
		heightShort       = flag.Int("h", 0, "Renderer height, shorthand")
		scale             = flag.Int("scale", 0, "Renderer scale (default from config, 2)")
		scaleShort        = flag.Int("s", 0, "Renderer scale, shorthand")
		configPath        = flag.String("config", "", "Explicit config file (default: fpgrars.toml next to FILE)")
		maxCycles         = flag.Uint64("max-cycles", 0, "Maximum cycles before a fatal abort (0: use config default)")
		verbose           = flag.Bool("verbose", false, "Set trace.verbose in the run configuration (no output depends on it)")
		verboseShort      = flag.Bool("v", false, "Set trace.verbose in the run configuration, shorthand")
		tui               = flag.Bool("tui", false, "Use the terminal renderer (tcell/tview) instead of the windowed one")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("fpgrars %s (commit %s, built %s)\n", Version, Commit, Date)
		return
	}
	if *showHelp || flag.NArg() == 0 {
		printHelp()
		if *showHelp {
			return
		}
		os.Exit(1)
	}

	file := flag.Arg(0)
	if _, err := os.Stat(file); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.SidecarPath(file)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, firstNonZero(*port, *portShort), *noVideo,
		firstNonZero(*width, *widthShort), firstNonZero(*height, *heightShort),
		firstNonZero(*scale, *scaleShort), *maxCycles, *verbose || *verboseShort)

	prog, errs := parser.Assemble(file, parser.OSFileReader{})
	if errs != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errs.Error())
		os.Exit(1)
	}

	if errs := linker.Link(prog, 0, vm.DataBase); errs != nil && errs.HasErrors() {
		fmt.Fprintf(os.Stderr, "%s\n", errs.Error())
		os.Exit(1)
	}

	if *printInstructions {
		dumpInstructions(prog)
		return
	}

	m := vm.NewVM(uint32(cfg.Execution.StackSize))
	m.MaxCycles = cfg.Execution.MaxCycles
	m.SetFilesystemRoot(filepath.Dir(file))

	if err := loader.Load(m, prog, cfg.Execution.Entry); err != nil {
		// Fall back to address 0 for programs with no "main" label.
		if err2 := loader.Load(m, prog, ""); err2 != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Display.NoVideo {
		runHeadless(ctx, m)
	} else if *tui {
		runTerminal(ctx, m, cfg)
	} else {
		runWindowed(ctx, m, cfg)
	}

	if *printState {
		dumpState(m)
	}
	os.Exit(int(m.ExitCode))
}

func runHeadless(ctx context.Context, m *vm.VM) {
	done := make(chan error, 1)
	go func() { done <- m.Run() }()
	select {
	case <-ctx.Done():
		m.Exit(130)
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		}
	}
}

func runWindowed(ctx context.Context, m *vm.VM, cfg *config.Config) {
	w := render.NewWindow(m.Memory.Bus(), cfg.Display.Width, cfg.Display.Height, cfg.Display.Scale)
	w.OnKey(func(scancode byte, down bool) {
		m.Memory.Bus().WriteScancode(scancode)
		m.Memory.Bus().SetKeyBit(int(scancode), down)
	})

	go func() {
		if err := m.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		}
	}()
	go func() {
		<-ctx.Done()
		m.Exit(130)
	}()

	w.Run()
}

func runTerminal(ctx context.Context, m *vm.VM, cfg *config.Config) {
	term := render.NewTerminal(m.Memory.Bus(), cfg.Display.Width, cfg.Display.Height)
	term.OnKey(func(scancode byte, down bool) {
		m.Memory.Bus().WriteScancode(scancode)
		m.Memory.Bus().SetKeyBit(int(scancode), down)
	})

	go func() {
		if err := m.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		}
	}()
	go func() {
		<-ctx.Done()
		m.Exit(130)
	}()

	if err := term.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "terminal renderer error: %v\n", err)
	}
}

func applyFlagOverrides(cfg *config.Config, port int, noVideo bool, w, h, s int, maxCycles uint64, verbose bool) {
	if port != 0 {
		cfg.MIDI.Port = port
	}
	if noVideo {
		cfg.Display.NoVideo = true
	}
	if w != 0 {
		cfg.Display.Width = w
	}
	if h != 0 {
		cfg.Display.Height = h
	}
	if s != 0 {
		cfg.Display.Scale = s
	}
	if maxCycles != 0 {
		cfg.Execution.MaxCycles = maxCycles
	}
	if verbose {
		cfg.Trace.Verbose = true
	}
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func dumpInstructions(prog *parser.Program) {
	for _, in := range prog.Code {
		fmt.Printf("0x%08X: op=%d rd=%d rs1=%d rs2=%d imm=%d\n",
			in.Addr, in.Op, in.Rd, in.Rs1, in.Rs2, in.Imm)
	}
}

func dumpState(m *vm.VM) {
	fmt.Printf("cycles=%d exitCode=%d state=%d\n", m.Cycles, m.ExitCode, m.State)
	for i := 0; i < 32; i++ {
		fmt.Printf("x%-2d = 0x%08X\n", i, m.Regs.GPR(i))
	}
	fmt.Printf("data=%d bytes heap_break=0x%08X\n", m.Memory.DataSize(), m.Memory.Sbrk(0))
}

func printHelp() {
	fmt.Printf(`fpgrars %s

Usage: fpgrars [options] FILE

Options:
  -p, -port N          MIDI port index
  -no-video            Suppress the renderer
  -print-instructions  Dump the decoded program and exit
  -print-state         Dump final register/memory summary
  -w, -width N         Renderer width
  -h, -height N        Renderer height
  -s, -scale N         Renderer scale
  -config PATH         Explicit config file (default: fpgrars.toml next to FILE)
  -max-cycles N        Maximum cycles before a fatal abort
  -v, -verbose         Set trace.verbose (no output depends on it)
  -tui                 Use the terminal renderer instead of the windowed one
  -version             Show version information
  -help                Show this help message
`, Version)
}
