// Package main provides the command-line interface for converting raw
// interlaced video to progressive frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/opd-ai/deinterlace/config"
	"github.com/opd-ai/deinterlace/internal/runner"
	"github.com/opd-ai/deinterlace/method"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// CLI configuration
type CLIConfig struct {
	configPath string
	input      string
	output     string
	digests    string

	// Stream description
	format        string
	width         int
	height        int
	interlaceMode string
	framerate     string
	cadence       string

	// Deinterlacer
	mode          string
	method        string
	fields        string
	layout        string
	locking       string
	ignoreObscure bool
	dropOrphans   bool
	workers       int
	live          bool

	maxFrames   uint64
	logLevel    string
	logFile     string
	progress    bool
	listMethods bool
	help        bool

	// set holds the names of flags given on the command line. Only those
	// override values from -config.
	set map[string]bool
}

// registerFlags binds every flag of the tool to cfg on fs.
func registerFlags(fs *flag.FlagSet, cfg *CLIConfig) {
	def := config.Default()

	// Files
	fs.StringVar(&cfg.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&cfg.input, "input", "-", "Raw input file (- for stdin)")
	fs.StringVar(&cfg.output, "output", "", "Raw output file (- for stdout, empty to discard)")
	fs.StringVar(&cfg.digests, "digests", "", "Write one BLAKE2b line per output frame to this file")

	// Stream description
	fs.StringVar(&cfg.format, "format", def.Input.Format, "Pixel format of the input")
	fs.IntVar(&cfg.width, "width", def.Input.Width, "Frame width in pixels")
	fs.IntVar(&cfg.height, "height", def.Input.Height, "Frame height in pixels")
	fs.StringVar(&cfg.interlaceMode, "interlace-mode", def.Input.InterlaceMode, "Interlace mode (progressive, interleaved, mixed, alternate)")
	fs.StringVar(&cfg.framerate, "framerate", def.Input.FrameRate, "Input frame rate as N/D")
	fs.StringVar(&cfg.cadence, "cadence", strings.Join(def.Input.Cadence, ";"), "Buffer flags per frame: ';' between frames, ',' between flags")

	// Deinterlacer
	fs.StringVar(&cfg.mode, "mode", def.Deinterlace.Mode, "Mode (auto, interlaced, disabled, auto-strict)")
	fs.StringVar(&cfg.method, "method", def.Deinterlace.Method, "Deinterlacing method (see -list-methods)")
	fs.StringVar(&cfg.fields, "fields", def.Deinterlace.Fields, "Fields to output (all, top, bottom, auto)")
	fs.StringVar(&cfg.layout, "layout", def.Deinterlace.Layout, "Field layout (auto, tff, bff)")
	fs.StringVar(&cfg.locking, "locking", def.Deinterlace.Locking, "Telecine pattern locking (none, auto, active, passive)")
	fs.BoolVar(&cfg.ignoreObscure, "ignore-obscure", def.Deinterlace.IgnoreObscure, "Ignore rarely used telecine patterns")
	fs.BoolVar(&cfg.dropOrphans, "drop-orphans", def.Deinterlace.DropOrphans, "Drop orphan fields at the start of telecine patterns")
	fs.IntVar(&cfg.workers, "workers", def.Deinterlace.Workers, "Row bands processed concurrently per frame")
	fs.BoolVar(&cfg.live, "live", def.Deinterlace.Live, "Treat the input as live when locking=auto")

	fs.Uint64Var(&cfg.maxFrames, "max-frames", 0, "Stop after this many input frames (0 = all)")

	// Logging configuration
	fs.StringVar(&cfg.logLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.logFile, "log-file", "", "Log file path (default: stderr)")

	fs.BoolVar(&cfg.progress, "progress", false, "Show a live progress view on stderr")
	fs.BoolVar(&cfg.listMethods, "list-methods", false, "List the deinterlacing methods and exit")
	fs.BoolVar(&cfg.help, "help", false, "Show help message")
}

// parseCLIFlags parses command-line arguments and returns the configuration.
func parseCLIFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{set: make(map[string]bool)}
	fs := flag.NewFlagSet("deinterlace", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	registerFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	fs.Visit(func(f *flag.Flag) {
		cfg.set[f.Name] = true
	})
	return cfg, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Raw Video Deinterlacer")
	fmt.Fprintln(w, "======================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reads headerless raw frames, converts interlaced or telecined video")
	fmt.Fprintln(w, "to progressive frames and writes them back out raw:")
	fmt.Fprintln(w, "  • Field-rate or frame-rate output with eleven methods")
	fmt.Fprintln(w, "  • Telecine pattern detection and inverse telecine")
	fmt.Fprintln(w, "  • Per-frame BLAKE2b digests for regression checks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s [options]\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs := flag.NewFlagSet("deinterlace", flag.ContinueOnError)
	fs.SetOutput(w)
	registerFlags(fs, &CLIConfig{})
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  # PAL capture to 50p with YADIF\n")
	fmt.Fprintf(w, "  %s -input in.yuv -output out.yuv -width 720 -height 576\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Recover 24p film from 2:3 pulldown\n")
	fmt.Fprintf(w, "  %s -input film.yuv -interlace-mode mixed -framerate 30000/1001 \\\n", os.Args[0])
	fmt.Fprintf(w, "      -locking active -cadence 'tff;tff;tff,onefield;onefield;tff' -output film24.yuv\n")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Settings from a file with live progress\n")
	fmt.Fprintf(w, "  %s -config deinterlace.yaml -input in.yuv -progress\n", os.Args[0])
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(cli *CLIConfig) error {
	if cli.input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	if cli.output != "" && cli.output != "-" && cli.output == cli.input {
		return fmt.Errorf("output must differ from input")
	}
	if cli.digests != "" && (cli.digests == cli.input || cli.digests == cli.output) {
		return fmt.Errorf("digests file must differ from input and output")
	}
	if cli.progress && cli.output == "-" {
		return fmt.Errorf("-progress cannot be combined with output to stdout")
	}
	if cli.width < 0 || cli.height < 0 {
		return fmt.Errorf("frame dimensions cannot be negative")
	}
	if cli.workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

// buildConfig loads -config, or the defaults, and applies the flags given
// explicitly on the command line on top.
func buildConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cli.configPath != "" {
		loaded, err := config.Load(cli.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := cli.set
	str := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	str("format", &cfg.Input.Format, cli.format)
	str("interlace-mode", &cfg.Input.InterlaceMode, cli.interlaceMode)
	str("framerate", &cfg.Input.FrameRate, cli.framerate)
	str("mode", &cfg.Deinterlace.Mode, cli.mode)
	str("method", &cfg.Deinterlace.Method, cli.method)
	str("fields", &cfg.Deinterlace.Fields, cli.fields)
	str("layout", &cfg.Deinterlace.Layout, cli.layout)
	str("locking", &cfg.Deinterlace.Locking, cli.locking)
	str("log-level", &cfg.LogLevel, cli.logLevel)

	if set["width"] {
		cfg.Input.Width = cli.width
	}
	if set["height"] {
		cfg.Input.Height = cli.height
	}
	if set["cadence"] {
		cfg.Input.Cadence = nil
		for _, entry := range strings.Split(cli.cadence, ";") {
			if entry = strings.TrimSpace(entry); entry != "" {
				cfg.Input.Cadence = append(cfg.Input.Cadence, entry)
			}
		}
	}
	if set["ignore-obscure"] {
		cfg.Deinterlace.IgnoreObscure = cli.ignoreObscure
	}
	if set["drop-orphans"] {
		cfg.Deinterlace.DropOrphans = cli.dropOrphans
	}
	if set["workers"] {
		cfg.Deinterlace.Workers = cli.workers
	}
	if set["live"] {
		cfg.Deinterlace.Live = cli.live
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createRunnerConfig converts the file configuration to a runner
// configuration. Streams are attached by the caller.
func createRunnerConfig(cfg *config.Config, cli *CLIConfig) (runner.Config, error) {
	info, err := cfg.InputInfo()
	if err != nil {
		return runner.Config{}, err
	}
	cadence, err := cfg.CadenceFlags()
	if err != nil {
		return runner.Config{}, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		Info:      info,
		Cadence:   cadence,
		Options:   opts,
		MaxFrames: cli.maxFrames,
	}, nil
}

// setupLogging configures logrus. The returned closer releases the log
// file, if any.
func setupLogging(level, path string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if path == "" {
		logrus.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(f)
	return f, nil
}

// listMethods writes a table of the available methods.
func listMethods(w io.Writer) {
	head := lipgloss.NewStyle().Bold(true)
	fmt.Fprintln(w, head.Render(fmt.Sprintf("%-12s %-7s %-8s %s", "NAME", "FIELDS", "LATENCY", "DESCRIPTION")))
	for _, id := range method.IDs() {
		d, err := method.Describe(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-12s %-7d %-8d %s\n", d.ShortID, d.FieldsRequired, d.Latency, d.Name)
	}
}

// openStreams opens the input, output and digest files. "-" selects stdin
// or stdout. closeAll must be called once the run finished.
func openStreams(cli *CLIConfig, rc *runner.Config) (closeAll func() error, size int64, err error) {
	var closers []io.Closer
	closeAll = func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && first == nil {
				first = cerr
			}
		}
		return first
	}

	if cli.input == "-" {
		rc.Input = os.Stdin
	} else {
		f, err := os.Open(cli.input)
		if err != nil {
			return closeAll, 0, fmt.Errorf("failed to open input: %w", err)
		}
		closers = append(closers, f)
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
		rc.Input = f
	}

	switch cli.output {
	case "":
	case "-":
		rc.Output = os.Stdout
	default:
		f, err := os.Create(cli.output)
		if err != nil {
			closeAll()
			return nil, 0, fmt.Errorf("failed to create output: %w", err)
		}
		closers = append(closers, f)
		rc.Output = f
	}

	if cli.digests != "" {
		f, err := os.Create(cli.digests)
		if err != nil {
			closeAll()
			return nil, 0, fmt.Errorf("failed to create digests file: %w", err)
		}
		closers = append(closers, f)
		rc.Digests = f
	}
	return closeAll, size, nil
}

// expectedFrames estimates the number of input frames for the progress bar.
func expectedFrames(size int64, frameSize int, maxFrames uint64) uint64 {
	var total uint64
	if size > 0 && frameSize > 0 {
		total = uint64(size) / uint64(frameSize)
	}
	if maxFrames > 0 && (total == 0 || maxFrames < total) {
		total = maxFrames
	}
	return total
}

// runWithProgress runs r under a bubbletea progress view on stderr.
func runWithProgress(ctx context.Context, cancel context.CancelFunc, r *runner.Runner, updates chan runner.Progress, total uint64, stdinBusy bool) (*runner.Result, error) {
	opts := []tea.ProgramOption{tea.WithOutput(os.Stderr), tea.WithContext(ctx)}
	if stdinBusy {
		opts = append(opts, tea.WithInput(nil))
	}
	prog := tea.NewProgram(runner.NewProgressModel(updates, total, cancel), opts...)

	type outcome struct {
		res *runner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.Run(ctx)
		close(updates)
		prog.Send(runner.DoneMsg{Result: res, Err: err})
		done <- outcome{res, err}
	}()

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logrus.WithFields(logrus.Fields{
			"function": "runWithProgress",
			"error":    err.Error(),
		}).Warn("Progress view failed")
		cancel()
	}
	o := <-done
	return o.res, o.err
}

// setupSignalHandling sets up graceful shutdown on interrupt signals.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\n🛑 Received signal %v, draining and stopping...\n", sig)
		cancel()
	}()
}

// main is the entry point for the deinterlacer.
func main() {
	cli, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(2)
	}

	if cli.help {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	if cli.listMethods {
		listMethods(os.Stdout)
		os.Exit(0)
	}

	if err := validateCLIConfig(cli); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	cfg, err := buildConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := setupLogging(cfg.LogLevel, cli.logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	rc, err := createRunnerConfig(cfg, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	closeAll, size, err := openStreams(cli, &rc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	var updates chan runner.Progress
	if cli.progress {
		updates = make(chan runner.Progress, 1)
		rc.Progress = updates
	}

	r, err := runner.New(rc)
	if err != nil {
		closeAll()
		fmt.Fprintf(os.Stderr, "❌ Failed to set up: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	var res *runner.Result
	if cli.progress {
		total := expectedFrames(size, rc.Info.FrameSize(), cli.maxFrames)
		res, err = runWithProgress(ctx, cancel, r, updates, total, cli.input == "-")
	} else {
		res, err = r.Run(ctx)
	}

	if cerr := closeAll(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close files: %w", cerr)
	}

	exitCode := 0
	switch {
	case errors.Is(err, runner.ErrCanceled):
		fmt.Fprintln(os.Stderr, "\n⚠️  Stopped before end of input")
	case err != nil:
		fmt.Fprintf(os.Stderr, "\n❌ Conversion failed: %v\n", err)
		exitCode = 1
	default:
		fmt.Fprintln(os.Stderr, "\n✅ Conversion complete")
	}

	if res != nil {
		fmt.Fprintln(os.Stderr, runner.Summary(res, runner.NewPrinter(language.English)))
	}
	logCloser.Close()
	os.Exit(exitCode)
}
