package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/compiler"
	"github.com/openvp/affe/pkg/logging"
	"github.com/openvp/affe/pkg/state"
	"github.com/openvp/affe/pkg/superscope"
)

const stateScope = "superscope"

var version = "(untagged)"

func main() {
	var (
		showHelp    bool
		showVersion bool
		file        string
		expr        string
		kind        string
		configPath  string
		flags       config
		logParams   logging.Parameters
	)
	fs := flag.CommandLine
	fs.StringVarP(&file, "file", "f", "", "Path to the script source")
	fs.StringVarP(&expr, "expr", "e", "", "Inline script source")
	fs.StringVarP(&kind, "kind", "k", "frame", "Script the source is used as: init, frame, beat or point")
	fs.StringVar(&configPath, "config", "", "Path to a JSON configuration with the scripts and run settings")
	fs.BoolVar(&flags.Disasm, "disasm", false, "Print the listing of every compiled script")
	fs.IntVar(&flags.Times, "times", 0, "Number of frames to run (default 1)")
	fs.IntVar(&flags.Points, "points", 0, "Number of PCM samples per frame")
	fs.IntVar(&flags.BeatEvery, "beat-every", 0, "Report a beat every N frames")
	fs.IntVar(&flags.OperationLimit, "limit", 0, "Maximum number of operations per script invocation")
	fs.StringVar(&flags.StateDB, "state-db", "", "Keep persistent script variables in a LevelDB database at this path")
	fs.StringVar(&flags.Snapshot, "snapshot", "", "Load persistent variables from this file and save them back on exit")
	fs.BoolVar(&flags.DumpState, "dump-state", false, "Print the persistent variables as JSON on exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Print usage information (this message) and quit")
	fs.BoolVarP(&showVersion, "version", "v", false, "Print version information and quit")
	logParams.Initialize(fs)
	fs.Usage = showUsageAndExit
	flag.Parse()

	if showHelp {
		showUsageAndExit()
	}
	if showVersion {
		fmt.Printf("affe %s\n", version)
		os.Exit(0)
	}
	if err := logParams.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.NewLogger(logParams)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	osFs := afero.NewOsFs()
	cfg, err := buildConfig(osFs, configPath, file, expr, kind, flags)
	if err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		os.Exit(2)
	}
	logger.Debug("Configuration", zap.Any("config", cfg), zap.Stringer("logging", &logParams))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, osFs, cfg, os.Stdout, logger); err != nil {
		logger.Error("Failed", zap.Error(err), logging.ErrorTrace(err))
		cancel()
		os.Exit(1)
	}
}

func showUsageAndExit() {
	fmt.Println("usage: affe [flags]")
	flag.PrintDefaults()
	os.Exit(0)
}

func buildConfig(fs afero.Fs, configPath, file, expr, kind string, flags config) (config, error) {
	var fileCfg config
	if configPath != "" {
		var err error
		if fileCfg, err = loadConfig(fs, configPath); err != nil {
			return config{}, err
		}
	}
	src := expr
	if file != "" {
		if expr != "" {
			return config{}, errors.New("--file and --expr are mutually exclusive")
		}
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return config{}, errors.Wrap(err, "failed to read script")
		}
		src = string(data)
	}
	if src != "" {
		if err := flags.setScript(kind, src); err != nil {
			return config{}, err
		}
	}
	cfg, err := merge(defaultConfig(), fileCfg, flags)
	if err != nil {
		return config{}, err
	}
	return cfg, cfg.validate()
}

func openStore(cfg config) (state.Store, func(), error) {
	if cfg.StateDB == "" {
		return state.NewMemoryStore(), func() {}, nil
	}
	db, err := state.OpenLevelDB(cfg.StateDB, 0)
	if err != nil {
		return nil, nil, err
	}
	return state.NewLevelDBStore(db, stateScope), func() { _ = db.Close() }, nil
}

// pcm returns a synthetic signal for frame.
func pcm(n, frame int) []float32 {
	out := make([]float32, n)
	for k := range out {
		out[k] = float32(math.Sin(2 * math.Pi * float64(k*(frame+1)) / float64(n)))
	}
	return out
}

func run(ctx context.Context, fs afero.Fs, cfg config, out io.Writer, logger *zap.Logger) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if cfg.Snapshot != "" {
		ok, err := afero.Exists(fs, cfg.Snapshot)
		if err != nil {
			return err
		}
		if ok {
			if err := state.LoadSnapshot(fs, cfg.Snapshot, store); err != nil {
				return err
			}
		}
	}

	var copts []compiler.Option
	if cfg.OperationLimit > 0 {
		copts = append(copts, compiler.WithOperationLimit(cfg.OperationLimit))
	}
	scope, err := superscope.New(
		superscope.WithLogger(logger),
		superscope.WithStore(store),
		superscope.WithCompilerOptions(copts...),
	)
	if err != nil {
		return err
	}
	sources := map[superscope.ScriptKind]string{
		superscope.InitScript:  cfg.Init,
		superscope.FrameScript: cfg.Frame,
		superscope.BeatScript:  cfg.Beat,
		superscope.PointScript: cfg.Point,
	}
	for _, k := range []superscope.ScriptKind{superscope.InitScript, superscope.FrameScript, superscope.BeatScript, superscope.PointScript} {
		if err := scope.SetScript(k, sources[k]); err != nil {
			return err
		}
		if fn := scope.Script(k); fn != nil && cfg.Disasm {
			fmt.Fprintf(out, "; %s script %s\n%s", k, fn.Name(), codegen.Disassemble(fn.Program()))
		}
	}

	for frame := 0; frame < cfg.Times; frame++ {
		info := superscope.FrameInfo{
			Width:           cfg.Width,
			Height:          cfg.Height,
			Beat:            cfg.BeatEvery > 0 && (frame+1)%cfg.BeatEvery == 0,
			NativePCMLength: cfg.Points,
		}
		if err := scope.NextFrame(ctx, info); err != nil {
			logger.Warn("Frame failed", zap.Int("frame", frame), zap.Error(err))
		}
		if cfg.Point == "" {
			continue
		}
		points, err := scope.Render(ctx, pcm(cfg.Points, frame))
		for i, p := range points {
			fmt.Fprintf(out, "frame %d point %d: x=%g y=%g rgba=(%g, %g, %g, %g)\n",
				frame, i, p.X, p.Y, p.Red, p.Green, p.Blue, p.Alpha)
		}
		if err != nil {
			logger.Warn("Render failed", zap.Int("frame", frame), zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	printHost(out, scope.Host())

	if cfg.Snapshot != "" {
		if err := state.SaveSnapshot(fs, cfg.Snapshot, store); err != nil {
			return err
		}
	}
	if cfg.DumpState {
		dump, err := state.DumpJSON(store)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, dump)
	}
	return nil
}

func printHost(out io.Writer, h *superscope.Host) {
	fmt.Fprintf(out, "n=%g x=%g y=%g red=%g green=%g blue=%g alpha=%g linewidth=%g\n",
		h.N, h.X, h.Y, h.Red, h.Green, h.Blue, h.Alpha, h.LineWidth)
}
