package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/snapset/internal/codec"
	"github.com/bamsammich/snapset/internal/config"
	"github.com/bamsammich/snapset/internal/engine"
	"github.com/bamsammich/snapset/internal/event"
	"github.com/bamsammich/snapset/internal/filter"
	"github.com/bamsammich/snapset/internal/stats"
	"github.com/bamsammich/snapset/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// monitorOptions holds the root command's flag values.
type monitorOptions struct {
	pattern     string
	codec       codecFlag
	logFile     string
	metricsAddr string
	configFile  string
	setSize     int
	verify      bool
	verbose     bool
	quiet       bool
	showVersion bool
}

func run() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts monitorOptions

	rootCmd := &cobra.Command{
		Use:   "snapset [flags] <watch-dir> <output-dir>",
		Short: "Archive numbered image sets into compressed containers as they arrive",
		Long: `snapset watches a directory for files named like test_01_00001.tif,
groups them into fixed-size sets per run, writes each complete set as one
compressed tar container, keeps the first image of the set uncompressed and
deletes the originals.

Both directories may instead come from the [defaults] table of the config file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				return nil
			}
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected <watch-dir> <output-dir>, got %d argument(s)", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "snapset %s\n", version)
				return nil
			}
			return runMonitor(cmd, args, &opts)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flags.StringVarP(&opts.pattern, "pattern", "p", filter.DefaultTemplate,
		"file name template; the first run of # is the run number, the second the sequence")
	flags.IntVarP(&opts.setSize, "set-size", "k", engine.DefaultSetSize, "files per set")
	opts.codec = codecFlag{name: codec.DefaultName}
	flags.Var(&opts.codec, "codec", "container compression ("+strings.Join(codec.Names(), ", ")+")")
	flags.BoolVar(&opts.verify, "verify", false, "read back outputs and compare digests (xxhash, BLAKE3)")
	flags.StringVar(&opts.logFile, "log", "", "write structured JSON log to FILE")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on ADDR (e.g. :9090)")
	flags.StringVar(&opts.configFile, "config", "", "read defaults from FILE instead of the XDG config path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

func runMonitor(cmd *cobra.Command, args []string, opts *monitorOptions) error {
	cfg, cfgErr := loadConfig(opts.configFile)
	if cfgErr != nil && opts.configFile != "" {
		return cfgErr
	}
	watchDir, outputDir := applyConfigDefaults(cmd, cfg.Defaults, opts)
	if len(args) == 2 {
		watchDir, outputDir = args[0], args[1]
	}
	if watchDir == "" || outputDir == "" {
		return errors.New("watch and output directories are required (arguments or [defaults] in config)")
	}

	if opts.setSize < 1 {
		return fmt.Errorf("invalid --set-size: must be at least 1, got %d", opts.setSize)
	}
	tmpl, err := filter.Compile(opts.pattern)
	if err != nil {
		return fmt.Errorf("invalid --pattern: %w", err)
	}
	c, err := codec.Lookup(opts.codec.name)
	if err != nil {
		return fmt.Errorf("invalid --codec: %w", err)
	}

	logger, closeLog, err := setupLogging(opts.logFile, opts.verbose, opts.quiet)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfgErr != nil {
		logger.Warn("failed to load config, using built-in defaults", "path", config.Path(), "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	if opts.metricsAddr != "" {
		shutdown, err := serveMetrics(opts.metricsAddr, collector, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	events := make(chan event.Event, 256)
	presenterEvents := (<-chan event.Event)(events)
	if opts.logFile != "" {
		presenterEvents = teeEvents(events, logger)
	}

	isTTY, width := ui.Terminal(os.Stderr.Fd())
	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Stats:     collector,
		OutputDir: outputDir,
		IsTTY:     isTTY,
		TermWidth: width,
		Quiet:     opts.quiet,
	})

	monitor, err := engine.NewMonitor(engine.Config{
		Events:    events,
		Stats:     collector,
		Logger:    logger,
		Template:  tmpl,
		Codec:     c,
		WatchDir:  watchDir,
		OutputDir: outputDir,
		SetSize:   opts.setSize,
		Verify:    opts.verify,
	})
	if err != nil {
		return err
	}

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	runErr := monitor.Run(ctx)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if !opts.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	if runErr != nil {
		logger.Error("monitor failed", "error", runErr)
		if errors.Is(runErr, engine.ErrFatal) {
			return &exitError{code: 1}
		}
		return runErr
	}
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI and returns the configured directories.
func applyConfigDefaults(
	cmd *cobra.Command,
	defaults config.DefaultsConfig,
	opts *monitorOptions,
) (watchDir, outputDir string) {
	if !cmd.Flags().Changed("pattern") && defaults.Pattern != nil {
		opts.pattern = *defaults.Pattern
	}
	if !cmd.Flags().Changed("set-size") && defaults.SetSize != nil {
		opts.setSize = *defaults.SetSize
	}
	if !cmd.Flags().Changed("codec") && defaults.Codec != nil {
		opts.codec.name = *defaults.Codec
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		opts.verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("metrics-addr") && defaults.MetricsAddr != nil {
		opts.metricsAddr = *defaults.MetricsAddr
	}
	if defaults.WatchDir != nil {
		watchDir = *defaults.WatchDir
	}
	if defaults.OutputDir != nil {
		outputDir = *defaults.OutputDir
	}
	return watchDir, outputDir
}

// setupLogging installs the process logger: text on stderr, plus a JSON
// file at debug level when logFile is set.
func setupLogging(logFile string, verbose, quiet bool) (*slog.Logger, func(), error) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	var logHandler slog.Handler = textHandler
	closeLog := func() {}
	if logFile != "" {
		lf, err := os.Create(logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}

	logger := slog.New(logHandler)
	slog.SetDefault(logger)
	return logger, closeLog, nil
}

// teeEvents writes a structured record for every event before forwarding
// it to the presenter.
func teeEvents(events <-chan event.Event, logger *slog.Logger) <-chan event.Event {
	teed := make(chan event.Event, cap(events))
	go func() {
		defer close(teed)
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int("run", ev.Run),
				slog.Int("set", ev.SetStart),
			}
			if ev.Files > 0 {
				attrs = append(attrs, slog.Int("files", ev.Files))
			}
			if ev.Size > 0 {
				attrs = append(attrs, slog.Int64("size", ev.Size), slog.Int64("stored", ev.Stored))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			logger.LogAttrs(context.Background(), slog.LevelDebug, "snapset.event", attrs...)
			teed <- ev
		}
	}()
	return teed
}

// serveMetrics exposes the collector on addr/metrics and returns a function
// that shuts the server down.
func serveMetrics(addr string, collector *stats.Collector, logger *slog.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics: %w", err)
	}
	go func() {
		logger.Info("serving metrics", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// codecFlag is a pflag.Value that rejects unknown codec names at parse time.
type codecFlag struct {
	name string
}

var _ pflag.Value = (*codecFlag)(nil)

func (f *codecFlag) String() string { return f.name }
func (*codecFlag) Type() string     { return "codec" }

func (f *codecFlag) Set(val string) error {
	c, err := codec.Lookup(val)
	if err != nil {
		return err
	}
	f.name = c.Name()
	return nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
