package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/snapset/internal/config"
	"github.com/bamsammich/snapset/internal/filter"
	"github.com/bamsammich/snapset/internal/generator"
)

type generateOptions struct {
	pattern      string
	templateFile string
	size         string
	configFile   string
	interval     time.Duration
	count        int
	imagesPerRun int
	startRun     int
	verbose      bool
	quiet        bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [flags] <dir>",
		Short: "Write synthetic numbered image files at a fixed cadence",
		Long: `generate stands in for acquisition software: it writes --count files named
by --pattern into <dir>, one every --interval, starting a new run every
--images-per-run files. Every file is written under a hidden name and renamed
into place, so a monitor never sees a partial file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.pattern, "pattern", "p", filter.DefaultTemplate, "file name template")
	flags.StringVar(&opts.templateFile, "template-file", "", "copy the contents of FILE into every generated file")
	flags.StringVar(&opts.size, "size", "1M", "bytes per generated file when no --template-file is given")
	flags.IntVarP(&opts.count, "count", "n", generator.DefaultImagesPerRun, "number of files to write")
	flags.DurationVar(&opts.interval, "interval", generator.DefaultInterval, "delay between files (0 for no delay)")
	flags.IntVar(&opts.imagesPerRun, "images-per-run", generator.DefaultImagesPerRun, "files per run before the run number advances")
	flags.IntVar(&opts.startRun, "start-run", 1, "first run number")
	flags.StringVar(&opts.configFile, "config", "", "read defaults from FILE instead of the XDG config path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every file written")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all output except errors")

	return cmd
}

func runGenerate(cmd *cobra.Command, dir string, opts *generateOptions) error {
	cfg, cfgErr := loadConfig(opts.configFile)
	if cfgErr != nil && opts.configFile != "" {
		return cfgErr
	}
	if err := applyGenerateDefaults(cmd, cfg, opts); err != nil {
		return err
	}

	tmpl, err := filter.Compile(opts.pattern)
	if err != nil {
		return fmt.Errorf("invalid --pattern: %w", err)
	}
	data, err := templateData(opts.templateFile, opts.size)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging("", opts.verbose, opts.quiet)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfgErr != nil {
		logger.Warn("failed to load config, using built-in defaults", "path", config.Path(), "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := generator.Run(ctx, generator.Config{
		Logger:       logger,
		Template:     tmpl,
		Dir:          dir,
		Data:         data,
		Count:        opts.count,
		ImagesPerRun: opts.imagesPerRun,
		StartRun:     opts.startRun,
		Interval:     opts.interval,
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("generation interrupted", "files", n)
		return nil
	}
	return err
}

// applyGenerateDefaults applies the [generate] and [defaults] tables for
// flags not explicitly set on the CLI.
func applyGenerateDefaults(cmd *cobra.Command, cfg config.Config, opts *generateOptions) error {
	gen := cfg.Generate
	if !cmd.Flags().Changed("pattern") && cfg.Defaults.Pattern != nil {
		opts.pattern = *cfg.Defaults.Pattern
	}
	if !cmd.Flags().Changed("size") && gen.Size != nil {
		opts.size = *gen.Size
	}
	if !cmd.Flags().Changed("count") && gen.Count != nil {
		opts.count = *gen.Count
	}
	if !cmd.Flags().Changed("images-per-run") && gen.ImagesPerRun != nil {
		opts.imagesPerRun = *gen.ImagesPerRun
	}
	if !cmd.Flags().Changed("interval") && gen.Interval != nil {
		d, err := time.ParseDuration(*gen.Interval)
		if err != nil {
			return fmt.Errorf("invalid generate.interval in config: %w", err)
		}
		opts.interval = d
	}
	return nil
}

// templateData returns the bytes written to every generated file.
func templateData(templateFile, size string) ([]byte, error) {
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, fmt.Errorf("read template file: %w", err)
		}
		return data, nil
	}
	n, err := filter.ParseSize(size)
	if err != nil {
		return nil, fmt.Errorf("invalid --size: %w", err)
	}
	return generator.Pattern(int(n)), nil
}
