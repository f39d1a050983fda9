package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/batch"
	"gfx.cafe/gfx/imgconv/lib/config"
	"gfx.cafe/gfx/imgconv/lib/convert"
	"gfx.cafe/gfx/imgconv/lib/taskpool"
	"gfx.cafe/gfx/imgconv/lib/tracing"
	"gfx.cafe/gfx/imgconv/lib/util/dur"
)

var errFailed = errors.New("some files failed to convert")

type convertFlags struct {
	format  string
	quality int
	workers int
	timeout time.Duration
	out     string
}

func (T *convertFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&T.format, "format", "f", "", "target format (jpg, png, gif, bmp, tiff, webp)")
	flags.IntVarP(&T.quality, "quality", "q", 0, "lossy quality, 1-100")
	flags.IntVarP(&T.workers, "workers", "w", 0, "number of conversion workers (default one per cpu)")
	flags.DurationVar(&T.timeout, "timeout", 0, "per file time limit")
	flags.StringVarP(&T.out, "out", "o", "", "output directory (default next to each input)")
}

// apply overrides config values with the flags that were set.
func (T *convertFlags) apply(flags *pflag.FlagSet, conf *config.Config) error {
	if flags.Changed("format") {
		conf.Format = T.format
	}
	if flags.Changed("quality") {
		conf.Quality = T.quality
	}
	if flags.Changed("workers") {
		conf.Workers = T.workers
	}
	if flags.Changed("timeout") {
		conf.JobTimeout = dur.Duration(T.timeout)
	}
	return conf.Validate()
}

func convertCmd() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert [flags] files...",
		Short: "convert files to another format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err = flags.apply(cmd.Flags(), conf); err != nil {
				return err
			}
			return runConvert(cmd.Context(), cmd, conf, flags.out, args)
		},
	}
	flags.register(cmd.Flags())

	return cmd
}

func runConvert(ctx context.Context, cmd *cobra.Command, conf *config.Config, out string, paths []string) error {
	logger, err := conf.Log.Build()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if conf.Tracing.Endpoint != "" {
		shutdown, err := tracing.Init(ctx, conf.Tracing, 0, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = shutdown(context.Background())
		}()
	}

	format, err := conf.OutputFormat()
	if err != nil {
		return err
	}

	files := make([]batch.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, batch.File{
			Name: path,
			Data: data,
		})
	}

	accepted, rejected := batch.Validate(files, batch.Limits{
		MaxFiles:    conf.Limits.MaxFiles,
		MaxFileSize: conf.Limits.MaxFileSize,
	})
	for _, rejection := range rejected {
		cmd.PrintErrf("skipped %v\n", rejection)
	}
	if len(accepted) == 0 {
		return errFailed
	}

	pool := convert.NewPool(taskpool.Config{
		Name:       "cli",
		Size:       conf.Workers,
		JobTimeout: conf.Timeout(),
		Logger:     logger,
	})
	defer pool.Close()

	converter := batch.Converter{
		Pool:   pool,
		Logger: logger,
	}
	items := converter.Convert(ctx, accepted, format, conf.Quality, func(index int, item batch.Item) {
		logger.Debug(
			"file updated",
			zap.String("file", item.Source),
			zap.Stringer("status", item.Status),
			zap.Float64("progress", item.Progress),
		)
	})

	targets := outputPaths(items, out)
	for i, item := range items {
		if item.Status != batch.StatusSuccess {
			cmd.PrintErrf("%s: %s: %v\n", item.Source, item.Status, item.Err)
			continue
		}

		target := targets[i]
		if err = writeFile(target, item.Result.Data); err != nil {
			return err
		}
		cmd.Printf("%s -> %s\n", item.Source, target)
	}

	summary := batch.Summarize(items)
	cmd.Println(summary.String())

	if len(rejected) > 0 || summary.Counts[batch.StatusSuccess] != len(items) {
		return errFailed
	}
	return nil
}

// outputPaths picks a target for every converted item. Targets never repeat
// within a batch and never name an input; clashes get a numeric suffix.
func outputPaths(items []batch.Item, out string) []string {
	taken := make(map[string]bool, len(items))
	for _, item := range items {
		taken[filepath.Clean(item.Source)] = true
	}

	targets := make([]string, len(items))
	for i, item := range items {
		if item.Status != batch.StatusSuccess {
			continue
		}

		target := filepath.Clean(item.FileName)
		if out != "" {
			target = filepath.Join(out, filepath.Base(item.FileName))
		}

		ext := filepath.Ext(target)
		stem := strings.TrimSuffix(target, ext)
		for n := 1; taken[target]; n++ {
			target = fmt.Sprintf("%s-%d%s", stem, n, ext)
		}
		taken[target] = true
		targets[i] = target
	}
	return targets
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "list the formats files can be converted to",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, format := range convert.OutputFormats {
				cmd.Printf("%s\t%s\n", format, format.MIME())
			}
		},
	}
}
