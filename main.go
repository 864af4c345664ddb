// Package main is the entry point for the delayfix audio timing tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/remuxtools/delayfix/internal/config"
	"github.com/remuxtools/delayfix/internal/executor"
	"github.com/remuxtools/delayfix/internal/inspect"
	"github.com/remuxtools/delayfix/internal/logger"
	"github.com/remuxtools/delayfix/internal/plan"
	"github.com/remuxtools/delayfix/internal/precision"
	"github.com/remuxtools/delayfix/internal/report"
	"github.com/remuxtools/delayfix/internal/timevalue"
	"github.com/remuxtools/delayfix/internal/version"
)

const longHelp = `delayfix shifts the start of an audio track by an exact delay and
reconciles its total length against a target duration, at the finest
granularity the codec allows: single samples for PCM/FLAC, whole codec
frames for compressed formats. All cuts and pads are lossless stream
copies; nothing is re-encoded.

With only an input file, delayfix reports the detected codec, sample
rate, duration, and achievable precision without writing anything.`

const exampleUsage = `  delayfix track.mka
  delayfix --delay 500ms track.mka
  delayfix --delay -200ms --target 1:23:45.678 track.mka`

func main() {
	var (
		cfgPath   string
		delayArg  string
		targetArg string
		outputArg string
		keepTemp  bool
		debug     bool
	)

	root := &cobra.Command{
		Use:           "delayfix [flags] <input>",
		Short:         "Correct timing offsets in recorded audio losslessly",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       version.Info(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if keepTemp {
				cfg.KeepTemp = true
			}
			if debug {
				cfg.Debug = true
			}

			log := logger.New(cfg.LogFile, cfg.Debug)
			defer func() { _ = log.Close() }()

			return run(cmd.Context(), cfg, log, args[0], delayArg, targetArg, outputArg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "config file path")
	root.Flags().StringVar(&delayArg, "delay", "", "signed start shift, e.g. 500ms, -200ms, 1.5s")
	root.Flags().StringVar(&targetArg, "target", "", "final duration, e.g. 1:23:45.678 or 3600.5 (requires --delay)")
	root.Flags().StringVarP(&outputArg, "output", "o", "", "output file path (default: next to input)")
	root.Flags().BoolVar(&keepTemp, "keep-temp", false, "keep the temporary working directory")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "delayfix: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run drives the pipeline: inspect, classify, plan, and (in correction
// mode) execute. Each stage fails fast; nothing retries.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger, input, delayArg, targetArg, outputArg string) error {
	if targetArg != "" && delayArg == "" {
		return fmt.Errorf("%w: --target requires --delay", timevalue.ErrInvalidTimeFormat)
	}

	resolver := inspect.NewResolver(log)
	props, err := resolver.Inspect(ctx, input)
	if err != nil {
		return err
	}

	prec, err := precision.Classify(props.Codec)
	if err != nil {
		return err
	}

	if prec.Variable {
		if err := resolver.ScanFrameSizes(ctx, props); err != nil {
			return err
		}
	}

	if delayArg == "" {
		fmt.Print(report.Analysis(props, prec, fileSize(input)))
		return nil
	}

	delay, err := timevalue.ParseDelay(delayArg)
	if err != nil {
		return err
	}

	var target *timevalue.TimeValue
	if targetArg != "" {
		t, err := timevalue.ParseDuration(targetArg)
		if err != nil {
			return err
		}
		target = &t
	}

	p, err := plan.Compute(delay, target, plan.StreamProperties{
		SampleRate:      props.SampleRate,
		DurationSamples: props.DurationSamples,
		FrameSizes:      props.FrameSizes,
	}, prec)
	if err != nil {
		return err
	}

	outputPath := outputArg
	if outputPath == "" {
		outputPath = executor.DefaultOutputPath(input, cfg.OutputSuffix)
	}

	runner := executor.New(cfg, log)
	if _, err := runner.Apply(ctx, p, props, prec, outputPath); err != nil {
		return err
	}

	fmt.Print(report.Correction(p, props, outputPath, fileSize(outputPath)))
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// exitCode maps each failure kind to a distinct status so scripts can
// tell them apart.
func exitCode(err error) int {
	switch {
	case errors.Is(err, timevalue.ErrInvalidTimeFormat):
		return 2
	case errors.Is(err, precision.ErrUnsupportedCodec):
		return 3
	case errors.Is(err, plan.ErrDelayExceedsStreamLength):
		return 4
	case errors.Is(err, plan.ErrTargetShorterThanContent):
		return 5
	case errors.Is(err, inspect.ErrInspection):
		return 6
	case errors.Is(err, executor.ErrBackendOperation):
		return 7
	default:
		return 1
	}
}
