// Command membench captures memcache TCP traffic into a compact binary
// profile, inspects a recorded profile, and replays it against a target
// memcache server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fsaintjacques/membench/internal/config"
	"github.com/fsaintjacques/membench/internal/lifecycle"
	"github.com/fsaintjacques/membench/internal/record"
	"github.com/fsaintjacques/membench/internal/replay"
)

// Exit codes per spec.md §6.
const (
	exitSuccess      = 0
	exitGenericError = 1
	exitInvalidArgs  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logLevel := "info"
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--debug" {
			logLevel = "debug"
			continue
		}
		rest = append(rest, a)
	}
	args = rest

	if len(args) < 1 {
		usage()
		return exitInvalidArgs
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "membench: failed to create logger: %v\n", err)
		return exitGenericError
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exit := &lifecycle.ExitFlag{}
	stop := lifecycle.Notify(exit, cancel)
	defer stop()

	switch args[0] {
	case "record":
		return runRecord(ctx, args[1:], exit, logger)
	case "analyze":
		return runAnalyze(args[1:])
	case "replay":
		return runReplay(ctx, args[1:], exit, logger)
	default:
		usage()
		return exitInvalidArgs
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: membench <record|analyze|replay> [args]\n")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func runRecord(ctx context.Context, args []string, exit *lifecycle.ExitFlag, logger *zap.Logger) int {
	cfg, err := config.ParseRecord(args)
	if err != nil {
		return argError(err)
	}
	rcfg := record.Config{
		SourceID:   cfg.Source,
		OutputPath: cfg.OutputPath,
		Port:       cfg.Port,
		Salt:       cfg.Salt,
	}
	if err := record.Run(ctx, rcfg, exit, logger); err != nil {
		logger.Error("record failed", zap.Error(err))
		return exitGenericError
	}
	return exitSuccess
}

func runAnalyze(args []string) int {
	cfg, err := config.ParseAnalyze(args)
	if err != nil {
		return argError(err)
	}
	if err := record.Analyze(cfg.ProfilePath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "membench: %v\n", err)
		return exitGenericError
	}
	return exitSuccess
}

func runReplay(ctx context.Context, args []string, exit *lifecycle.ExitFlag, logger *zap.Logger) int {
	cfg, err := config.ParseReplay(args)
	if err != nil {
		return argError(err)
	}
	ecfg := replay.Config{
		ProfilePath: cfg.ProfilePath,
		Target:      cfg.Target,
		Mode:        cfg.Mode,
		Policy:      cfg.Policy,
	}
	summary, runErr := replay.Run(ctx, ecfg, exit, logger)

	if cfg.StatsJSONPath != "" {
		if err := writeStatsJSON(cfg.StatsJSONPath, summary); err != nil {
			logger.Error("failed to write stats JSON", zap.Error(err))
		}
	}
	if runErr != nil {
		logger.Error("replay failed", zap.Error(runErr))
		return exitGenericError
	}
	return exitSuccess
}

func writeStatsJSON(path string, summary replay.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()
	return replay.WriteSummaryJSON(f, summary)
}

func argError(err error) int {
	fmt.Fprintf(os.Stderr, "membench: %v\n", err)
	if errors.Is(err, config.ErrInvalidArguments) {
		return exitInvalidArgs
	}
	return exitGenericError
}
