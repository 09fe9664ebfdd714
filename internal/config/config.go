// Package config implements the CLI argument parsing shared by the three
// membench subcommands, using flag.FlagSet the way the teacher's
// pktreader.go parses its own single-command flags (spec.md §6: CLI
// parsing is an external collaborator, not core scope, so it stays thin).
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/fsaintjacques/membench/internal/memcache"
	"github.com/fsaintjacques/membench/internal/replay"
)

// ErrInvalidArguments marks a usage error, mapped to exit code 2 by
// cmd/membench (spec.md §6).
var ErrInvalidArguments = errors.New("config: invalid arguments")

// RecordConfig holds the parsed `record` subcommand arguments.
type RecordConfig struct {
	Source     string
	OutputPath string
	Port       uint16
	Salt       *uint64
}

// ParseRecord parses `record <source> <output> [--port P=11211] [--salt S]`.
func ParseRecord(args []string) (*RecordConfig, error) {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	port := fs.Uint("port", 11211, "TCP port carrying memcache traffic")
	salt := fs.Uint64("salt", 0, "fixed 64-bit anonymizer salt (default: derived from the clock)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: membench record [--port P] [--salt S] <source> <output>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, fmt.Errorf("%w: record requires <source> and <output>", ErrInvalidArguments)
	}
	if *port == 0 || *port > 65535 {
		return nil, fmt.Errorf("%w: --port must be in [1, 65535]", ErrInvalidArguments)
	}

	cfg := &RecordConfig{Source: fs.Arg(0), OutputPath: fs.Arg(1), Port: uint16(*port)}
	saltSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "salt" {
			saltSet = true
		}
	})
	if saltSet {
		v := *salt
		cfg.Salt = &v
	}
	return cfg, nil
}

// AnalyzeConfig holds the parsed `analyze` subcommand arguments.
type AnalyzeConfig struct {
	ProfilePath string
}

// ParseAnalyze parses `analyze <profile>`.
func ParseAnalyze(args []string) (*AnalyzeConfig, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: membench analyze <profile>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("%w: analyze requires <profile>", ErrInvalidArguments)
	}
	return &AnalyzeConfig{ProfilePath: fs.Arg(0)}, nil
}

// ReplayConfig holds the parsed `replay` subcommand arguments.
type ReplayConfig struct {
	ProfilePath   string
	Target        string
	Policy        replay.LoopPolicy
	Mode          memcache.ProtocolMode
	StatsJSONPath string
}

// ParseReplay parses:
//
//	replay <profile> [--target HOST:PORT=localhost:11211]
//	       [--loop-mode M={once|infinite|times:N}]
//	       [--protocol-mode {ascii|meta}=meta] [--stats-json PATH]
func ParseReplay(args []string) (*ReplayConfig, error) {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	target := fs.String("target", "localhost:11211", "host:port of the replay target")
	loopMode := fs.String("loop-mode", "once", "once | infinite | times:N")
	protocolMode := fs.String("protocol-mode", "meta", "ascii | meta")
	statsJSON := fs.String("stats-json", "", "path to write the final JSON statistics document")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: membench replay [--target HOST:PORT] [--loop-mode M] [--protocol-mode P] [--stats-json PATH] <profile>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("%w: replay requires <profile>", ErrInvalidArguments)
	}

	policy, err := parseLoopMode(*loopMode)
	if err != nil {
		return nil, err
	}
	mode, err := parseProtocolMode(*protocolMode)
	if err != nil {
		return nil, err
	}

	return &ReplayConfig{
		ProfilePath:   fs.Arg(0),
		Target:        *target,
		Policy:        policy,
		Mode:          mode,
		StatsJSONPath: *statsJSON,
	}, nil
}

func parseLoopMode(s string) (replay.LoopPolicy, error) {
	switch {
	case s == "once":
		return replay.Once(), nil
	case s == "infinite":
		return replay.Infinite(), nil
	case strings.HasPrefix(s, "times:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "times:"))
		if err != nil || n <= 0 {
			return replay.LoopPolicy{}, fmt.Errorf("%w: --loop-mode times:N requires a positive integer N", ErrInvalidArguments)
		}
		return replay.NTimes(n), nil
	default:
		return replay.LoopPolicy{}, fmt.Errorf("%w: --loop-mode must be once, infinite, or times:N (got %q)", ErrInvalidArguments, s)
	}
}

func parseProtocolMode(s string) (memcache.ProtocolMode, error) {
	switch s {
	case "ascii":
		return memcache.ProtocolASCII, nil
	case "meta":
		return memcache.ProtocolMeta, nil
	default:
		return 0, fmt.Errorf("%w: --protocol-mode must be ascii or meta (got %q)", ErrInvalidArguments, s)
	}
}
