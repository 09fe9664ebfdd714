// Package record implements the capture -> parse -> anonymize -> write
// pipeline of spec.md §4.6: a single-threaded cooperative loop that owns
// the capture source and the profile writer for its whole lifetime.
package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/fsaintjacques/membench/internal/anonymize"
	"github.com/fsaintjacques/membench/internal/capture"
	"github.com/fsaintjacques/membench/internal/flowbuf"
	"github.com/fsaintjacques/membench/internal/lifecycle"
	"github.com/fsaintjacques/membench/internal/memcache"
	"github.com/fsaintjacques/membench/internal/profile"
)

// Config configures one record run.
type Config struct {
	SourceID   string
	OutputPath string
	Port       uint16
	Salt       *uint64 // nil selects a clock-derived salt, per spec.md §4.4
}

// Run drives the record pipeline to completion. It returns when the
// source ends (finite sources), the exit flag is flipped, or ctx is
// canceled. It is the direct descendant of the teacher's stream()
// function in pktreader.go, generalized from one memcache binary stream
// to the full capture/parse/anonymize/write pipeline.
func Run(ctx context.Context, cfg Config, exit *lifecycle.ExitFlag, logger *zap.Logger) error {
	src, err := capture.NewSource(cfg.SourceID, cfg.Port)
	if err != nil {
		return fmt.Errorf("record: open capture source: %w", err)
	}
	defer src.Close()
	logger.Info("capture source opened", zap.String("source", src.Describe()), zap.Bool("finite", src.IsFinite()))

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("record: create output %q: %w", cfg.OutputPath, err)
	}
	writer := profile.NewWriter(out)

	var hasher anonymize.Hasher
	if cfg.Salt != nil {
		hasher = anonymize.NewHasherFromUint64(*cfg.Salt)
	} else {
		hasher = anonymize.NewHasherFromClock()
	}
	k0, k1 := hasher.Salt()
	logger.Info("anonymizer salt", zap.Uint64("k0", k0), zap.Uint64("k1", k1))

	reassembler := flowbuf.NewReassembler()
	interner := NewInterner()

	events := uint64(0)
	droppedBytes := uint64(0)

loop:
	for {
		if exit.IsSet() || ctx.Err() != nil {
			logger.Info("record exiting: cooperative shutdown")
			break loop
		}

		frame, ferr := src.NextFrame()
		if ferr != nil {
			if ferr == capture.ErrEndOfSource {
				logger.Info("record exiting: source exhausted")
				break loop
			}
			var transient *capture.TransientError
			if errors.As(ferr, &transient) {
				logger.Warn("transient capture error", zap.Error(transient.Err))
				continue loop
			}
			return fmt.Errorf("record: fatal capture error: %w", ferr)
		}

		if !frame.FlowHint.Valid {
			continue loop
		}
		payload := frame.Bytes
		flow := flowbuf.FlowKey{
			SrcIP:   frame.FlowHint.SrcIP,
			SrcPort: frame.FlowHint.SrcPort,
			DstPort: frame.FlowHint.DstPort,
		}
		if len(payload) == 0 {
			continue loop
		}

		buf := reassembler.Append(flow, payload)
		connID := interner.Intern(flow)

		offset := 0
		for offset < len(buf) {
			sub := buf[offset:]
			cmd, n, perr := memcache.Parse(sub)
			if perr == memcache.ErrNeedMore {
				break
			}
			if perr != nil {
				var protoErr *memcache.ProtocolError
				if errors.As(perr, &protoErr) {
					droppedBytes += uint64(n)
					offset += n
					continue
				}
				return fmt.Errorf("record: unexpected parser error: %w", perr)
			}

			key := cmd.Key(sub)
			ev := profile.Event{
				Timestamp:    uint64(time.Now().UnixMicro()),
				ConnectionID: connID,
				Command:      cmd.Type,
				KeyHash:      hasher.Hash(key),
				KeySize:      uint32(len(key)),
				HasValueSize: cmd.HasValueSize,
				ValueSize:    cmd.ValueSize,
			}
			if ev.HasValueSize {
				ev.Flags |= profile.FlagHasValue
			}
			if err := writer.Write(&ev); err != nil {
				return fmt.Errorf("record: write event: %w", err)
			}
			events++
			offset += n
		}
		if err := reassembler.Consume(flow, offset); err != nil {
			logger.Warn("reassembler consume failed", zap.Error(err))
			reassembler.Reset(flow)
		}
	}

	if err := writer.Finish(); err != nil {
		return fmt.Errorf("record: finish profile: %w", err)
	}

	logger.Info("record finished",
		zap.Uint64("events", events),
		zap.Uint64("truncated_connections", interner.TruncatedConnections()),
		zap.String("dropped_bytes", humanize.Bytes(droppedBytes)),
		zap.Uint64("parse_error_flows", reassembler.ParseErrors),
	)
	return nil
}
