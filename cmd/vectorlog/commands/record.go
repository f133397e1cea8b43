// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/vectorlog/cmd/vectorlog/cli"
	"github.com/bureau-foundation/vectorlog/lib/clock"
	"github.com/bureau-foundation/vectorlog/lib/config"
	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/recorder"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
)

func recordCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "record",
		Summary: "Replay message streams into a vector log",
		Description: `Read every configured source's CBOR message stream and record the
merged frames to the configured vector log.

Sources are replayed concurrently. Each message produces one frame that
holds the latest vectors of every source seen so far. A metadata record
is written whenever the merged shape changes, before the first frame of
that shape.

The config file is --config, or VECTORLOG_CONFIG when the flag is not
given.`,
		Usage: "vectorlog record [--config FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("record", pflag.ContinueOnError)
			flagSet.StringVarP(&configPath, "config", "c", "", "session config file")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Record a session described by session.yaml",
				Command:     "vectorlog record --config session.yaml",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			var (
				cfg *config.Config
				err error
			)
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			_, err = runRecord(ctx, cfg, clock.Real(), logger.With("command", "record"))
			return err
		},
	}
}

// recordSummary describes a finished recording.
type recordSummary struct {
	Session  string
	Messages map[string]int
	Stats    recorder.Stats
}

func runRecord(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (recordSummary, error) {
	if err := cfg.Validate(); err != nil {
		return recordSummary{}, fmt.Errorf("invalid config: %w", err)
	}
	compression, _ := cfg.Compression()
	flushInterval, _ := cfg.FlushIntervalDuration()
	recipients, _ := cfg.AgeRecipients()

	sources := make([]recorder.Source, len(cfg.Sources))
	for index, source := range cfg.Sources {
		sources[index] = recorder.Source{
			Name:   source.Name,
			Prefix: source.Prefix,
			Kind:   wearable.Kind(source.Kind),
		}
	}

	writer, err := framelog.Create(cfg.Output.Path, framelog.WriterOptions{
		Delimiter:   cfg.Delimiter,
		Compression: compression,
		Recipients:  recipients,
		CreatedAt:   clk.Now(),
	})
	if err != nil {
		return recordSummary{}, err
	}
	header := writer.Header()
	logger = logger.With("session", header.Session.String(), "output", cfg.Output.Path)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := recorder.New(recorder.Config{
		Sources:        sources,
		Delimiter:      cfg.Delimiter,
		Compression:    compression,
		BufferMaxBytes: cfg.BufferMaxBytes,
		FlushInterval:  flushInterval,
	}, writer, clk, logger, registry)
	if err != nil {
		writer.Close()
		return recordSummary{}, err
	}

	if cfg.Metrics.Listen != "" {
		stopMetrics, err := serveMetrics(cfg.Metrics.Listen, registry, logger)
		if err != nil {
			writer.Close()
			return recordSummary{}, err
		}
		defer stopMetrics()
	}

	// The drain loop outlives replay so it can flush what replay
	// queued, so it does not use ctx.
	runContext, stopRun := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- rec.Run(runContext) }()

	logger.Info("recording started", "sources", len(sources), "compression", compression.String())
	counts := make([]int, len(cfg.Sources))
	group, groupContext := errgroup.WithContext(ctx)
	for index, source := range cfg.Sources {
		group.Go(func() error {
			count, err := replaySource(groupContext, rec, source)
			counts[index] = count
			return err
		})
	}
	replayErr := group.Wait()

	stopRun()
	runErr := <-runDone
	closeErr := writer.Close()

	summary := recordSummary{
		Session:  header.Session.String(),
		Messages: make(map[string]int, len(counts)),
		Stats:    rec.Stats(),
	}
	for index, source := range cfg.Sources {
		summary.Messages[source.Name] = counts[index]
	}
	logger.Info("recording finished",
		"frames", summary.Stats.FramesWritten,
		"metadata_records", summary.Stats.MetadataWritten,
		"frames_dropped", summary.Stats.FramesDropped,
		"shape_changes", summary.Stats.ShapeChanges,
	)
	return summary, errors.Join(replayErr, runErr, closeErr)
}

// replaySource feeds every message of one source's input file to the
// recorder and returns how many were recorded.
func replaySource(ctx context.Context, rec *recorder.Recorder, source config.SourceConfig) (int, error) {
	file, err := os.Open(source.Input)
	if err != nil {
		return 0, fmt.Errorf("source %q: %w", source.Name, err)
	}
	defer file.Close()

	decoder, err := wearable.NewStreamDecoder(wearable.Kind(source.Kind), file)
	if err != nil {
		return 0, fmt.Errorf("source %q: %w", source.Name, err)
	}
	for {
		message, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return decoder.Count(), nil
		}
		if err != nil {
			return decoder.Count(), fmt.Errorf("source %q: %w", source.Name, err)
		}
		if err := rec.Record(ctx, source.Name, message); err != nil {
			return decoder.Count(), fmt.Errorf("source %q: %w", source.Name, err)
		}
	}
}

// serveMetrics exposes registry on /metrics at address until the
// returned function is called.
func serveMetrics(address string, registry *prometheus.Registry, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "address", listener.Addr().String())

	return func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownContext)
	}, nil
}
