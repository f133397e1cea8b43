// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vectorlog/cmd/vectorlog/cli"
	"github.com/bureau-foundation/vectorlog/lib/framelog"
	"github.com/bureau-foundation/vectorlog/lib/sealed"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

type inspectParams struct {
	identityPath string
	values       bool
	json         bool
}

// inspectEntry is one line of --json output.
type inspectEntry struct {
	Type       framelog.RecordType `json:"type"`
	Shape      vectors.Hash        `json:"shape"`
	Sequence   *uint64             `json:"sequence,omitempty"`
	Timestamp  *time.Time          `json:"timestamp,omitempty"`
	Metadata   *vectors.Metadata   `json:"metadata,omitempty"`
	Collection *vectors.Collection `json:"collection,omitempty"`
}

// inspectSummary is printed after the last record.
type inspectSummary struct {
	MetadataRecords int
	Frames          int
	First, Last     time.Time
	// Gaps counts missing sequence numbers, i.e. frames dropped while
	// recording.
	Gaps uint64
}

func inspectCommand() *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Print the header and records of a vector log",
		Description: `Read a vector log and print its header, then one line per record.

Every frame is checked against the metadata of its shape. Reading stops
at the first corrupt record; the records before it are still printed
and the command exits with status 2.

Encrypted logs need --identity, a file of age identities as written by
age-keygen.`,
		Usage: "vectorlog inspect [flags] LOG",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.StringVarP(&params.identityPath, "identity", "i", "", "age identity file for encrypted logs")
			flagSet.BoolVar(&params.values, "values", false, "print every vector of every frame")
			flagSet.BoolVar(&params.json, "json", false, "output JSON lines: the header, then one object per record")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Summarize a log",
				Command:     "vectorlog inspect session.vlog",
			},
			{
				Description: "Dump an encrypted log as JSON lines",
				Command:     "vectorlog inspect --identity key.txt --json session.vlog",
			},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("inspect takes exactly one LOG argument")
			}
			_, err := runInspect(os.Stdout, args[0], params)
			if errors.Is(err, framelog.ErrCorrupt) {
				logger.Error("vector log is corrupt", "path", args[0], "error", err)
				return &cli.ExitError{Code: 2}
			}
			return err
		},
	}
}

func runInspect(stdout io.Writer, path string, params inspectParams) (inspectSummary, error) {
	var identities []age.Identity
	if params.identityPath != "" {
		var err error
		if identities, err = sealed.LoadIdentities(params.identityPath); err != nil {
			return inspectSummary{}, err
		}
	}

	reader, err := framelog.Open(path, identities...)
	if err != nil {
		return inspectSummary{}, err
	}
	defer reader.Close()

	header := reader.Header()
	if params.json {
		if err := cli.WriteJSON(stdout, header, false); err != nil {
			return inspectSummary{}, err
		}
	} else {
		fmt.Fprintf(stdout, "session %s created %s delimiter %q compression %s\n",
			header.Session, header.CreatedAt.Format(time.RFC3339Nano), header.Delimiter, header.Compression)
	}

	var summary inspectSummary
	var nextSequence uint64
	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeInspectSummary(stdout, summary, params.json)
			return summary, err
		}

		switch {
		case entry.Metadata != nil:
			summary.MetadataRecords++
		case entry.Frame != nil:
			frame := entry.Frame
			if summary.Frames == 0 {
				summary.First = frame.Timestamp
			} else if frame.Sequence > nextSequence {
				summary.Gaps += frame.Sequence - nextSequence
			}
			summary.Last = frame.Timestamp
			summary.Frames++
			nextSequence = frame.Sequence + 1
		}

		if params.json {
			if err := cli.WriteJSON(stdout, toInspectEntry(entry), false); err != nil {
				return summary, err
			}
			continue
		}
		writeInspectEntry(stdout, entry, params.values)
	}
	writeInspectSummary(stdout, summary, params.json)
	return summary, nil
}

func toInspectEntry(entry framelog.Entry) inspectEntry {
	out := inspectEntry{Type: entry.Record.Type, Shape: entry.Record.Shape}
	if entry.Metadata != nil {
		out.Metadata = entry.Metadata.Metadata
	}
	if entry.Frame != nil {
		out.Sequence = &entry.Frame.Sequence
		out.Timestamp = &entry.Frame.Timestamp
		out.Collection = entry.Frame.Collection
	}
	return out
}

func writeInspectEntry(w io.Writer, entry framelog.Entry, values bool) {
	record := entry.Record
	switch {
	case entry.Metadata != nil:
		metadata := entry.Metadata.Metadata
		fmt.Fprintf(w, "metadata %s  %d keys  %d bytes %s\n",
			record.Shape.Short(), metadata.Len(), len(record.Body), record.Compression)
		metadata.Range(func(key string, names []string) bool {
			fmt.Fprintf(w, "  %s %v\n", key, names)
			return true
		})
	case entry.Frame != nil:
		frame := entry.Frame
		fmt.Fprintf(w, "frame %d  %s  %s  %d vectors  %d bytes %s\n",
			frame.Sequence, frame.Timestamp.Format(time.RFC3339Nano), record.Shape.Short(),
			frame.Collection.Len(), len(record.Body), record.Compression)
		if values {
			frame.Collection.Range(func(key string, vector []float64) bool {
				fmt.Fprintf(w, "  %s %v\n", key, vector)
				return true
			})
		}
	}
}

func writeInspectSummary(w io.Writer, summary inspectSummary, jsonOutput bool) {
	if jsonOutput {
		return
	}
	fmt.Fprintf(w, "%d metadata records, %d frames", summary.MetadataRecords, summary.Frames)
	if summary.Frames > 0 {
		fmt.Fprintf(w, " over %s", summary.Last.Sub(summary.First))
	}
	if summary.Gaps > 0 {
		fmt.Fprintf(w, ", %d dropped", summary.Gaps)
	}
	fmt.Fprintln(w)
}
