// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vectorlog/cmd/vectorlog/cli"
	"github.com/bureau-foundation/vectorlog/lib/conversion"
	"github.com/bureau-foundation/vectorlog/lib/schema/wearable"
	"github.com/bureau-foundation/vectorlog/lib/vectors"
)

type convertParams struct {
	kind      string
	prefix    string
	delimiter string
	format    string
	json      bool
}

// conversionResult is the --json output of convert.
type conversionResult struct {
	Kind       wearable.Kind       `json:"kind"`
	Prefix     string              `json:"prefix"`
	Shape      vectors.Hash        `json:"shape"`
	Metadata   *vectors.Metadata   `json:"metadata"`
	Collection *vectors.Collection `json:"collection"`
}

func convertCommand() *cli.Command {
	var params convertParams

	return &cli.Command{
		Name:    "convert",
		Summary: "Convert one message to metadata and a vector collection",
		Description: `Decode a single message and print the vectors it produces.

Every vector is printed under its key path with its component names.
The input is read from FILE, or stdin when FILE is "-" or absent. The
format follows the file extension (.json, .jsonc, .yaml, .yml; anything
else is CBOR) unless --format is given; stdin defaults to JSON.`,
		Usage: "vectorlog convert --kind KIND [flags] [FILE]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("convert", pflag.ContinueOnError)
			flagSet.StringVarP(&params.kind, "kind", "k", "",
				"message kind: robot-state, target-set or sensor-reading (required)")
			flagSet.StringVarP(&params.prefix, "prefix", "p", "", "key prefix")
			flagSet.StringVar(&params.delimiter, "delimiter", conversion.DefaultDelimiter, "key path delimiter")
			flagSet.StringVar(&params.format, "format", "", "input format: json, yaml or cbor")
			flagSet.BoolVar(&params.json, "json", false, "output as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Flatten a robot state",
				Command:     "vectorlog convert --kind robot-state --prefix robot state.json",
			},
			{
				Description: "Pipe a CBOR sensor reading and emit JSON",
				Command:     "cat reading.cbor | vectorlog convert -k sensor-reading -p wear --format cbor --json",
			},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("convert takes at most one FILE, got %d arguments", len(args))
			}
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			logger.Debug("converting message", "path", path, "kind", params.kind, "prefix", params.prefix)
			return runConvert(os.Stdin, os.Stdout, path, params)
		},
	}
}

func runConvert(stdin io.Reader, stdout io.Writer, path string, params convertParams) error {
	kind, err := wearable.ParseKind(params.kind)
	if err != nil {
		return fmt.Errorf("--kind: %w", err)
	}
	format := wearable.FormatJSON
	if path != "-" {
		format = wearable.FormatFromPath(path)
	}
	if params.format != "" {
		if format, err = wearable.ParseFormat(params.format); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading message: %w", err)
	}

	message, err := wearable.Decode(kind, data, format)
	if err != nil {
		return err
	}

	options := conversion.WithDelimiter(params.delimiter)
	metadata := vectors.NewMetadata()
	collection := vectors.NewCollection()
	conversion.Convert(message, params.prefix, metadata, collection, options)

	if params.json {
		return cli.WriteJSON(stdout, conversionResult{
			Kind:       kind,
			Prefix:     params.prefix,
			Shape:      metadata.Fingerprint(),
			Metadata:   metadata,
			Collection: collection,
		}, true)
	}
	return writeVectors(stdout, metadata, collection)
}

// writeVectors prints one line per key: the key, then name=value for
// every component.
func writeVectors(w io.Writer, metadata *vectors.Metadata, collection *vectors.Collection) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	collection.Range(func(key string, values []float64) bool {
		names, _ := metadata.Get(key)
		components := make([]string, len(values))
		for index, value := range values {
			formatted := strconv.FormatFloat(value, 'g', -1, 64)
			if index < len(names) {
				components[index] = names[index] + "=" + formatted
			} else {
				components[index] = formatted
			}
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, strings.Join(components, " "))
		return true
	})
	return tw.Flush()
}
