// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the vectorlog command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/vectorlog/cmd/vectorlog/cli"
	"github.com/bureau-foundation/vectorlog/lib/version"
)

// Root builds and returns the complete vectorlog command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "vectorlog",
		Description: `vectorlog: telemetry to labelled vectors.

Convert robot state, target sets and wearable sensor readings into flat
vector collections keyed by "::"-delimited paths, each with a matching
list of component names, and record streams of them to vector logs.`,
		Subcommands: []*cli.Command{
			convertCommand(),
			recordCommand(),
			inspectCommand(),
			keygenCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Printf("vectorlog %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
