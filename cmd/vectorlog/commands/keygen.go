// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/vectorlog/cmd/vectorlog/cli"
	"github.com/bureau-foundation/vectorlog/lib/sealed"
)

func keygenCommand() *cli.Command {
	var output string

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age keypair for encrypted logs",
		Description: `Generate an age x25519 keypair. The private key is written to --output
with owner-only permissions; the public key is printed on stdout for
the output.recipients list of a session config. Existing files are
never overwritten.`,
		Usage: "vectorlog keygen --output FILE",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&output, "output", "o", "", "identity file to create (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Create a key and record encrypted logs to it",
				Command:     "vectorlog keygen -o key.txt",
			},
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			if err := runKeygen(os.Stdout, output, time.Now()); err != nil {
				return err
			}
			logger.Info("identity written", "path", output)
			return nil
		},
	}
}

func runKeygen(stdout io.Writer, path string, now time.Time) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	if err := sealed.WriteIdentityFile(path, keypair, now); err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, keypair.PublicKey)
	return err
}
