// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"filippo.io/age"
)

// ErrNoRecipients is returned by ParseRecipients for an empty list.
var ErrNoRecipients = errors.New("at least one recipient is required")

// ErrInsecureIdentityFile is returned by LoadIdentities when the
// identity file is readable by group or others.
var ErrInsecureIdentityFile = errors.New("identity file is readable by group or others")

// Keypair holds an age x25519 keypair.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format. It
	// must never be logged or passed on a command line.
	PrivateKey string

	// PublicKey is the corresponding public key in age1... format,
	// listed under output.recipients in session configs.
	PublicKey string
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating age keypair: %w", err)
	}
	return Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// WriteIdentityFile writes keypair to path in the age-keygen format,
// readable only by its owner. An existing file is never overwritten.
func WriteIdentityFile(path string, keypair Keypair, created time.Time) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	_, err = fmt.Fprintf(file, "# created: %s\n# public key: %s\n%s\n",
		created.UTC().Format(time.RFC3339), keypair.PublicKey, keypair.PrivateKey)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

// ParseRecipients parses age x25519 public keys (age1... format).
// Surrounding whitespace is ignored.
func ParseRecipients(publicKeys []string) ([]age.Recipient, error) {
	if len(publicKeys) == 0 {
		return nil, ErrNoRecipients
	}
	recipients := make([]age.Recipient, 0, len(publicKeys))
	for index, key := range publicKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("recipient %d: invalid age public key: %w", index, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// LoadIdentities reads an identity file as written by age-keygen or
// WriteIdentityFile. The file must not be readable by group or others.
func LoadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("checking identity file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("%s (mode %04o): %w", path, info.Mode().Perm(), ErrInsecureIdentityFile)
	}

	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	return identities, nil
}
