// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"
)

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if !strings.HasPrefix(keypair.PrivateKey, "AGE-SECRET-KEY-1") {
		t.Errorf("private key has unexpected format")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("public key %q has unexpected format", keypair.PublicKey)
	}

	other, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	if other.PublicKey == keypair.PublicKey {
		t.Error("two keypairs share a public key")
	}
}

func TestIdentityFileRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.txt")
	if err := WriteIdentityFile(path, keypair, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteIdentityFile: %v", err)
	}
	if err := WriteIdentityFile(path, keypair, time.Now()); !errors.Is(err, os.ErrExist) {
		t.Errorf("second WriteIdentityFile: got %v, want os.ErrExist", err)
	}

	recipients, err := ParseRecipients([]string{" " + keypair.PublicKey + "\n"})
	if err != nil {
		t.Fatalf("ParseRecipients: %v", err)
	}
	identities, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		t.Fatalf("age.Encrypt: %v", err)
	}
	writer.Write([]byte("frame"))
	if err := writer.Close(); err != nil {
		t.Fatalf("closing encryptor: %v", err)
	}
	reader, err := age.Decrypt(&ciphertext, identities...)
	if err != nil {
		t.Fatalf("age.Decrypt: %v", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil || string(plaintext) != "frame" {
		t.Errorf("decrypted %q, %v", plaintext, err)
	}
}

func TestLoadIdentitiesRejectsReadableFile(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.txt")
	if err := WriteIdentityFile(path, keypair, time.Now()); err != nil {
		t.Fatalf("WriteIdentityFile: %v", err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if _, err := LoadIdentities(path); !errors.Is(err, ErrInsecureIdentityFile) {
		t.Errorf("got %v, want ErrInsecureIdentityFile", err)
	}
}

func TestParseRecipientsErrors(t *testing.T) {
	if _, err := ParseRecipients(nil); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("empty list: got %v, want ErrNoRecipients", err)
	}
	if _, err := ParseRecipients([]string{"age1notakey"}); err == nil {
		t.Error("malformed key accepted")
	}
}
