// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed manages the age keys that protect encrypted vector
// logs. It wraps filippo.io/age for the operations vectorlog needs:
// generate x25519 keypairs, parse recipient lists from configuration,
// and load identity files for reading.
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair
//   - [WriteIdentityFile] -- store a private key with owner-only permissions
//   - [ParseRecipients] -- age1... public keys to age.Recipient values
//   - [LoadIdentities] -- identity file to age.Identity values
package sealed
