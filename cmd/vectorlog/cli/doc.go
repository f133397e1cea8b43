// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the vectorlog
// binary: a tree of [Command] values dispatched by name, pflag-based
// flag parsing with typo suggestions, structured help, and the
// logger and JSON output helpers shared by every command.
package cli
