// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration of a recording session.
//
// Configuration is loaded from a single file specified by either the
// VECTORLOG_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks and no automatic file
// search.
//
// After loading, ${HOME}, ${VECTORLOG_CONFIG_DIR} and ${VAR:-default}
// patterns are expanded in path fields, and relative paths are
// resolved against the directory holding the config file. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- output, delimiter, buffering and the source list
//   - [Default] -- returns a Config with every optional field set
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every problem at once
package config
