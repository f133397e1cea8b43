// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversion

import "strings"

// DefaultDelimiter separates key path segments.
const DefaultDelimiter = "::"

// Options configures a conversion call.
type Options struct {
	// Delimiter is placed between the prefix and each segment.
	Delimiter string
}

// Option modifies Options.
type Option func(*Options)

// WithDelimiter overrides the key path delimiter. An empty delimiter
// is ignored.
func WithDelimiter(delimiter string) Option {
	return func(options *Options) {
		if delimiter != "" {
			options.Delimiter = delimiter
		}
	}
}

func resolveOptions(opts []Option) Options {
	options := Options{Delimiter: DefaultDelimiter}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// KeyPath returns prefix followed by each segment, each preceded by
// delimiter. An empty prefix still takes its delimiter, so
// KeyPath("::", "", "jointPositions") is "::jointPositions".
func KeyPath(delimiter, prefix string, segments ...string) string {
	var builder strings.Builder
	size := len(prefix)
	for _, segment := range segments {
		size += len(delimiter) + len(segment)
	}
	builder.Grow(size)

	builder.WriteString(prefix)
	for _, segment := range segments {
		builder.WriteString(delimiter)
		builder.WriteString(segment)
	}
	return builder.String()
}

// SplitKey is the inverse of KeyPath for keys whose segments do not
// themselves contain the delimiter.
func SplitKey(delimiter, key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, delimiter)
}
