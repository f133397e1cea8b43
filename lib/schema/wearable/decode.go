// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wearable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/vectorlog/lib/codec"
)

// Format is the encoding of a serialized message.
type Format string

const (
	// FormatJSON accepts JSON with comments and trailing commas.
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatYAML, FormatCBOR:
		return Format(name), nil
	case "jsonc":
		return FormatJSON, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown message format %q (expected json, yaml or cbor)", name)
	}
}

// FormatFromPath infers the format from a file extension: .json and
// .jsonc are JSON, .yaml and .yml are YAML, anything else is CBOR.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatCBOR
	}
}

// Decode parses data as a single message of the given kind.
func Decode(kind Kind, data []byte, format Format) (Message, error) {
	message, err := kind.New()
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		err = json.Unmarshal(jsonc.ToJSON(data), message)
	case FormatYAML:
		err = yaml.Unmarshal(data, message)
	case FormatCBOR:
		err = codec.Unmarshal(data, message)
	default:
		return nil, fmt.Errorf("unknown message format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", format, kind, err)
	}
	return message, nil
}

// StreamDecoder reads a CBOR sequence of messages of one kind, as
// written by a recording middleware tap.
type StreamDecoder struct {
	kind    Kind
	decoder *codec.Decoder
	count   int
}

// NewStreamDecoder returns a decoder that reads messages of kind from r.
func NewStreamDecoder(kind Kind, r io.Reader) (*StreamDecoder, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	return &StreamDecoder{kind: kind, decoder: codec.NewDecoder(r)}, nil
}

// Next returns the next message, or io.EOF when the stream ends
// cleanly.
func (d *StreamDecoder) Next() (Message, error) {
	message, err := d.kind.New()
	if err != nil {
		return nil, err
	}
	if err := d.decoder.Decode(message); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decoding %s message %d: %w", d.kind, d.count, err)
	}
	d.count++
	return message, nil
}

// Count returns the number of messages decoded so far.
func (d *StreamDecoder) Count() int { return d.count }
