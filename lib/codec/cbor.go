// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode = newEncMode()
	decMode = newDecMode()
)

// newEncMode builds the deterministic mode. ShortestFloatNone keeps
// every float64 as a float64 so a frame read back from a log holds the
// exact bits the recorder saw.
func newEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.ShortestFloat = cbor.ShortestFloatNone
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building CBOR encode mode: " + err.Error())
	}
	return mode
}

// newDecMode builds the decode mode. Untyped maps come back as
// map[string]any, the shape encoding/json produces for the same
// fixture, and a repeated map key is an error rather than a silent
// overwrite.
func newDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: building CBOR decode mode: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

type (
	Encoder = cbor.Encoder
	Decoder = cbor.Decoder
)

// NewEncoder writes a sequence of deterministic CBOR items to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder reads a sequence of CBOR items from r. Decode returns
// io.EOF only between items.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
