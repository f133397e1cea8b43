// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vectors

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/bureau-foundation/vectorlog/lib/codec"
)

func TestCollectionPreservesInsertionOrder(t *testing.T) {
	var collection Collection
	collection.Set("z", []float64{1})
	collection.Set("a", []float64{2})
	collection.Set("m", []float64{3})

	if got, want := collection.Keys(), []string{"z", "a", "m"}; !slices.Equal(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestCollectionSetReplacesInPlace(t *testing.T) {
	collection := NewCollection()
	collection.Set("first", []float64{1})
	collection.Set("second", []float64{2})
	collection.Set("first", []float64{10, 11})

	if got, want := collection.Keys(), []string{"first", "second"}; !slices.Equal(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	values, ok := collection.Get("first")
	if !ok || !slices.Equal(values, []float64{10, 11}) {
		t.Errorf("Get(first) = %v, %v", values, ok)
	}
}

func TestCollectionResetAndClone(t *testing.T) {
	collection := NewCollection()
	collection.Set("a", []float64{1, 2})
	clone := collection.Clone()

	collection.Reset()
	if collection.Len() != 0 {
		t.Fatalf("Len() after Reset = %d", collection.Len())
	}
	if _, ok := collection.Get("a"); ok {
		t.Error("Get after Reset found a stale key")
	}

	values, ok := clone.Get("a")
	if !ok || !slices.Equal(values, []float64{1, 2}) {
		t.Errorf("clone lost its entry: %v, %v", values, ok)
	}
}

func TestCollectionMerge(t *testing.T) {
	left := NewCollection()
	left.Set("robot::a", []float64{1})
	right := NewCollection()
	right.Set("wear::b", []float64{2})
	right.Set("robot::a", []float64{3})

	left.Merge(right)
	if got, want := left.Keys(), []string{"robot::a", "wear::b"}; !slices.Equal(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if values, _ := left.Get("robot::a"); values[0] != 3 {
		t.Errorf("merge did not replace robot::a: %v", values)
	}
}

func TestCollectionRangeStopsEarly(t *testing.T) {
	collection := NewCollection()
	for _, key := range []string{"a", "b", "c"} {
		collection.Set(key, nil)
	}
	var visited []string
	collection.Range(func(key string, _ []float64) bool {
		visited = append(visited, key)
		return key != "b"
	})
	if !slices.Equal(visited, []string{"a", "b"}) {
		t.Errorf("visited = %v", visited)
	}
}

func TestCollectionSerializationKeepsOrder(t *testing.T) {
	collection := NewCollection()
	collection.Set("zeta", []float64{1.5})
	collection.Set("alpha", []float64{})
	collection.Set("mid", []float64{-2, 4})

	t.Run("cbor", func(t *testing.T) {
		data, err := codec.Marshal(collection)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		decoded := NewCollection()
		if err := codec.Unmarshal(data, decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		assertSameCollection(t, decoded, collection)
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(collection)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		decoded := NewCollection()
		if err := json.Unmarshal(data, decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		assertSameCollection(t, decoded, collection)
	})
}

func TestCollectionRejectsDuplicateKeys(t *testing.T) {
	data := []byte(`[{"key":"a","values":[1]},{"key":"a","values":[2]}]`)
	if err := json.Unmarshal(data, NewCollection()); err == nil {
		t.Fatal("expected error for duplicate key")
	}
}

func assertSameCollection(t *testing.T, got, want *Collection) {
	t.Helper()
	if !slices.Equal(got.Keys(), want.Keys()) {
		t.Fatalf("keys = %v, want %v", got.Keys(), want.Keys())
	}
	for _, key := range want.Keys() {
		gotValues, _ := got.Get(key)
		wantValues, _ := want.Get(key)
		if !slices.Equal(gotValues, wantValues) {
			t.Errorf("%s: values = %v, want %v", key, gotValues, wantValues)
		}
	}
}
