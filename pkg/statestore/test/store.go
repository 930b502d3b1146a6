// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package test holds a suite shared by every storage.StateStorer
// implementation.
package test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/google/go-cmp/cmp"
)

const (
	key1 = "key1" // stores the serialized type
	key2 = "key2" // stores a json array
)

var (
	value1 = &Serializing{value: "value1"}
	value2 = []string{"a", "b", "c"}
)

type Serializing struct {
	value           string
	marshalCalled   bool
	unmarshalCalled bool
}

func (st *Serializing) MarshalBinary() (data []byte, err error) {
	d := []byte(st.value)
	st.marshalCalled = true

	return d, nil
}

func (st *Serializing) UnmarshalBinary(data []byte) (err error) {
	st.value = string(data)
	st.unmarshalCalled = true
	return nil
}

// Run executes the suite against stores created by f.
func Run(t *testing.T, f func(t *testing.T) storage.StateStorer) {
	t.Helper()

	t.Run("put get", func(t *testing.T) {
		store := f(t)
		insertValues(t, store)
		testPersistedValues(t, store)
	})

	t.Run("iterate", func(t *testing.T) {
		testStoreIterator(t, f(t))
	})

	t.Run("delete", func(t *testing.T) {
		testDelete(t, f(t))
	})
}

// RunPersist checks that values survive closing and reopening a store
// rooted at the same directory.
func RunPersist(t *testing.T, f func(t *testing.T, dir string) storage.StateStorer) {
	t.Helper()

	dir := t.TempDir()

	store := f(t, dir)
	insertValues(t, store)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store = f(t, dir)
	defer store.Close()
	testPersistedValues(t, store)
}

func insertValues(t *testing.T, store storage.StateStorer) {
	t.Helper()

	value1.marshalCalled = false
	if err := store.Put(key1, value1); err != nil {
		t.Fatal(err)
	}

	if !value1.marshalCalled {
		t.Fatal("binaryMarshaller not called on serialized type")
	}

	if err := store.Put(key2, value2); err != nil {
		t.Fatal(err)
	}
}

func testPersistedValues(t *testing.T, store storage.StateStorer) {
	t.Helper()

	v := &Serializing{}
	if err := store.Get(key1, v); err != nil {
		t.Fatal(err)
	}

	if !v.unmarshalCalled {
		t.Fatal("unmarshaler not called")
	}

	if v.value != value1.value {
		t.Fatalf("expected persisted to be %s but got %s", value1.value, v.value)
	}

	s := []string{}
	if err := store.Get(key2, &s); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(value2, s); diff != "" {
		t.Fatalf("deserialized data mismatch (-want +got):\n%s", diff)
	}
}

func testStoreIterator(t *testing.T, store storage.StateStorer) {
	t.Helper()

	storePrefix := "raffle_round_"
	for k, v := range map[string]string{
		storePrefix + "1": "value1",
		"ledger_balance_": "value2",
		storePrefix + "3": "value3",
	} {
		if err := store.Put(k, v); err != nil {
			t.Fatal(err)
		}
	}

	entries := make(map[string]string)
	var order []string

	err := store.Iterate(storePrefix, func(key []byte, value []byte) (stop bool, err error) {
		var entry string
		if err := json.Unmarshal(value, &entry); err != nil {
			return true, err
		}
		entries[string(key)] = entry
		order = append(order, string(key))
		return false, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		storePrefix + "1": "value1",
		storePrefix + "3": "value3",
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("iterated entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{storePrefix + "1", storePrefix + "3"}, order); diff != "" {
		t.Fatalf("iteration order mismatch (-want +got):\n%s", diff)
	}
}

func testDelete(t *testing.T, store storage.StateStorer) {
	t.Helper()

	if err := store.Put(key2, value2); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(key2); err != nil {
		t.Fatal(err)
	}

	var s []string
	if err := store.Get(key2, &s); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}
