// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bigint_test

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethersphere/raffle/pkg/bigint"
)

func TestMarshaling(t *testing.T) {
	mar, err := json.Marshal(struct {
		Bg *bigint.BigInt
	}{
		Bg: bigint.Wrap(new(big.Int).Mul(big.NewInt(math.MaxInt64), big.NewInt(math.MaxInt64))),
	})
	if err != nil {
		t.Errorf("Marshaling failed: %v", err)
	}
	if !reflect.DeepEqual(mar, []byte("{\"Bg\":\"85070591730234615847396907784232501249\"}")) {
		t.Errorf("Wrongly marshaled data")
	}
}

func TestUnmarshaling(t *testing.T) {
	var v struct {
		Value *bigint.BigInt `json:"value"`
	}
	if err := json.Unmarshal([]byte(`{"value":"10000000000000000"}`), &v); err != nil {
		t.Fatal(err)
	}
	if got := v.Value.Unwrap(); got.Cmp(big.NewInt(10_000_000_000_000_000)) != 0 {
		t.Fatalf("got %s", got)
	}

	if err := json.Unmarshal([]byte(`{"value":"0.01"}`), &v); err == nil {
		t.Fatal("expected error for non integer value")
	}
	if err := json.Unmarshal([]byte(`{"value":1}`), &v); err == nil {
		t.Fatal("expected error for number value")
	}
}

func TestNil(t *testing.T) {
	if bigint.Wrap(nil) != nil {
		t.Fatal("wrapped nil is not nil")
	}
	var b *bigint.BigInt
	if b.Unwrap() != nil {
		t.Fatal("unwrapped nil is not nil")
	}
}
