// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bigint marshals wei amounts and identifiers as decimal JSON
// strings so that clients do not lose precision.
package bigint

import (
	"encoding/json"
	"fmt"
	"math/big"
)

type BigInt struct {
	big.Int
}

func (i BigInt) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, i.String())), nil
}

func (i *BigInt) UnmarshalJSON(b []byte) error {
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}

	if _, ok := i.SetString(val, 10); !ok {
		return fmt.Errorf("bigint: invalid decimal %q", val)
	}
	return nil
}

func NewBigInt(x int64) *BigInt {
	b := new(BigInt)
	b.SetInt64(x)
	return b
}

// Wrap returns a copy of i, nil when i is nil.
func Wrap(i *big.Int) *BigInt {
	if i == nil {
		return nil
	}
	b := new(BigInt)
	b.Set(i)
	return b
}

// Unwrap returns the value as a *big.Int, nil when i is nil.
func (i *BigInt) Unwrap() *big.Int {
	if i == nil {
		return nil
	}
	return new(big.Int).Set(&i.Int)
}
