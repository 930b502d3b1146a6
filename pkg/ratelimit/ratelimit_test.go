// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratelimit_test

import (
	"testing"
	"time"

	"github.com/ethersphere/raffle/pkg/ratelimit"
)

func TestRateLimit(t *testing.T) {
	var (
		key1  = "127.0.0.1"
		key2  = "10.0.0.1"
		rate  = time.Second
		burst = 10
	)

	limiter := ratelimit.New(rate, burst)

	if !limiter.Allow(key1, burst) {
		t.Fatal("first burst refused")
	}

	if limiter.Allow(key1, burst) {
		t.Fatal("want rate limit exceeded")
	}

	limiter.Clear(key1)

	if !limiter.Allow(key1, burst) {
		t.Fatal("burst refused after clear")
	}

	if !limiter.Allow(key2, burst) {
		t.Fatal("other key limited")
	}
}

func TestRefill(t *testing.T) {
	now := time.Unix(1_650_000_000, 0)
	limiter := ratelimit.New(time.Second, 1)
	limiter.SetTimeFunc(func() time.Time { return now })

	if !limiter.Allow("a", 1) {
		t.Fatal("first request refused")
	}
	if limiter.Allow("a", 1) {
		t.Fatal("second request allowed before refill")
	}

	now = now.Add(time.Second)
	if !limiter.Allow("a", 1) {
		t.Fatal("request refused after refill")
	}
}

func TestPrune(t *testing.T) {
	now := time.Unix(1_650_000_000, 0)
	limiter := ratelimit.New(time.Second, 1)
	limiter.SetTimeFunc(func() time.Time { return now })

	limiter.Allow("old", 1)
	now = now.Add(time.Minute)
	limiter.Allow("new", 1)

	if n := limiter.Prune(30 * time.Second); n != 1 {
		t.Fatalf("got %d pruned, want 1", n)
	}
	if n := limiter.Len(); n != 1 {
		t.Fatalf("got %d keys, want 1", n)
	}
}
