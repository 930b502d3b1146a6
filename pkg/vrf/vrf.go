// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrf defines the boundary between the raffle and a verifiable
// randomness coordinator. A consumer submits a Request to a Coordinator and
// receives the random words later through its FulfillRandomWords callback.
package vrf

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxNumWords is the largest number of words a single request may ask for.
const MaxNumWords = 500

var (
	ErrInvalidSubscription = errors.New("vrf: invalid subscription")
	ErrInvalidConsumer     = errors.New("vrf: invalid consumer")
	ErrNonexistentRequest  = errors.New("vrf: nonexistent request")
	ErrInsufficientBalance = errors.New("vrf: insufficient balance")
	ErrNumWordsTooBig      = errors.New("vrf: num words too big")
	ErrInvalidAmount       = errors.New("vrf: invalid amount")
)

// Request carries the parameters of a randomness request.
type Request struct {
	KeyHash              common.Hash
	SubscriptionID       *big.Int
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	// Consumer is the address the words are delivered to. It must be
	// registered on the subscription.
	Consumer common.Address
}

// Coordinator accepts randomness requests and answers them asynchronously.
type Coordinator interface {
	// RequestRandomWords registers the request and returns its identifier.
	RequestRandomWords(ctx context.Context, req Request) (requestID *big.Int, err error)
}

// Consumer is the receiving end of a fulfilled request. The coordinator
// calls FulfillRandomWords at most once per request identifier.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, requestID *big.Int, randomWords []*big.Int) error
}
