// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api serves the HTTP interface of the raffle node: raffle
// operations, ledger accounts, the development randomness coordinator and
// a websocket stream of raffle events.
package api

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/keeper"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/ethersphere/raffle/pkg/ratelimit"
	"github.com/ethersphere/raffle/pkg/vrf/mock"
	"github.com/libp2p/go-libp2p-core/event"
	"github.com/prometheus/client_golang/prometheus"
	"resenje.org/singleflight"
)

const (
	// DefaultRateLimit is the interval in which a client regains one
	// request on mutating endpoints.
	DefaultRateLimit = 200 * time.Millisecond
	// DefaultRateBurst is the number of mutating requests a client may make
	// at once.
	DefaultRateBurst = 20
)

type Service interface {
	http.Handler
	Metrics() []prometheus.Collector
	io.Closer
}

// Raffle is the raffle the API operates on.
type Raffle interface {
	Address() common.Address
	Status() (raffle.Status, error)
	Enter(ctx context.Context, player common.Address, payment *big.Int) error
	Player(index int) (common.Address, error)
	CheckUpkeep(ctx context.Context, checkData []byte) (bool, []byte, error)
	PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error)
	Reset(ctx context.Context) error
	Rounds() ([]raffle.Round, error)
	Round(number uint64) (raffle.Round, error)
	Subscribe(eventTypes ...interface{}) (event.Subscription, error)
}

// Ledger holds the account balances.
type Ledger interface {
	Balance(account common.Address) (*big.Int, error)
	Mint(account common.Address, amount *big.Int) error
}

// Coordinator is the development randomness coordinator.
type Coordinator interface {
	FulfillRandomWordsWithOverride(ctx context.Context, requestID *big.Int, consumer common.Address, words []*big.Int) (*mock.FulfillResult, error)
	PendingRequests() ([]*big.Int, error)
	Subscription(subID *big.Int) (mock.Subscription, error)
}

// Keeper reports the counters of the upkeep loop.
type Keeper interface {
	Stats() keeper.Stats
}

type server struct {
	Options
	http.Handler
	metrics metrics

	limiter     *ratelimit.Limiter
	statusGroup singleflight.Group

	quit      chan struct{}
	closeOnce sync.Once
	wsWg      sync.WaitGroup
}

type Options struct {
	Raffle Raffle
	Ledger Ledger
	// Coordinator is set on development chains only. The /vrf endpoints
	// answer 404 without it.
	Coordinator     Coordinator
	Keeper          Keeper
	MetricsRegistry *prometheus.Registry
	Logger          logging.Logger
	// CORSAllowedOrigins lists the origins allowed to make cross origin
	// requests and open the event websocket.
	CORSAllowedOrigins []string
	// FaucetAmount is minted by the faucet endpoint. The faucet is
	// disabled when nil.
	FaucetAmount *big.Int
	// AdminEnabled allows the reset endpoint.
	AdminEnabled bool
	RateLimit    time.Duration
	RateBurst    int
}

func New(o Options) Service {
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.RateBurst == 0 {
		o.RateBurst = DefaultRateBurst
	}

	s := &server{
		Options: o,
		metrics: newMetrics(),
		limiter: ratelimit.New(o.RateLimit, o.RateBurst),
		quit:    make(chan struct{}),
	}

	s.setupRouting()

	return s
}

// Close hangs up running websockets on shutdown.
func (s *server) Close() error {
	s.Logger.Info("api shutting down")
	s.closeOnce.Do(func() { close(s.quit) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wsWg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		return errors.New("api shutting down with open websockets")
	}

	return nil
}

// checkOrigin returns true if the origin is not set or is equal to the
// request host.
func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header["Origin"]
	if len(origin) == 0 {
		return true
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	hosts := append([]string{scheme + "://" + r.Host}, s.CORSAllowedOrigins...)
	for _, v := range hosts {
		if equalASCIIFold(origin[0], v) || v == "*" {
			return true
		}
	}

	return false
}

// equalASCIIFold returns true if s is equal to t with ASCII case folding as
// defined in RFC 4790.
func equalASCIIFold(s, t string) bool {
	for s != "" && t != "" {
		sr, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		tr, size := utf8.DecodeRuneInString(t)
		t = t[size:]
		if sr == tr {
			continue
		}
		if 'A' <= sr && sr <= 'Z' {
			sr = sr + 'a' - 'A'
		}
		if 'A' <= tr && tr <= 'Z' {
			tr = tr + 'a' - 'A'
		}
		if sr != tr {
			return false
		}
	}
	return s == t
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseBigInt(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
