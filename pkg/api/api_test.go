// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/api"
	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/ethersphere/raffle/pkg/jsonhttp/jsonhttptest"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/ethersphere/raffle/pkg/statestore/mock"
	vrfmock "github.com/ethersphere/raffle/pkg/vrf/mock"
	"resenje.org/web"
)

var (
	raffleAddress = common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	deployer      = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cfFFb92266")

	entranceFee = big.NewInt(10_000_000_000_000_000) // 0.01 ether
	interval    = 30 * time.Second
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServerOptions struct {
	FaucetAmount       *big.Int
	AdminEnabled       bool
	NoCoordinator      bool
	CORSAllowedOrigins []string
	RateLimit          time.Duration
	RateBurst          int
}

type testServer struct {
	client      *http.Client
	url         string
	raffle      *raffle.Service
	ledger      *ledger.Ledger
	coordinator *vrfmock.Coordinator
	subID       *big.Int
	clock       *clock
}

func newTestServer(t *testing.T, o testServerOptions) *testServer {
	t.Helper()

	logger := logging.New(ioutil.Discard, 0)
	store := mock.NewStateStore()
	l := ledger.New(logger, store)
	c := &clock{now: time.Unix(1_650_000_000, 0)}

	coordinator, err := vrfmock.NewCoordinator(logger, store, vrfmock.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = coordinator.Close() })
	subID, err := coordinator.CreateSubscription(deployer)
	if err != nil {
		t.Fatal(err)
	}
	if err := coordinator.FundSubscription(subID, new(big.Int).Mul(big.NewInt(1000), entranceFee)); err != nil {
		t.Fatal(err)
	}
	if err := coordinator.AddConsumer(subID, raffleAddress); err != nil {
		t.Fatal(err)
	}

	r, err := raffle.New(raffleAddress, logger, store, coordinator, l, raffle.Options{
		EntranceFee:      entranceFee,
		Interval:         interval,
		SubscriptionID:   subID,
		CallbackGasLimit: 500000,
		Now:              c.Now,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	coordinator.BindConsumer(raffleAddress, r)

	ao := api.Options{
		Raffle:             r,
		Ledger:             l,
		Logger:             logger,
		FaucetAmount:       o.FaucetAmount,
		AdminEnabled:       o.AdminEnabled,
		CORSAllowedOrigins: o.CORSAllowedOrigins,
		RateLimit:          o.RateLimit,
		RateBurst:          o.RateBurst,
	}
	if !o.NoCoordinator {
		ao.Coordinator = coordinator
	}
	s := api.New(ao)
	t.Cleanup(func() { _ = s.Close() })

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &testServer{
		client: &http.Client{
			Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				u, err := url.Parse(ts.URL + r.URL.String())
				if err != nil {
					return nil, err
				}
				r.URL = u
				return ts.Client().Transport.RoundTrip(r)
			}),
		},
		url:         ts.URL,
		raffle:      r,
		ledger:      l,
		coordinator: coordinator,
		subID:       subID,
		clock:       c,
	}
}

func player(i int) common.Address {
	return common.HexToAddress(fmt.Sprintf("0x%040x", 0x1000+i))
}

// enter funds the player and enters the raffle with the entrance fee.
func (ts *testServer) enter(t *testing.T, p common.Address) {
	t.Helper()

	if err := ts.ledger.Mint(p, new(big.Int).Mul(big.NewInt(10), entranceFee)); err != nil {
		t.Fatal(err)
	}
	if err := ts.raffle.Enter(context.Background(), p, entranceFee); err != nil {
		t.Fatal(err)
	}
}

// calculate enters n players, lets the interval pass and performs the
// upkeep. The request id is returned.
func (ts *testServer) calculate(t *testing.T, n int) *big.Int {
	t.Helper()

	for i := 0; i < n; i++ {
		ts.enter(t, player(i))
	}
	ts.clock.Advance(interval)
	id, err := ts.raffle.PerformUpkeep(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func statusResponse(code int, message string) jsonhttp.StatusResponse {
	return jsonhttp.StatusResponse{
		Message: message,
		Code:    code,
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	jsonhttptest.Request(t, ts.client, http.MethodGet, "/nope", http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(statusResponse(http.StatusNotFound, http.StatusText(http.StatusNotFound))),
	)
	jsonhttptest.Request(t, ts.client, http.MethodDelete, "/raffle", http.StatusMethodNotAllowed)
}

func TestCORS(t *testing.T) {
	const origin = "http://localhost:3000"

	for _, tc := range []struct {
		name    string
		allowed []string
		want    string
	}{
		{name: "allowed", allowed: []string{origin}, want: origin},
		{name: "wildcard", allowed: []string{"*"}, want: origin},
		{name: "not allowed", allowed: []string{"http://example.com"}, want: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, testServerOptions{CORSAllowedOrigins: tc.allowed})

			header := jsonhttptest.Request(t, ts.client, http.MethodGet, "/raffle", http.StatusOK,
				jsonhttptest.WithRequestHeader("Origin", origin),
			)
			if got := header.Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("got allowed origin %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, testServerOptions{
		FaucetAmount: entranceFee,
		RateLimit:    time.Hour,
		RateBurst:    1,
	})

	faucet := "/accounts/" + player(0).Hex() + "/faucet"
	jsonhttptest.Request(t, ts.client, http.MethodPost, faucet, http.StatusOK)
	jsonhttptest.Request(t, ts.client, http.MethodPost, faucet, http.StatusTooManyRequests,
		jsonhttptest.WithExpectedJSONResponse(statusResponse(http.StatusTooManyRequests, "too many requests")),
	)

	// reads are not limited
	jsonhttptest.Request(t, ts.client, http.MethodGet, "/raffle", http.StatusOK)
}
