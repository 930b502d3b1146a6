// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keeper triggers raffle upkeeps. It periodically asks the raffle
// whether an upkeep is needed and performs it when it is. Randomness
// requests that stay unanswered for too long are abandoned.
package keeper

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/raffle"
	"go.uber.org/atomic"
)

const DefaultCheckInterval = 5 * time.Second

// Raffle is the part of the raffle the keeper drives.
type Raffle interface {
	CheckUpkeep(ctx context.Context, checkData []byte) (bool, []byte, error)
	PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error)
	State() raffle.State
	RequestedAt() time.Time
	Reset(ctx context.Context) error
}

var _ Raffle = (*raffle.Service)(nil)

type Options struct {
	// CheckInterval is the time between two upkeep checks.
	CheckInterval time.Duration
	// RequestTimeout abandons requests that are pending for longer. Zero
	// waits forever.
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Stats are the keeper counters since start.
type Stats struct {
	Checks    uint64    `json:"checks"`
	Performed uint64    `json:"performed"`
	Resets    uint64    `json:"resets"`
	Errors    uint64    `json:"errors"`
	LastCheck time.Time `json:"lastCheck"`
}

type Keeper struct {
	logger  logging.Logger
	metrics metrics
	raffle  Raffle
	options Options

	checks    atomic.Uint64
	performed atomic.Uint64
	resets    atomic.Uint64
	failures  atomic.Uint64
	lastCheck atomic.Int64

	quit chan struct{}
	wg   sync.WaitGroup
}

// New starts a keeper for the raffle.
func New(logger logging.Logger, r Raffle, o Options) *Keeper {
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	k := &Keeper{
		logger:  logger,
		metrics: newMetrics(),
		raffle:  r,
		options: o,
		quit:    make(chan struct{}),
	}

	k.wg.Add(1)
	go k.start()

	return k
}

func (k *Keeper) start() {
	defer k.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-k.quit
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(k.options.CheckInterval):
		}

		if err := k.check(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			k.failures.Inc()
			k.metrics.Errors.Inc()
			k.logger.Errorf("keeper: %v", err)
		}
	}
}

// check runs a single upkeep cycle.
func (k *Keeper) check(ctx context.Context) error {
	k.checks.Inc()
	k.metrics.Checks.Inc()
	k.lastCheck.Store(k.options.Now().UnixNano())

	if k.options.RequestTimeout > 0 && k.raffle.State() == raffle.StateCalculating {
		requestedAt := k.raffle.RequestedAt()
		if !requestedAt.IsZero() && k.options.Now().Sub(requestedAt) >= k.options.RequestTimeout {
			if err := k.raffle.Reset(ctx); err != nil {
				// the request may have been answered in the meantime
				if errors.Is(err, raffle.ErrNotCalculating) {
					return nil
				}
				return err
			}
			k.resets.Inc()
			k.metrics.Resets.Inc()
			k.logger.Warningf("keeper: randomness request pending since %s abandoned", requestedAt.Format(time.RFC3339))
			return nil
		}
	}

	needed, performData, err := k.raffle.CheckUpkeep(ctx, nil)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}

	requestID, err := k.raffle.PerformUpkeep(ctx, performData)
	if err != nil {
		// a concurrent caller closed the round first
		var notNeeded *raffle.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			k.logger.Debugf("keeper: %v", err)
			return nil
		}
		return err
	}

	k.performed.Inc()
	k.metrics.Performed.Inc()
	k.logger.Infof("keeper: upkeep performed, request %s", requestID)
	return nil
}

// Stats returns the keeper counters.
func (k *Keeper) Stats() Stats {
	s := Stats{
		Checks:    k.checks.Load(),
		Performed: k.performed.Load(),
		Resets:    k.resets.Load(),
		Errors:    k.failures.Load(),
	}
	if n := k.lastCheck.Load(); n != 0 {
		s.LastCheck = time.Unix(0, n)
	}
	return s
}

// Close stops the loop and waits for a running check to finish.
func (k *Keeper) Close() error {
	close(k.quit)

	stopped := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("keeper: stopping with running upkeep check")
	}
}
