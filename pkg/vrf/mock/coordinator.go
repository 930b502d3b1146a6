// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mock provides an in-process randomness coordinator for
// development chains and tests. It keeps subscriptions, their balances and
// consumers, and answers requests either on demand or periodically.
package mock

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/vrf"
)

const (
	subscriptionKeyPrefix = "vrf_subscription_"
	requestKeyPrefix      = "vrf_request_"
	countersKey           = "vrf_counters"
)

var (
	// ErrInvalidRandomWords is returned when an override carries a different
	// number of words than the request asked for.
	ErrInvalidRandomWords = errors.New("vrf: invalid random words")
	// ErrConsumerNotBound is returned when no callback is registered for the
	// consumer address of a request.
	ErrConsumerNotBound = errors.New("vrf: consumer callback not bound")

	oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

var _ vrf.Coordinator = (*Coordinator)(nil)

// Options configure the fee model of the coordinator.
type Options struct {
	// Address the coordinator is reachable at.
	Address common.Address
	// BaseFee is charged for every fulfilled request.
	BaseFee *big.Int
	// GasPrice is charged per unit of callback gas limit.
	GasPrice *big.Int
	// WeiPerUnitLink converts the gas cost to the subscription currency.
	WeiPerUnitLink *big.Int
}

// Subscription is a prepaid account that pays for randomness requests.
type Subscription struct {
	ID        *big.Int         `json:"id"`
	Owner     common.Address   `json:"owner"`
	Balance   *big.Int         `json:"balance"`
	ReqCount  uint64           `json:"reqCount"`
	Consumers []common.Address `json:"consumers"`
}

func (s *Subscription) hasConsumer(consumer common.Address) bool {
	for _, c := range s.Consumers {
		if c == consumer {
			return true
		}
	}
	return false
}

type request struct {
	ID               *big.Int       `json:"id"`
	SubscriptionID   *big.Int       `json:"subscriptionId"`
	CallbackGasLimit uint32         `json:"callbackGasLimit"`
	NumWords         uint32         `json:"numWords"`
	Consumer         common.Address `json:"consumer"`
}

type counters struct {
	Subscriptions uint64 `json:"subscriptions"`
	Requests      uint64 `json:"requests"`
}

// FulfillResult describes a fulfilment the coordinator has performed.
type FulfillResult struct {
	RequestID *big.Int
	Words     []*big.Int
	Payment   *big.Int
	// Success reports whether the consumer accepted the words. The request
	// is consumed and paid for either way.
	Success bool
	// Err is the error returned by the consumer callback, if any.
	Err error
}

// Coordinator is an in-process vrf.Coordinator.
type Coordinator struct {
	logger  logging.Logger
	metrics metrics
	store   storage.StateStorer
	options Options

	mu        sync.Mutex
	counters  counters
	callbacks map[common.Address]vrf.Consumer

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewCoordinator loads the coordinator state from the store.
func NewCoordinator(logger logging.Logger, store storage.StateStorer, o Options) (*Coordinator, error) {
	if o.BaseFee == nil {
		o.BaseFee = big.NewInt(0)
	}
	if o.GasPrice == nil {
		o.GasPrice = big.NewInt(1)
	}
	if o.WeiPerUnitLink == nil || o.WeiPerUnitLink.Sign() <= 0 {
		o.WeiPerUnitLink = new(big.Int).Set(oneEther)
	}

	c := &Coordinator{
		logger:    logger,
		metrics:   newMetrics(),
		store:     store,
		options:   o,
		callbacks: make(map[common.Address]vrf.Consumer),
		quit:      make(chan struct{}),
	}

	err := store.Get(countersKey, &c.counters)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load counters: %w", err)
	}

	return c, nil
}

// Address returns the address the coordinator was deployed at.
func (c *Coordinator) Address() common.Address {
	return c.options.Address
}

// CreateSubscription opens a new empty subscription owned by owner.
func (c *Coordinator) CreateSubscription(owner common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.counters
	next.Subscriptions++
	sub := &Subscription{
		ID:        new(big.Int).SetUint64(next.Subscriptions),
		Owner:     owner,
		Balance:   big.NewInt(0),
		Consumers: []common.Address{},
	}

	if err := c.store.Put(subscriptionKey(sub.ID), sub); err != nil {
		return nil, err
	}
	if err := c.store.Put(countersKey, next); err != nil {
		return nil, err
	}
	c.counters = next

	c.metrics.SubscriptionsCreated.Inc()
	c.logger.Debugf("vrf: subscription %s created for %s", sub.ID, owner)

	return new(big.Int).Set(sub.ID), nil
}

// FundSubscription adds amount to the subscription balance.
func (c *Coordinator) FundSubscription(subID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return vrf.ErrInvalidAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.subscription(subID)
	if err != nil {
		return err
	}

	sub.Balance = new(big.Int).Add(sub.Balance, amount)
	if err := c.store.Put(subscriptionKey(sub.ID), sub); err != nil {
		return err
	}

	c.logger.Debugf("vrf: subscription %s funded with %s, balance %s", sub.ID, amount, sub.Balance)
	return nil
}

// AddConsumer allows consumer to request randomness paid by the
// subscription. Adding an existing consumer is a no-op.
func (c *Coordinator) AddConsumer(subID *big.Int, consumer common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.subscription(subID)
	if err != nil {
		return err
	}

	if sub.hasConsumer(consumer) {
		return nil
	}

	sub.Consumers = append(sub.Consumers, consumer)
	if err := c.store.Put(subscriptionKey(sub.ID), sub); err != nil {
		return err
	}

	c.logger.Debugf("vrf: consumer %s added to subscription %s", consumer, sub.ID)
	return nil
}

// RemoveConsumer revokes the consumer from the subscription.
func (c *Coordinator) RemoveConsumer(subID *big.Int, consumer common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.subscription(subID)
	if err != nil {
		return err
	}

	for i, a := range sub.Consumers {
		if a == consumer {
			sub.Consumers = append(sub.Consumers[:i], sub.Consumers[i+1:]...)
			return c.store.Put(subscriptionKey(sub.ID), sub)
		}
	}

	return vrf.ErrInvalidConsumer
}

// Subscription returns a copy of the subscription state.
func (c *Coordinator) Subscription(subID *big.Int) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.subscription(subID)
	if err != nil {
		return Subscription{}, err
	}
	return *sub, nil
}

// BindConsumer attaches the callback that receives words delivered to the
// consumer address.
func (c *Coordinator) BindConsumer(consumer common.Address, callback vrf.Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callbacks[consumer] = callback
}

// RequestRandomWords implements vrf.Coordinator.
func (c *Coordinator) RequestRandomWords(_ context.Context, req vrf.Request) (*big.Int, error) {
	if req.NumWords > vrf.MaxNumWords {
		return nil, vrf.ErrNumWordsTooBig
	}
	if req.SubscriptionID == nil {
		return nil, vrf.ErrInvalidSubscription
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.subscription(req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.hasConsumer(req.Consumer) {
		return nil, vrf.ErrInvalidConsumer
	}

	next := c.counters
	next.Requests++
	r := &request{
		ID:               new(big.Int).SetUint64(next.Requests),
		SubscriptionID:   new(big.Int).Set(sub.ID),
		CallbackGasLimit: req.CallbackGasLimit,
		NumWords:         req.NumWords,
		Consumer:         req.Consumer,
	}

	if err := c.store.Put(requestKey(r.ID), r); err != nil {
		return nil, err
	}
	if err := c.store.Put(countersKey, next); err != nil {
		return nil, err
	}
	c.counters = next

	c.metrics.RequestsReceived.Inc()
	c.logger.Debugf("vrf: random words requested, request %s, subscription %s, consumer %s", r.ID, sub.ID, r.Consumer)

	return new(big.Int).Set(r.ID), nil
}

// PendingRequests lists the identifiers of requests awaiting fulfilment in
// ascending order.
func (c *Coordinator) PendingRequests() ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []*big.Int
	err := c.store.Iterate(requestKeyPrefix, func(key, _ []byte) (bool, error) {
		id, ok := new(big.Int).SetString(strings.TrimPrefix(string(key), requestKeyPrefix), 10)
		if !ok {
			return true, fmt.Errorf("invalid request key %q", key)
		}
		ids = append(ids, id)
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })
	return ids, nil
}

// FulfillRandomWords answers the request with words derived from its
// identifier.
func (c *Coordinator) FulfillRandomWords(ctx context.Context, requestID *big.Int, consumer common.Address) (*FulfillResult, error) {
	return c.FulfillRandomWordsWithOverride(ctx, requestID, consumer, nil)
}

// FulfillRandomWordsWithOverride answers the request with the given words.
// When words is empty they are derived from the request identifier.
func (c *Coordinator) FulfillRandomWordsWithOverride(ctx context.Context, requestID *big.Int, consumer common.Address, words []*big.Int) (*FulfillResult, error) {
	if requestID == nil {
		return nil, vrf.ErrNonexistentRequest
	}

	c.mu.Lock()
	r, err := c.request(requestID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if r.Consumer != consumer {
		c.mu.Unlock()
		return nil, vrf.ErrInvalidConsumer
	}
	callback, ok := c.callbacks[consumer]
	if !ok {
		c.mu.Unlock()
		return nil, ErrConsumerNotBound
	}

	if len(words) == 0 {
		words = deriveWords(r.ID, r.NumWords)
	} else if len(words) != int(r.NumWords) {
		c.mu.Unlock()
		return nil, ErrInvalidRandomWords
	}

	sub, err := c.subscription(r.SubscriptionID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	payment := c.payment(r.CallbackGasLimit)
	if sub.Balance.Cmp(payment) < 0 {
		c.mu.Unlock()
		return nil, vrf.ErrInsufficientBalance
	}

	sub.Balance = new(big.Int).Sub(sub.Balance, payment)
	sub.ReqCount++
	if err := c.store.Put(subscriptionKey(sub.ID), sub); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.store.Delete(requestKey(r.ID)); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	// the callback runs without the lock held as consumers may request
	// again from inside it
	cbErr := callback.FulfillRandomWords(ctx, new(big.Int).Set(r.ID), copyWords(words))

	result := &FulfillResult{
		RequestID: new(big.Int).Set(r.ID),
		Words:     copyWords(words),
		Payment:   payment,
		Success:   cbErr == nil,
		Err:       cbErr,
	}

	c.metrics.RequestsFulfilled.Inc()
	if cbErr != nil {
		c.metrics.CallbackErrors.Inc()
		c.logger.Warningf("vrf: consumer %s rejected fulfilment of request %s: %v", consumer, r.ID, cbErr)
	} else {
		c.logger.Debugf("vrf: request %s fulfilled, payment %s", r.ID, payment)
	}

	return result, nil
}

// Start fulfils every pending request on each tick until Close is called.
func (c *Coordinator) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-c.quit
			cancel()
		}()

		for {
			select {
			case <-c.quit:
				return
			case <-ticker.C:
			}

			ids, err := c.PendingRequests()
			if err != nil {
				c.logger.Errorf("vrf: list pending requests: %v", err)
				continue
			}
			for _, id := range ids {
				c.mu.Lock()
				r, err := c.request(id)
				c.mu.Unlock()
				if err != nil {
					continue
				}
				if _, err := c.FulfillRandomWords(ctx, id, r.Consumer); err != nil {
					c.logger.Debugf("vrf: auto fulfil request %s: %v", id, err)
				}
			}
		}
	}()
}

// Close stops the auto fulfilment loop started with Start.
func (c *Coordinator) Close() error {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	c.wg.Wait()
	return nil
}

func (c *Coordinator) payment(callbackGasLimit uint32) *big.Int {
	gas := new(big.Int).Mul(c.options.GasPrice, new(big.Int).SetUint64(uint64(callbackGasLimit)))
	gas.Mul(gas, oneEther)
	gas.Quo(gas, c.options.WeiPerUnitLink)
	return gas.Add(gas, c.options.BaseFee)
}

func (c *Coordinator) subscription(subID *big.Int) (*Subscription, error) {
	if subID == nil {
		return nil, vrf.ErrInvalidSubscription
	}
	sub := new(Subscription)
	if err := c.store.Get(subscriptionKey(subID), sub); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, vrf.ErrInvalidSubscription
		}
		return nil, err
	}
	return sub, nil
}

func (c *Coordinator) request(requestID *big.Int) (*request, error) {
	r := new(request)
	if err := c.store.Get(requestKey(requestID), r); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, vrf.ErrNonexistentRequest
		}
		return nil, err
	}
	return r, nil
}

// deriveWords returns keccak256(requestID, i) for every requested word.
func deriveWords(requestID *big.Int, n uint32) []*big.Int {
	words := make([]*big.Int, n)
	for i := range words {
		h := crypto.Keccak256(
			common.LeftPadBytes(requestID.Bytes(), 32),
			common.LeftPadBytes(big.NewInt(int64(i)).Bytes(), 32),
		)
		words[i] = new(big.Int).SetBytes(h)
	}
	return words
}

func copyWords(words []*big.Int) []*big.Int {
	c := make([]*big.Int, len(words))
	for i, w := range words {
		c[i] = new(big.Int).Set(w)
	}
	return c
}

func subscriptionKey(id *big.Int) string {
	return subscriptionKeyPrefix + id.String()
}

func requestKey(id *big.Int) string {
	return requestKeyPrefix + id.String()
}
