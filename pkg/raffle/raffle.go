// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package raffle implements a recurring raffle. Players pay an entrance fee
// to enter the current round. Once the round interval has elapsed an upkeep
// call requests random words from a vrf.Coordinator and, when the words are
// delivered, the whole balance is paid out to the winner and a new round
// opens.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/vrf"
	lru "github.com/hashicorp/golang-lru"
	"github.com/libp2p/go-libp2p-core/event"
)

const (
	roundCacheSize = 128

	// DefaultRequestConfirmations is the number of confirmations the
	// coordinator waits for before answering.
	DefaultRequestConfirmations = 3
	// DefaultNumWords is the number of random words requested per round.
	DefaultNumWords = 1
)

var (
	ErrNotEnoughETHEntered   = errors.New("raffle: not enough eth entered")
	ErrNotOpen               = errors.New("raffle: not open")
	ErrTransferFailed        = errors.New("raffle: transfer failed")
	ErrUnknownRequest        = errors.New("raffle: unknown randomness request")
	ErrNoRandomWords         = errors.New("raffle: no random words")
	ErrNotCalculating        = errors.New("raffle: not calculating")
	ErrPlayerIndexOutOfRange = errors.New("raffle: player index out of range")
	ErrRoundNotFound         = errors.New("raffle: round not found")
)

// State is the lifecycle state of the raffle.
type State uint8

const (
	// StateOpen accepts entries and may be closed by an upkeep.
	StateOpen State = iota
	// StateCalculating waits for the randomness request to be fulfilled.
	StateCalculating
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCalculating:
		return "calculating"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// UpkeepNotNeededError is returned by PerformUpkeep when CheckUpkeep would
// report that no upkeep is needed. It carries the values the decision was
// based on.
type UpkeepNotNeededError struct {
	Balance    *big.Int
	NumPlayers int
	State      State
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("raffle: upkeep not needed: balance %s, players %d, state %s", e.Balance, e.NumPlayers, e.State)
}

// Options hold the fixed configuration of a raffle.
type Options struct {
	EntranceFee          *big.Int
	Interval             time.Duration
	KeyHash              common.Hash
	SubscriptionID       *big.Int
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32
	// Bus receives the raffle events. A new bus is created when nil.
	Bus event.Bus
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// Service is a raffle hosted at a ledger address. All methods are safe for
// concurrent use.
type Service struct {
	logger      logging.Logger
	metrics     metrics
	store       storage.StateStorer
	coordinator vrf.Coordinator
	ledger      ledger.Service
	events      *emitters
	rounds      *lru.Cache
	now         func() time.Time

	address              common.Address
	entranceFee          *big.Int
	interval             time.Duration
	keyHash              common.Hash
	subscriptionID       *big.Int
	callbackGasLimit     uint32
	requestConfirmations uint16
	numWords             uint32

	mu    sync.Mutex
	state *snapshot
}

// New creates the raffle at address, continuing from the state stored for
// that address if there is one.
func New(
	address common.Address,
	logger logging.Logger,
	store storage.StateStorer,
	coordinator vrf.Coordinator,
	ledgerService ledger.Service,
	o Options,
) (*Service, error) {
	if o.EntranceFee == nil || o.EntranceFee.Sign() < 0 {
		return nil, errors.New("raffle: invalid entrance fee")
	}
	if o.Interval < 0 {
		return nil, errors.New("raffle: invalid interval")
	}
	if o.SubscriptionID == nil {
		return nil, errors.New("raffle: missing subscription id")
	}
	if o.RequestConfirmations == 0 {
		o.RequestConfirmations = DefaultRequestConfirmations
	}
	if o.NumWords == 0 {
		o.NumWords = DefaultNumWords
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	rounds, err := lru.New(roundCacheSize)
	if err != nil {
		return nil, err
	}

	events, err := newEmitters(o.Bus)
	if err != nil {
		return nil, fmt.Errorf("event emitters: %w", err)
	}

	s := &Service{
		logger:               logger,
		metrics:              newMetrics(),
		store:                store,
		coordinator:          coordinator,
		ledger:               ledgerService,
		events:               events,
		rounds:               rounds,
		now:                  o.Now,
		address:              address,
		entranceFee:          new(big.Int).Set(o.EntranceFee),
		interval:             o.Interval,
		keyHash:              o.KeyHash,
		subscriptionID:       new(big.Int).Set(o.SubscriptionID),
		callbackGasLimit:     o.CallbackGasLimit,
		requestConfirmations: o.RequestConfirmations,
		numWords:             o.NumWords,
	}

	state := new(snapshot)
	err = store.Get(s.stateKey(), state)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		now := s.now()
		state = &snapshot{
			State:         StateOpen,
			LastTimestamp: now,
			OpenedAt:      now,
		}
		if err := store.Put(s.stateKey(), state); err != nil {
			_ = events.Close()
			return nil, fmt.Errorf("store initial state: %w", err)
		}
	case err != nil:
		_ = events.Close()
		return nil, fmt.Errorf("load state: %w", err)
	default:
		logger.Infof("raffle: resuming at round %d, state %s, %d players", state.Round, state.State, len(state.Players))
	}
	s.state = state
	s.metrics.observe(state)

	return s, nil
}

// Enter adds player to the current round for payment, which is moved from
// the player to the raffle account.
func (s *Service) Enter(ctx context.Context, player common.Address, payment *big.Int) error {
	s.mu.Lock()
	err := s.enter(player, payment)
	s.mu.Unlock()

	if err != nil {
		s.metrics.EntriesRejected.Inc()
		return err
	}

	s.metrics.Entries.Inc()
	s.logger.Debugf("raffle: %s entered with %s", player, payment)
	s.events.emit(Entered{Player: player, Payment: new(big.Int).Set(payment)})
	return nil
}

func (s *Service) enter(player common.Address, payment *big.Int) error {
	if s.state.State != StateOpen {
		return ErrNotOpen
	}
	if payment == nil || payment.Cmp(s.entranceFee) < 0 {
		return ErrNotEnoughETHEntered
	}

	if err := s.ledger.Transfer(player, s.address, payment); err != nil {
		return fmt.Errorf("collect entrance fee: %w", err)
	}

	next := s.state.clone()
	next.Players = append(next.Players, player)
	if err := s.store.Put(s.stateKey(), next); err != nil {
		if rerr := s.ledger.Transfer(s.address, player, payment); rerr != nil {
			s.logger.Errorf("raffle: refund %s to %s: %v", payment, player, rerr)
		}
		return fmt.Errorf("store state: %w", err)
	}

	s.state = next
	s.metrics.observe(next)
	return nil
}

// CheckUpkeep reports whether PerformUpkeep would close the round: the
// raffle is open, the interval has elapsed, there are players and the
// raffle holds a balance. checkData is ignored and performData is always
// empty. It has no side effects.
func (s *Service) CheckUpkeep(ctx context.Context, checkData []byte) (upkeepNeeded bool, performData []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upkeepNeeded, _, err = s.checkUpkeep()
	if err != nil {
		return false, nil, err
	}
	return upkeepNeeded, []byte{}, nil
}

func (s *Service) checkUpkeep() (bool, *big.Int, error) {
	balance, err := s.ledger.Balance(s.address)
	if err != nil {
		return false, nil, fmt.Errorf("raffle balance: %w", err)
	}

	isOpen := s.state.State == StateOpen
	timePassed := s.now().Sub(s.state.LastTimestamp) >= s.interval
	hasPlayers := len(s.state.Players) > 0
	hasBalance := balance.Sign() > 0

	return isOpen && timePassed && hasPlayers && hasBalance, balance, nil
}

// PerformUpkeep closes the round and requests random words for picking the
// winner. The request identifier is returned and also announced with a
// WinnerRequested event.
func (s *Service) PerformUpkeep(ctx context.Context, performData []byte) (*big.Int, error) {
	s.mu.Lock()
	requestID, err := s.performUpkeep(ctx)
	s.mu.Unlock()

	if err != nil {
		s.metrics.UpkeepsRejected.Inc()
		return nil, err
	}

	s.metrics.UpkeepsPerformed.Inc()
	s.logger.Infof("raffle: winner requested, request %s", requestID)
	s.events.emit(WinnerRequested{RequestID: new(big.Int).Set(requestID)})
	return requestID, nil
}

func (s *Service) performUpkeep(ctx context.Context) (*big.Int, error) {
	needed, balance, err := s.checkUpkeep()
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, &UpkeepNotNeededError{
			Balance:    balance,
			NumPlayers: len(s.state.Players),
			State:      s.state.State,
		}
	}

	requestID, err := s.coordinator.RequestRandomWords(ctx, vrf.Request{
		KeyHash:              s.keyHash,
		SubscriptionID:       new(big.Int).Set(s.subscriptionID),
		RequestConfirmations: s.requestConfirmations,
		CallbackGasLimit:     s.callbackGasLimit,
		NumWords:             s.numWords,
		Consumer:             s.address,
	})
	if err != nil {
		return nil, fmt.Errorf("request random words: %w", err)
	}

	next := s.state.clone()
	next.State = StateCalculating
	next.PendingRequestID = new(big.Int).Set(requestID)
	next.RequestedAt = s.now()
	if err := s.store.Put(s.stateKey(), next); err != nil {
		return nil, fmt.Errorf("store state: %w", err)
	}

	s.state = next
	s.metrics.observe(next)
	return requestID, nil
}

// FulfillRandomWords implements vrf.Consumer. It picks the winner of the
// closed round with the first random word, pays out the raffle balance and
// opens the next round.
func (s *Service) FulfillRandomWords(ctx context.Context, requestID *big.Int, randomWords []*big.Int) error {
	s.mu.Lock()
	picked, err := s.fulfillRandomWords(requestID, randomWords)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrTransferFailed) {
			s.metrics.TransferFailures.Inc()
		}
		s.logger.Debugf("raffle: fulfil request %s: %v", requestID, err)
		return err
	}

	s.metrics.WinnersPicked.Inc()
	s.logger.Infof("raffle: round %d winner %s, prize %s", picked.Round, picked.Winner, picked.Prize)
	s.events.emit(picked)
	return nil
}

func (s *Service) fulfillRandomWords(requestID *big.Int, randomWords []*big.Int) (WinnerPicked, error) {
	pending := s.state.PendingRequestID
	if s.state.State != StateCalculating || pending == nil || requestID == nil || pending.Cmp(requestID) != 0 {
		return WinnerPicked{}, ErrUnknownRequest
	}
	if len(randomWords) == 0 || randomWords[0] == nil {
		return WinnerPicked{}, ErrNoRandomWords
	}

	players := s.state.Players
	if len(players) == 0 {
		// unreachable as long as upkeep is only performed with players
		return WinnerPicked{}, errors.New("raffle: no players in calculating round")
	}

	index := new(big.Int).Mod(randomWords[0], big.NewInt(int64(len(players)))).Int64()
	winner := players[index]

	prize, err := s.ledger.Balance(s.address)
	if err != nil {
		return WinnerPicked{}, fmt.Errorf("raffle balance: %w", err)
	}

	if err := s.ledger.Transfer(s.address, winner, prize); err != nil {
		return WinnerPicked{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := s.now()
	round := Round{
		Number:     s.state.Round,
		RequestID:  new(big.Int).Set(requestID),
		RandomWord: new(big.Int).Set(randomWords[0]),
		Players:    len(players),
		Prize:      prize,
		Winner:     winner,
		OpenedAt:   s.state.OpenedAt,
		PickedAt:   now,
	}

	next := &snapshot{
		State:         StateOpen,
		RecentWinner:  winner,
		LastTimestamp: now,
		Round:         s.state.Round + 1,
		OpenedAt:      now,
	}

	if err := s.store.Put(roundKey(s.address, round.Number), round); err != nil {
		s.revertPayout(winner, prize)
		return WinnerPicked{}, fmt.Errorf("store round: %w", err)
	}
	if err := s.store.Put(s.stateKey(), next); err != nil {
		s.revertPayout(winner, prize)
		return WinnerPicked{}, fmt.Errorf("store state: %w", err)
	}

	s.state = next
	s.metrics.observe(next)

	return WinnerPicked{
		Winner:    winner,
		Prize:     new(big.Int).Set(prize),
		Round:     round.Number,
		RequestID: new(big.Int).Set(requestID),
	}, nil
}

func (s *Service) revertPayout(winner common.Address, prize *big.Int) {
	if err := s.ledger.Transfer(winner, s.address, prize); err != nil {
		s.logger.Errorf("raffle: revert payout of %s to %s: %v", prize, winner, err)
	}
}

// Reset abandons an outstanding randomness request. The round reopens with
// its players and balance intact and the interval starts over. Coordinators
// that never answer would otherwise keep the raffle calculating forever.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.State != StateCalculating {
		return ErrNotCalculating
	}

	abandoned := s.state.PendingRequestID
	next := s.state.clone()
	next.State = StateOpen
	next.PendingRequestID = nil
	next.RequestedAt = time.Time{}
	next.LastTimestamp = s.now()
	if err := s.store.Put(s.stateKey(), next); err != nil {
		return fmt.Errorf("store state: %w", err)
	}

	s.state = next
	s.metrics.observe(next)
	s.metrics.Resets.Inc()
	s.logger.Warningf("raffle: abandoned randomness request %s", abandoned)
	return nil
}

// Status is a consistent view of the raffle.
type Status struct {
	Address          common.Address
	State            State
	EntranceFee      *big.Int
	Interval         time.Duration
	LastTimestamp    time.Time
	Players          []common.Address
	RecentWinner     common.Address
	Balance          *big.Int
	SubscriptionID   *big.Int
	PendingRequestID *big.Int
	RequestedAt      time.Time
	Round            uint64
}

// Status returns the current raffle state.
func (s *Service) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.ledger.Balance(s.address)
	if err != nil {
		return Status{}, fmt.Errorf("raffle balance: %w", err)
	}

	st := s.state.clone()
	return Status{
		Address:          s.address,
		State:            st.State,
		EntranceFee:      new(big.Int).Set(s.entranceFee),
		Interval:         s.interval,
		LastTimestamp:    st.LastTimestamp,
		Players:          st.Players,
		RecentWinner:     st.RecentWinner,
		Balance:          balance,
		SubscriptionID:   new(big.Int).Set(s.subscriptionID),
		PendingRequestID: st.PendingRequestID,
		RequestedAt:      st.RequestedAt,
		Round:            st.Round,
	}, nil
}

func (s *Service) Address() common.Address {
	return s.address
}

func (s *Service) EntranceFee() *big.Int {
	return new(big.Int).Set(s.entranceFee)
}

func (s *Service) Interval() time.Duration {
	return s.interval
}

func (s *Service) KeyHash() common.Hash {
	return s.keyHash
}

func (s *Service) SubscriptionID() *big.Int {
	return new(big.Int).Set(s.subscriptionID)
}

func (s *Service) CallbackGasLimit() uint32 {
	return s.callbackGasLimit
}

func (s *Service) RequestConfirmations() uint16 {
	return s.requestConfirmations
}

func (s *Service) NumWords() uint32 {
	return s.numWords
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.State
}

// Player returns the entrant at index in the current round.
func (s *Service) Player(index int) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.state.Players) {
		return common.Address{}, ErrPlayerIndexOutOfRange
	}
	return s.state.Players[index], nil
}

func (s *Service) NumberOfPlayers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.state.Players)
}

func (s *Service) RecentWinner() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.RecentWinner
}

func (s *Service) LastTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.LastTimestamp
}

// PendingRequestID returns the outstanding request identifier, nil when
// the raffle is open.
func (s *Service) PendingRequestID() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.PendingRequestID == nil {
		return nil
	}
	return new(big.Int).Set(s.state.PendingRequestID)
}

// RequestedAt returns when the outstanding request was made.
func (s *Service) RequestedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.RequestedAt
}

// Balance returns the prize pool of the current round.
func (s *Service) Balance() (*big.Int, error) {
	return s.ledger.Balance(s.address)
}

// Close releases the event emitters.
func (s *Service) Close() error {
	return s.events.Close()
}

func (s *Service) stateKey() string {
	return stateKeyPrefix + s.address.Hex()
}
