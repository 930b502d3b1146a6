// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ledger keeps account balances in wei and moves value between
// them. It is the payment primitive used for raffle entries and payouts.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/storage"
)

const (
	balanceKeyPrefix = "ledger_balance_"
	rejectKeyPrefix  = "ledger_reject_"
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInvalidAmount     = errors.New("ledger: invalid amount")
	// ErrTransferRejected is returned when the recipient refuses incoming
	// value.
	ErrTransferRejected = errors.New("ledger: transfer rejected by recipient")
)

// Service moves value between accounts.
type Service interface {
	Balance(account common.Address) (*big.Int, error)
	Transfer(from, to common.Address, amount *big.Int) error
}

var _ Service = (*Ledger)(nil)

// Ledger is a Service persisted in a state store.
type Ledger struct {
	logger  logging.Logger
	metrics metrics
	store   storage.StateStorer
	mu      sync.Mutex
}

func New(logger logging.Logger, store storage.StateStorer) *Ledger {
	return &Ledger{
		logger:  logger,
		metrics: newMetrics(),
		store:   store,
	}
}

// Balance returns the balance of the account, zero for unknown accounts.
func (l *Ledger) Balance(account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance(account)
}

// Mint credits amount to the account out of thin air. Development nodes use
// it as a faucet.
func (l *Ledger) Mint(account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, err := l.balance(account)
	if err != nil {
		return err
	}

	if err := l.store.Put(balanceKey(account), new(big.Int).Add(balance, amount)); err != nil {
		return err
	}

	l.metrics.MintedAmount.Add(toFloat(amount))
	l.logger.Tracef("ledger: minted %s to %s", amount, account)
	return nil
}

// Transfer moves amount from one account to another. Either both balances
// change or neither does.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rejects, err := l.rejectsTransfers(to)
	if err != nil {
		return err
	}
	if rejects {
		l.metrics.RejectedTransfers.Inc()
		return ErrTransferRejected
	}

	fromBalance, err := l.balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}

	toBalance, err := l.balance(to)
	if err != nil {
		return err
	}

	if err := l.store.Put(balanceKey(from), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := l.store.Put(balanceKey(to), new(big.Int).Add(toBalance, amount)); err != nil {
		if rerr := l.store.Put(balanceKey(from), fromBalance); rerr != nil {
			l.logger.Errorf("ledger: restore balance of %s: %v", from, rerr)
		}
		return err
	}

	l.metrics.Transfers.Inc()
	l.logger.Tracef("ledger: transferred %s from %s to %s", amount, from, to)
	return nil
}

// RejectTransfers marks the account as refusing incoming transfers. It
// stands in for recipients whose receive hook reverts.
func (l *Ledger) RejectTransfers(account common.Address, reject bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !reject {
		return l.store.Delete(rejectKey(account))
	}
	return l.store.Put(rejectKey(account), true)
}

// Accounts returns all accounts with a recorded balance.
func (l *Ledger) Accounts() (map[common.Address]*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := make(map[common.Address]*big.Int)
	err := l.store.Iterate(balanceKeyPrefix, func(key, value []byte) (bool, error) {
		addr := strings.TrimPrefix(string(key), balanceKeyPrefix)
		if !common.IsHexAddress(addr) {
			return true, fmt.Errorf("invalid balance key %q", key)
		}
		balance := new(big.Int)
		if err := balance.UnmarshalJSON(value); err != nil {
			return true, err
		}
		accounts[common.HexToAddress(addr)] = balance
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (l *Ledger) balance(account common.Address) (*big.Int, error) {
	balance := new(big.Int)
	if err := l.store.Get(balanceKey(account), balance); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return balance, nil
}

func (l *Ledger) rejectsTransfers(account common.Address) (bool, error) {
	var reject bool
	if err := l.store.Get(rejectKey(account), &reject); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return reject, nil
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func balanceKey(account common.Address) string {
	return balanceKeyPrefix + strings.ToLower(account.Hex())
}

func rejectKey(account common.Address) string {
	return rejectKeyPrefix + strings.ToLower(account.Hex())
}
