// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ledger_test

import (
	"errors"
	"io/ioutil"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/statestore/mock"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	return ledger.New(logging.New(ioutil.Discard, 0), mock.NewStateStore())
}

func expectBalance(t *testing.T, l *ledger.Ledger, account common.Address, want int64) {
	t.Helper()

	got, err := l.Balance(account)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("balance of %s: got %s, want %d", account, got, want)
	}
}

func TestMint(t *testing.T) {
	l := newLedger(t)

	expectBalance(t, l, alice, 0)

	if err := l.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := l.Mint(alice, big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	expectBalance(t, l, alice, 150)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		if err := l.Mint(alice, amount); !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("mint %v: got error %v, want %v", amount, err, ledger.ErrInvalidAmount)
		}
	}
	expectBalance(t, l, alice, 150)
}

func TestTransfer(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		l := newLedger(t)
		if err := l.Mint(alice, big.NewInt(100)); err != nil {
			t.Fatal(err)
		}

		if err := l.Transfer(alice, bob, big.NewInt(30)); err != nil {
			t.Fatal(err)
		}
		expectBalance(t, l, alice, 70)
		expectBalance(t, l, bob, 30)

		if err := l.Transfer(bob, alice, big.NewInt(0)); err != nil {
			t.Fatal(err)
		}
		expectBalance(t, l, bob, 30)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		l := newLedger(t)
		if err := l.Mint(alice, big.NewInt(10)); err != nil {
			t.Fatal(err)
		}

		if err := l.Transfer(alice, bob, big.NewInt(11)); !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("got error %v, want %v", err, ledger.ErrInsufficientFunds)
		}
		expectBalance(t, l, alice, 10)
		expectBalance(t, l, bob, 0)
	})

	t.Run("invalid amount", func(t *testing.T) {
		l := newLedger(t)

		if err := l.Transfer(alice, bob, big.NewInt(-1)); !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("got error %v, want %v", err, ledger.ErrInvalidAmount)
		}
		if err := l.Transfer(alice, bob, nil); !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("got error %v, want %v", err, ledger.ErrInvalidAmount)
		}
	})

	t.Run("self", func(t *testing.T) {
		l := newLedger(t)
		if err := l.Mint(alice, big.NewInt(10)); err != nil {
			t.Fatal(err)
		}

		if err := l.Transfer(alice, alice, big.NewInt(10)); err != nil {
			t.Fatal(err)
		}
		expectBalance(t, l, alice, 10)
	})

	t.Run("rejected", func(t *testing.T) {
		l := newLedger(t)
		if err := l.Mint(alice, big.NewInt(10)); err != nil {
			t.Fatal(err)
		}
		if err := l.RejectTransfers(bob, true); err != nil {
			t.Fatal(err)
		}

		if err := l.Transfer(alice, bob, big.NewInt(5)); !errors.Is(err, ledger.ErrTransferRejected) {
			t.Fatalf("got error %v, want %v", err, ledger.ErrTransferRejected)
		}
		expectBalance(t, l, alice, 10)
		expectBalance(t, l, bob, 0)

		if err := l.RejectTransfers(bob, false); err != nil {
			t.Fatal(err)
		}
		if err := l.Transfer(alice, bob, big.NewInt(5)); err != nil {
			t.Fatal(err)
		}
		expectBalance(t, l, bob, 5)
	})
}

func TestAccounts(t *testing.T) {
	l := newLedger(t)

	if err := l.Mint(alice, big.NewInt(7)); err != nil {
		t.Fatal(err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(3)); err != nil {
		t.Fatal(err)
	}

	accounts, err := l.Accounts()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	if accounts[alice].Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("alice: got %s, want 4", accounts[alice])
	}
	if accounts[bob].Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("bob: got %s, want 3", accounts[bob])
	}
}
