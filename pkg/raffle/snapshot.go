// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raffle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	stateKeyPrefix = "raffle_state_"
	roundKeyPrefix = "raffle_round_"
)

// snapshot is the mutable part of the raffle. It is replaced as a whole on
// every successful operation so that a failed store leaves it untouched.
type snapshot struct {
	State            State
	Players          []common.Address
	RecentWinner     common.Address
	LastTimestamp    time.Time
	PendingRequestID *big.Int
	RequestedAt      time.Time
	Round            uint64
	OpenedAt         time.Time
}

type snapshotMsgpack struct {
	State            uint8    `msgpack:"state"`
	Players          [][]byte `msgpack:"players"`
	RecentWinner     []byte   `msgpack:"recentWinner"`
	LastTimestamp    int64    `msgpack:"lastTimestamp"`
	PendingRequestID []byte   `msgpack:"pendingRequestId,omitempty"`
	HasPending       bool     `msgpack:"hasPending"`
	RequestedAt      int64    `msgpack:"requestedAt,omitempty"`
	Round            uint64   `msgpack:"round"`
	OpenedAt         int64    `msgpack:"openedAt,omitempty"`
}

func (s *snapshot) clone() *snapshot {
	c := *s
	c.Players = make([]common.Address, len(s.Players))
	copy(c.Players, s.Players)
	if s.PendingRequestID != nil {
		c.PendingRequestID = new(big.Int).Set(s.PendingRequestID)
	}
	return &c
}

func (s *snapshot) MarshalBinary() ([]byte, error) {
	v := snapshotMsgpack{
		State:         uint8(s.State),
		Players:       make([][]byte, 0, len(s.Players)),
		RecentWinner:  s.RecentWinner.Bytes(),
		LastTimestamp: unixNano(s.LastTimestamp),
		RequestedAt:   unixNano(s.RequestedAt),
		Round:         s.Round,
		OpenedAt:      unixNano(s.OpenedAt),
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, p.Bytes())
	}
	if s.PendingRequestID != nil {
		v.HasPending = true
		v.PendingRequestID = s.PendingRequestID.Bytes()
	}
	return msgpack.Marshal(v)
}

func (s *snapshot) UnmarshalBinary(data []byte) error {
	var v snapshotMsgpack
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return err
	}
	if State(v.State) != StateOpen && State(v.State) != StateCalculating {
		return fmt.Errorf("invalid raffle state %d", v.State)
	}
	players := make([]common.Address, 0, len(v.Players))
	for _, p := range v.Players {
		if len(p) != common.AddressLength {
			return errors.New("invalid player address")
		}
		players = append(players, common.BytesToAddress(p))
	}
	*s = snapshot{
		State:         State(v.State),
		Players:       players,
		RecentWinner:  common.BytesToAddress(v.RecentWinner),
		LastTimestamp: fromUnixNano(v.LastTimestamp),
		RequestedAt:   fromUnixNano(v.RequestedAt),
		Round:         v.Round,
		OpenedAt:      fromUnixNano(v.OpenedAt),
	}
	if v.HasPending {
		s.PendingRequestID = new(big.Int).SetBytes(v.PendingRequestID)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Round is the record of a finished raffle round.
type Round struct {
	Number     uint64         `json:"number"`
	RequestID  *big.Int       `json:"requestId"`
	RandomWord *big.Int       `json:"randomWord"`
	Players    int            `json:"players"`
	Prize      *big.Int       `json:"prize"`
	Winner     common.Address `json:"winner"`
	OpenedAt   time.Time      `json:"openedAt"`
	PickedAt   time.Time      `json:"pickedAt"`
}

func roundKey(address common.Address, number uint64) string {
	return fmt.Sprintf("%s%s_%020d", roundKeyPrefix, address.Hex(), number)
}

// Rounds returns the finished rounds, oldest first.
func (s *Service) Rounds() (rounds []Round, err error) {
	prefix := roundKeyPrefix + s.address.Hex() + "_"
	err = s.store.Iterate(prefix, func(key, value []byte) (bool, error) {
		if !strings.HasPrefix(string(key), prefix) {
			return true, nil
		}
		var r Round
		if err := json.Unmarshal(value, &r); err != nil {
			return true, fmt.Errorf("decode round %s: %w", key, err)
		}
		rounds = append(rounds, r)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return rounds, nil
}

// Round returns the finished round with the given number.
func (s *Service) Round(number uint64) (Round, error) {
	if v, ok := s.rounds.Get(number); ok {
		return v.(Round), nil
	}

	var r Round
	if err := s.store.Get(roundKey(s.address, number), &r); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Round{}, ErrRoundNotFound
		}
		return Round{}, err
	}
	s.rounds.Add(number, r)
	return r, nil
}
