// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/bigint"
	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/ethersphere/raffle/pkg/keeper"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/gorilla/mux"
)

type raffleStatusResponse struct {
	Address          common.Address   `json:"address"`
	State            string           `json:"state"`
	EntranceFee      *bigint.BigInt   `json:"entranceFee"`
	Interval         int64            `json:"interval"`
	LastTimestamp    time.Time        `json:"lastTimestamp"`
	Players          []common.Address `json:"players"`
	NumberOfPlayers  int              `json:"numberOfPlayers"`
	RecentWinner     common.Address   `json:"recentWinner"`
	Balance          *bigint.BigInt   `json:"balance"`
	SubscriptionID   *bigint.BigInt   `json:"subscriptionId"`
	PendingRequestID *bigint.BigInt   `json:"pendingRequestId,omitempty"`
	RequestedAt      *time.Time       `json:"requestedAt,omitempty"`
	Round            uint64           `json:"round"`
	Keeper           *keeper.Stats    `json:"keeper,omitempty"`
}

type enterRequest struct {
	Player string         `json:"player"`
	Value  *bigint.BigInt `json:"value"`
}

type enterResponse struct {
	Player common.Address `json:"player"`
	Value  *bigint.BigInt `json:"value"`
}

type playerResponse struct {
	Index  int            `json:"index"`
	Player common.Address `json:"player"`
}

type checkUpkeepResponse struct {
	UpkeepNeeded bool   `json:"upkeepNeeded"`
	PerformData  string `json:"performData"`
}

type performUpkeepResponse struct {
	RequestID *bigint.BigInt `json:"requestId"`
}

// upkeepNotNeededResponse carries the values the upkeep decision was based
// on.
type upkeepNotNeededResponse struct {
	Message    string         `json:"message"`
	Code       int            `json:"code"`
	Balance    *bigint.BigInt `json:"balance"`
	NumPlayers int            `json:"numPlayers"`
	State      string         `json:"raffleState"`
}

type roundResponse struct {
	Number     uint64         `json:"number"`
	RequestID  *bigint.BigInt `json:"requestId"`
	RandomWord *bigint.BigInt `json:"randomWord"`
	Players    int            `json:"players"`
	Prize      *bigint.BigInt `json:"prize"`
	Winner     common.Address `json:"winner"`
	OpenedAt   time.Time      `json:"openedAt"`
	PickedAt   time.Time      `json:"pickedAt"`
}

type roundsResponse struct {
	Rounds []roundResponse `json:"rounds"`
}

func (s *server) raffleStatusHandler(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.statusGroup.Do(r.Context(), "status", func(ctx context.Context) (interface{}, error) {
		return s.Raffle.Status()
	})
	if err != nil {
		s.Logger.Debugf("api: raffle status: %v", err)
		s.Logger.Error("api: raffle status")
		jsonhttp.InternalServerError(w, "raffle status failed")
		return
	}
	st := v.(raffle.Status)

	resp := raffleStatusResponse{
		Address:          st.Address,
		State:            st.State.String(),
		EntranceFee:      bigint.Wrap(st.EntranceFee),
		Interval:         int64(st.Interval / time.Second),
		LastTimestamp:    st.LastTimestamp,
		Players:          st.Players,
		NumberOfPlayers:  len(st.Players),
		RecentWinner:     st.RecentWinner,
		Balance:          bigint.Wrap(st.Balance),
		SubscriptionID:   bigint.Wrap(st.SubscriptionID),
		PendingRequestID: bigint.Wrap(st.PendingRequestID),
		Round:            st.Round,
	}
	if resp.Players == nil {
		resp.Players = []common.Address{}
	}
	if !st.RequestedAt.IsZero() {
		t := st.RequestedAt
		resp.RequestedAt = &t
	}
	if s.Keeper != nil {
		stats := s.Keeper.Stats()
		resp.Keeper = &stats
	}

	jsonhttp.OK(w, resp)
}

func (s *server) raffleEnterHandler(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		s.Logger.Debugf("api: enter: read request body: %v", err)
		s.Logger.Error("api: enter: read request body")
		jsonhttp.InternalServerError(w, "cannot read request")
		return
	}

	var req enterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.Logger.Debugf("api: enter: unmarshal request body: %v", err)
		jsonhttp.BadRequest(w, "invalid request body")
		return
	}
	player, ok := parseAddress(req.Player)
	if !ok {
		jsonhttp.BadRequest(w, "invalid player address")
		return
	}
	if req.Value == nil || req.Value.Sign() < 0 {
		jsonhttp.BadRequest(w, "invalid value")
		return
	}

	if err := s.Raffle.Enter(r.Context(), player, req.Value.Unwrap()); err != nil {
		s.Logger.Debugf("api: enter %s: %v", player, err)
		s.respondRaffleError(w, err)
		return
	}

	jsonhttp.Created(w, enterResponse{
		Player: player,
		Value:  req.Value,
	})
}

func (s *server) rafflePlayerHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 {
		jsonhttp.BadRequest(w, "invalid player index")
		return
	}

	player, err := s.Raffle.Player(index)
	if err != nil {
		if errors.Is(err, raffle.ErrPlayerIndexOutOfRange) {
			jsonhttp.NotFound(w, "player not found")
			return
		}
		s.Logger.Debugf("api: player %d: %v", index, err)
		s.Logger.Error("api: player")
		jsonhttp.InternalServerError(w, nil)
		return
	}

	jsonhttp.OK(w, playerResponse{
		Index:  index,
		Player: player,
	})
}

func (s *server) checkUpkeepHandler(w http.ResponseWriter, r *http.Request) {
	needed, performData, err := s.Raffle.CheckUpkeep(r.Context(), nil)
	if err != nil {
		s.Logger.Debugf("api: check upkeep: %v", err)
		s.Logger.Error("api: check upkeep")
		jsonhttp.InternalServerError(w, "check upkeep failed")
		return
	}

	jsonhttp.OK(w, checkUpkeepResponse{
		UpkeepNeeded: needed,
		PerformData:  "0x" + common.Bytes2Hex(performData),
	})
}

func (s *server) performUpkeepHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := s.Raffle.PerformUpkeep(r.Context(), nil)
	if err != nil {
		s.Logger.Debugf("api: perform upkeep: %v", err)
		s.respondRaffleError(w, err)
		return
	}

	jsonhttp.OK(w, performUpkeepResponse{
		RequestID: bigint.Wrap(requestID),
	})
}

func (s *server) raffleResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Raffle.Reset(r.Context()); err != nil {
		s.Logger.Debugf("api: reset: %v", err)
		s.respondRaffleError(w, err)
		return
	}

	jsonhttp.OK(w, nil)
}

func (s *server) roundsHandler(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.Raffle.Rounds()
	if err != nil {
		s.Logger.Debugf("api: rounds: %v", err)
		s.Logger.Error("api: rounds")
		jsonhttp.InternalServerError(w, "cannot list rounds")
		return
	}

	resp := roundsResponse{Rounds: make([]roundResponse, 0, len(rounds))}
	for _, round := range rounds {
		resp.Rounds = append(resp.Rounds, newRoundResponse(round))
	}

	jsonhttp.OK(w, resp)
}

func (s *server) roundHandler(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		jsonhttp.BadRequest(w, "invalid round number")
		return
	}

	round, err := s.Raffle.Round(number)
	if err != nil {
		if errors.Is(err, raffle.ErrRoundNotFound) {
			jsonhttp.NotFound(w, "round not found")
			return
		}
		s.Logger.Debugf("api: round %d: %v", number, err)
		s.Logger.Error("api: round")
		jsonhttp.InternalServerError(w, nil)
		return
	}

	jsonhttp.OK(w, newRoundResponse(round))
}

func newRoundResponse(r raffle.Round) roundResponse {
	return roundResponse{
		Number:     r.Number,
		RequestID:  bigint.Wrap(r.RequestID),
		RandomWord: bigint.Wrap(r.RandomWord),
		Players:    r.Players,
		Prize:      bigint.Wrap(r.Prize),
		Winner:     r.Winner,
		OpenedAt:   r.OpenedAt,
		PickedAt:   r.PickedAt,
	}
}

// respondRaffleError maps raffle errors to status codes.
func (s *server) respondRaffleError(w http.ResponseWriter, err error) {
	var notNeeded *raffle.UpkeepNotNeededError
	switch {
	case errors.As(err, &notNeeded):
		jsonhttp.Conflict(w, upkeepNotNeededResponse{
			Message:    "upkeep not needed",
			Code:       http.StatusConflict,
			Balance:    bigint.Wrap(notNeeded.Balance),
			NumPlayers: notNeeded.NumPlayers,
			State:      notNeeded.State.String(),
		})
	case errors.Is(err, raffle.ErrNotEnoughETHEntered):
		jsonhttp.BadRequest(w, "not enough eth entered")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		jsonhttp.BadRequest(w, "insufficient funds")
	case errors.Is(err, raffle.ErrNotOpen):
		jsonhttp.Conflict(w, "raffle not open")
	case errors.Is(err, raffle.ErrNotCalculating):
		jsonhttp.Conflict(w, "raffle not calculating")
	case errors.Is(err, raffle.ErrUnknownRequest):
		jsonhttp.NotFound(w, "unknown request")
	case errors.Is(err, raffle.ErrTransferFailed):
		s.Logger.Error("api: raffle transfer failed")
		jsonhttp.InternalServerError(w, "transfer failed")
	default:
		s.Logger.Errorf("api: raffle: %v", err)
		jsonhttp.InternalServerError(w, nil)
	}
}
