// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/bigint"
	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/ethersphere/raffle/pkg/vrf"
	"github.com/ethersphere/raffle/pkg/vrf/mock"
	"github.com/gorilla/mux"
)

type fulfillRequest struct {
	Words []*bigint.BigInt `json:"words"`
}

type fulfillResponse struct {
	RequestID *bigint.BigInt   `json:"requestId"`
	Words     []*bigint.BigInt `json:"words"`
	Payment   *bigint.BigInt   `json:"payment"`
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
}

type pendingRequestsResponse struct {
	Requests []*bigint.BigInt `json:"requests"`
}

type subscriptionResponse struct {
	ID        *bigint.BigInt   `json:"id"`
	Owner     common.Address   `json:"owner"`
	Balance   *bigint.BigInt   `json:"balance"`
	ReqCount  uint64           `json:"reqCount"`
	Consumers []common.Address `json:"consumers"`
}

func (s *server) pendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Coordinator.PendingRequests()
	if err != nil {
		s.Logger.Debugf("api: pending requests: %v", err)
		s.Logger.Error("api: pending requests")
		jsonhttp.InternalServerError(w, nil)
		return
	}

	resp := pendingRequestsResponse{Requests: make([]*bigint.BigInt, 0, len(ids))}
	for _, id := range ids {
		resp.Requests = append(resp.Requests, bigint.Wrap(id))
	}
	jsonhttp.OK(w, resp)
}

// fulfillHandler answers a pending randomness request of the raffle. The
// words are derived from the request id unless the body lists them.
func (s *server) fulfillHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseBigInt(mux.Vars(r)["id"])
	if !ok {
		jsonhttp.BadRequest(w, "invalid request id")
		return
	}

	var words []*big.Int
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		if jsonhttp.HandleBodyReadError(err, w) {
			return
		}
		s.Logger.Debugf("api: fulfil: read request body: %v", err)
		s.Logger.Error("api: fulfil: read request body")
		jsonhttp.InternalServerError(w, "cannot read request")
		return
	}
	if len(body) > 0 {
		var req fulfillRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.Logger.Debugf("api: fulfil: unmarshal request body: %v", err)
			jsonhttp.BadRequest(w, "invalid request body")
			return
		}
		for _, word := range req.Words {
			if word == nil {
				jsonhttp.BadRequest(w, "invalid random word")
				return
			}
			words = append(words, word.Unwrap())
		}
	}

	res, err := s.Coordinator.FulfillRandomWordsWithOverride(r.Context(), requestID, s.Raffle.Address(), words)
	if err != nil {
		s.Logger.Debugf("api: fulfil request %s: %v", requestID, err)
		switch {
		case errors.Is(err, vrf.ErrNonexistentRequest):
			jsonhttp.NotFound(w, "unknown request")
		case errors.Is(err, vrf.ErrInvalidConsumer):
			jsonhttp.NotFound(w, "request not made by the raffle")
		case errors.Is(err, mock.ErrInvalidRandomWords):
			jsonhttp.BadRequest(w, "invalid number of random words")
		case errors.Is(err, vrf.ErrInsufficientBalance):
			jsonhttp.Conflict(w, "insufficient subscription balance")
		default:
			s.Logger.Error("api: fulfil request")
			jsonhttp.InternalServerError(w, nil)
		}
		return
	}

	resp := fulfillResponse{
		RequestID: bigint.Wrap(res.RequestID),
		Payment:   bigint.Wrap(res.Payment),
		Success:   res.Success,
		Words:     make([]*bigint.BigInt, 0, len(res.Words)),
	}
	for _, word := range res.Words {
		resp.Words = append(resp.Words, bigint.Wrap(word))
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	switch {
	case errors.Is(res.Err, raffle.ErrTransferFailed):
		jsonhttp.InternalServerError(w, resp)
	case errors.Is(res.Err, raffle.ErrUnknownRequest):
		jsonhttp.NotFound(w, resp)
	default:
		jsonhttp.OK(w, resp)
	}
}

func (s *server) subscriptionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBigInt(mux.Vars(r)["id"])
	if !ok {
		jsonhttp.BadRequest(w, "invalid subscription id")
		return
	}

	sub, err := s.Coordinator.Subscription(id)
	if err != nil {
		if errors.Is(err, vrf.ErrInvalidSubscription) {
			jsonhttp.NotFound(w, "subscription not found")
			return
		}
		s.Logger.Debugf("api: subscription %s: %v", id, err)
		s.Logger.Error("api: subscription")
		jsonhttp.InternalServerError(w, nil)
		return
	}

	consumers := sub.Consumers
	if consumers == nil {
		consumers = []common.Address{}
	}
	jsonhttp.OK(w, subscriptionResponse{
		ID:        bigint.Wrap(sub.ID),
		Owner:     sub.Owner,
		Balance:   bigint.Wrap(sub.Balance),
		ReqCount:  sub.ReqCount,
		Consumers: consumers,
	})
}
