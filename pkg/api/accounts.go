// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/bigint"
	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/gorilla/mux"
)

type balanceResponse struct {
	Address common.Address `json:"address"`
	Balance *bigint.BigInt `json:"balance"`
}

func (s *server) balanceHandler(w http.ResponseWriter, r *http.Request) {
	address, ok := parseAddress(mux.Vars(r)["address"])
	if !ok {
		jsonhttp.BadRequest(w, "invalid address")
		return
	}

	balance, err := s.Ledger.Balance(address)
	if err != nil {
		s.Logger.Debugf("api: balance %s: %v", address, err)
		s.Logger.Error("api: balance")
		jsonhttp.InternalServerError(w, "cannot get balance")
		return
	}

	jsonhttp.OK(w, balanceResponse{
		Address: address,
		Balance: bigint.Wrap(balance),
	})
}

func (s *server) faucetHandler(w http.ResponseWriter, r *http.Request) {
	if s.FaucetAmount == nil {
		jsonhttp.Forbidden(w, "faucet disabled")
		return
	}

	address, ok := parseAddress(mux.Vars(r)["address"])
	if !ok {
		jsonhttp.BadRequest(w, "invalid address")
		return
	}

	if err := s.Ledger.Mint(address, s.FaucetAmount); err != nil {
		s.Logger.Debugf("api: faucet %s: %v", address, err)
		s.Logger.Error("api: faucet")
		jsonhttp.InternalServerError(w, "faucet failed")
		return
	}

	balance, err := s.Ledger.Balance(address)
	if err != nil {
		s.Logger.Debugf("api: faucet: balance %s: %v", address, err)
		s.Logger.Error("api: faucet")
		jsonhttp.InternalServerError(w, "cannot get balance")
		return
	}

	s.Logger.Infof("api: faucet minted %s to %s", s.FaucetAmount, address)
	jsonhttp.OK(w, balanceResponse{
		Address: address,
		Balance: bigint.Wrap(balance),
	})
}
