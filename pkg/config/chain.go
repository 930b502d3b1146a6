// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// chain ID
	sepoliaChainID   = int64(11155111)
	localhostChainID = int64(31337)
	// vrf coordinator
	sepoliaVRFCoordinator = common.HexToAddress("0x9DdfaCa8183c41ad55329BdeeD9F6A8d53168B1B")
	// gas lane
	sepoliaKeyHash   = "0x787d74caea10b2b357790d5b5247c2f63d1d91572a9846f780606e4d953677ae"
	localhostKeyHash = "0x6c3699283bda56ad74f6b855546325b68d482e983852a7e34c2d6a8c3f0a5e2a"
	// subscription
	sepoliaSubscriptionID, _ = new(big.Int).SetString("114186114631312620347246787712211226523173313916881804174650131752675512740159", 10)
	localhostFundAmount, _   = new(big.Int).SetString("1000000000000000000000", 10)

	defaultCallbackGasLimit = uint32(500000)
	defaultInterval         = 120 * time.Second
	// 0.01 ether
	defaultEntranceFee = big.NewInt(10_000_000_000_000_000)
)

// NetworkConfig holds the raffle deployment parameters of a network.
type NetworkConfig struct {
	Name    string
	ChainID int64
	// VRFCoordinator is nil on development chains where a mock coordinator
	// is deployed.
	VRFCoordinator   *common.Address
	KeyHash          string
	SubscriptionID   *big.Int
	CallbackGasLimit uint32
	Interval         time.Duration
	// FundAmount is put on a freshly created mock subscription.
	FundAmount  *big.Int
	EntranceFee *big.Int
}

func GetNetworkConfig(chainID int64) (*NetworkConfig, bool) {
	cfg := NetworkConfig{
		ChainID:          chainID,
		CallbackGasLimit: defaultCallbackGasLimit,
		Interval:         defaultInterval,
		EntranceFee:      new(big.Int).Set(defaultEntranceFee),
	}
	switch chainID {
	case sepoliaChainID:
		coordinator := sepoliaVRFCoordinator
		cfg.Name = "sepolia"
		cfg.VRFCoordinator = &coordinator
		cfg.KeyHash = sepoliaKeyHash
		cfg.SubscriptionID = new(big.Int).Set(sepoliaSubscriptionID)
		return &cfg, true
	case localhostChainID:
		cfg.Name = "localhost"
		cfg.KeyHash = localhostKeyHash
		cfg.FundAmount = new(big.Int).Set(localhostFundAmount)
		return &cfg, true
	default:
		return &cfg, false
	}
}

func (c *NetworkConfig) clone() *NetworkConfig {
	n := *c
	if c.VRFCoordinator != nil {
		a := *c.VRFCoordinator
		n.VRFCoordinator = &a
	}
	n.SubscriptionID = cloneInt(c.SubscriptionID)
	n.FundAmount = cloneInt(c.FundAmount)
	n.EntranceFee = cloneInt(c.EntranceFee)
	return &n
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
