// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploy sets up a raffle on a network. On development chains it
// deploys a mock coordinator, creates and funds a subscription and
// registers the raffle as its consumer. The outcome is recorded so that a
// restarted node continues with the same raffle.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/ethersphere/raffle/pkg/vrf"
	"github.com/ethersphere/raffle/pkg/vrf/mock"
	"github.com/libp2p/go-libp2p-core/event"
)

const deploymentKeyPrefix = "deployment_"

var (
	// ErrCoordinatorRequired is returned for live networks when no
	// coordinator binding is supplied.
	ErrCoordinatorRequired = errors.New("deploy: live network requires a coordinator binding")
	// ErrDeploymentMismatch is returned when the stored deployment was made
	// for a different deployer or network.
	ErrDeploymentMismatch = errors.New("deploy: stored deployment does not match")

	mockBaseFee        = big.NewInt(0)
	mockGasPrice       = big.NewInt(1)
	mockWeiPerUnitLink = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Deployment is the record of a raffle deployment.
type Deployment struct {
	Network          string         `json:"network"`
	ChainID          int64          `json:"chainId"`
	Deployer         common.Address `json:"deployer"`
	VRFCoordinator   common.Address `json:"vrfCoordinator"`
	MockCoordinator  bool           `json:"mockCoordinator"`
	SubscriptionID   *big.Int       `json:"subscriptionId"`
	Raffle           common.Address `json:"raffle"`
	KeyHash          common.Hash    `json:"keyHash"`
	CallbackGasLimit uint32         `json:"callbackGasLimit"`
	Interval         time.Duration  `json:"interval"`
	EntranceFee      *big.Int       `json:"entranceFee"`
	Nonce            uint64         `json:"nonce"`
	DeployedAt       time.Time      `json:"deployedAt"`
}

type Options struct {
	Network  *config.NetworkConfig
	Deployer common.Address
	// Nonce is the deployer account nonce before the deployment.
	Nonce uint64
	// Coordinator serves randomness on live networks.
	Coordinator vrf.Coordinator
	Bus         event.Bus
	Now         func() time.Time
}

// Result holds the services of a deployment.
type Result struct {
	Deployment Deployment
	Raffle     *raffle.Service
	// MockCoordinator is set on development chains.
	MockCoordinator *mock.Coordinator
	// Resumed reports that a stored deployment was reused.
	Resumed bool
}

// Deploy sets up the raffle on the configured network, or resumes the
// deployment stored for its chain id.
func Deploy(ctx context.Context, logger logging.Logger, store storage.StateStorer, l ledger.Service, o Options) (*Result, error) {
	if o.Network == nil {
		return nil, errors.New("deploy: missing network config")
	}
	if err := o.Network.Validate(); err != nil {
		return nil, err
	}
	keyHash, err := config.ParseKeyHash(o.Network.KeyHash)
	if err != nil {
		return nil, err
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	dev := config.IsDevelopmentChain(o.Network.Name)
	if !dev && o.Coordinator == nil {
		return nil, ErrCoordinatorRequired
	}

	stored, err := Load(store, o.Network.ChainID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		if stored.Deployer != o.Deployer || stored.MockCoordinator != dev {
			return nil, ErrDeploymentMismatch
		}
		logger.Infof("deploy: resuming raffle %s on %s", stored.Raffle, o.Network.Name)
		return resume(ctx, logger, store, l, o, *stored)
	}

	d := Deployment{
		Network:          o.Network.Name,
		ChainID:          o.Network.ChainID,
		Deployer:         o.Deployer,
		MockCoordinator:  dev,
		KeyHash:          keyHash,
		CallbackGasLimit: o.Network.CallbackGasLimit,
		Interval:         o.Network.Interval,
		EntranceFee:      new(big.Int).Set(o.Network.EntranceFee),
		Nonce:            o.Nonce,
	}

	var (
		coordinator vrf.Coordinator
		mockCoord   *mock.Coordinator
	)

	if dev {
		logger.Info("deploy: local network detected, deploying mock coordinator")
		d.VRFCoordinator = d.nextAddress()
		mockCoord, err = newMockCoordinator(logger, store, d.VRFCoordinator)
		if err != nil {
			return nil, err
		}

		d.SubscriptionID, err = mockCoord.CreateSubscription(o.Deployer)
		if err != nil {
			_ = mockCoord.Close()
			return nil, fmt.Errorf("create subscription: %w", err)
		}
		d.Nonce++

		if err := mockCoord.FundSubscription(d.SubscriptionID, o.Network.FundAmount); err != nil {
			_ = mockCoord.Close()
			return nil, fmt.Errorf("fund subscription: %w", err)
		}
		d.Nonce++
		logger.Infof("deploy: subscription %s funded with %s", d.SubscriptionID, o.Network.FundAmount)

		coordinator = mockCoord
	} else {
		d.VRFCoordinator = *o.Network.VRFCoordinator
		d.SubscriptionID = new(big.Int).Set(o.Network.SubscriptionID)
		coordinator = o.Coordinator
	}

	d.Raffle = d.nextAddress()
	r, err := newRaffle(logger, store, l, coordinator, o, d)
	if err != nil {
		closeMock(mockCoord)
		return nil, err
	}

	if dev {
		if err := mockCoord.AddConsumer(d.SubscriptionID, d.Raffle); err != nil {
			_ = r.Close()
			closeMock(mockCoord)
			return nil, fmt.Errorf("add consumer: %w", err)
		}
		d.Nonce++
		mockCoord.BindConsumer(d.Raffle, r)
		logger.Infof("deploy: added raffle as consumer to subscription %s", d.SubscriptionID)
	}

	d.DeployedAt = o.Now()
	if err := store.Put(deploymentKey(d.ChainID), d); err != nil {
		_ = r.Close()
		closeMock(mockCoord)
		return nil, fmt.Errorf("store deployment: %w", err)
	}

	logger.Infof("deploy: raffle deployed at %s", d.Raffle)
	return &Result{
		Deployment:      d,
		Raffle:          r,
		MockCoordinator: mockCoord,
	}, nil
}

func resume(ctx context.Context, logger logging.Logger, store storage.StateStorer, l ledger.Service, o Options, d Deployment) (*Result, error) {
	var (
		coordinator vrf.Coordinator = o.Coordinator
		mockCoord   *mock.Coordinator
		err         error
	)
	if d.MockCoordinator {
		mockCoord, err = newMockCoordinator(logger, store, d.VRFCoordinator)
		if err != nil {
			return nil, err
		}
		coordinator = mockCoord
	}

	r, err := newRaffle(logger, store, l, coordinator, o, d)
	if err != nil {
		closeMock(mockCoord)
		return nil, err
	}

	if mockCoord != nil {
		if err := mockCoord.AddConsumer(d.SubscriptionID, d.Raffle); err != nil {
			_ = r.Close()
			closeMock(mockCoord)
			return nil, fmt.Errorf("add consumer: %w", err)
		}
		mockCoord.BindConsumer(d.Raffle, r)
	}

	return &Result{
		Deployment:      d,
		Raffle:          r,
		MockCoordinator: mockCoord,
		Resumed:         true,
	}, nil
}

func newMockCoordinator(logger logging.Logger, store storage.StateStorer, address common.Address) (*mock.Coordinator, error) {
	c, err := mock.NewCoordinator(logger, store, mock.Options{
		Address:        address,
		BaseFee:        mockBaseFee,
		GasPrice:       mockGasPrice,
		WeiPerUnitLink: mockWeiPerUnitLink,
	})
	if err != nil {
		return nil, fmt.Errorf("mock coordinator: %w", err)
	}
	return c, nil
}

func newRaffle(logger logging.Logger, store storage.StateStorer, l ledger.Service, coordinator vrf.Coordinator, o Options, d Deployment) (*raffle.Service, error) {
	r, err := raffle.New(d.Raffle, logger, store, coordinator, l, raffle.Options{
		EntranceFee:      d.EntranceFee,
		Interval:         d.Interval,
		KeyHash:          d.KeyHash,
		SubscriptionID:   d.SubscriptionID,
		CallbackGasLimit: d.CallbackGasLimit,
		Bus:              o.Bus,
		Now:              o.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("raffle: %w", err)
	}
	return r, nil
}

func closeMock(c *mock.Coordinator) {
	if c != nil {
		_ = c.Close()
	}
}

// nextAddress derives the address of a contract created by the deployer
// at the current nonce and advances the nonce.
func (d *Deployment) nextAddress() common.Address {
	a := crypto.CreateAddress(d.Deployer, d.Nonce)
	d.Nonce++
	return a
}

// Load returns the deployment stored for the chain id.
func Load(store storage.StateStorer, chainID int64) (*Deployment, error) {
	d := new(Deployment)
	if err := store.Get(deploymentKey(chainID), d); err != nil {
		return nil, err
	}
	return d, nil
}

func deploymentKey(chainID int64) string {
	return deploymentKeyPrefix + strconv.FormatInt(chainID, 10)
}
