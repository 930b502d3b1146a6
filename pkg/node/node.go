// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node wires the raffle services together: state store, ledger,
// deployment, upkeep keeper and the HTTP API.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/api"
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/export"
	"github.com/ethersphere/raffle/pkg/keeper"
	"github.com/ethersphere/raffle/pkg/ledger"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/metrics"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/ethersphere/raffle/pkg/vrf"
	"github.com/ethersphere/raffle/pkg/vrf/mock"
	"github.com/hashicorp/go-multierror"
	"github.com/libp2p/go-eventbus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var ErrShutdownInProgress = errors.New("shutdown in progress")

type Node struct {
	logger         logging.Logger
	errorLogWriter *io.PipeWriter

	stateStoreCloser io.Closer
	raffleCloser     io.Closer
	coordinator      *mock.Coordinator
	keeperCloser     io.Closer
	apiCloser        io.Closer
	apiServer        *http.Server
	apiAddr          net.Addr

	raffle     *raffle.Service
	ledger     *ledger.Ledger
	deployment deploy.Deployment

	shutdownInProgress bool
	shutdownMutex      sync.Mutex
}

type Options struct {
	DataDir  string
	Network  *config.NetworkConfig
	Deployer common.Address
	// Nonce is the deployer account nonce before a fresh deployment.
	Nonce uint64
	// Coordinator serves randomness on live networks. Development chains
	// get a mock coordinator.
	Coordinator vrf.Coordinator

	// DevAccounts are funded with DevAccountBalance on the first deployment
	// to a development chain.
	DevAccounts       []common.Address
	DevAccountBalance *big.Int

	// AutoFulfilInterval lets the mock coordinator answer pending requests
	// on its own. Zero leaves fulfilment to the api.
	AutoFulfilInterval time.Duration

	KeeperEnabled  bool
	KeeperInterval time.Duration
	RequestTimeout time.Duration

	APIAddr            string
	CORSAllowedOrigins []string
	FaucetAmount       *big.Int
	AdminEnabled       bool
	RateLimit          time.Duration
	RateBurst          int

	// UpdateFrontEnd writes the raffle ABI and address to the front end
	// files after deployment.
	UpdateFrontEnd   bool
	FrontEndABIFile  string
	FrontEndAddrFile string
	FileSystem       afero.Fs
}

// NewNode deploys or resumes the raffle described by o and starts serving
// it.
func NewNode(logger logging.Logger, o *Options) (n *Node, err error) {
	start := time.Now()

	if o.Network == nil {
		return nil, errors.New("missing network config")
	}

	n = &Node{
		logger:         logger,
		errorLogWriter: logger.WriterLevel(logrus.ErrorLevel),
	}

	defer func(n *Node) {
		if err != nil {
			if shutdownErr := n.Shutdown(); shutdownErr != nil && !errors.Is(shutdownErr, ErrShutdownInProgress) {
				logger.Errorf("shutdown after failed start: %v", shutdownErr)
			}
		}
	}(n)

	stateStore, err := InitStateStore(logger, o.DataDir)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	n.stateStoreCloser = stateStore

	n.ledger = ledger.New(logger, stateStore)

	result, err := deploy.Deploy(context.Background(), logger, stateStore, n.ledger, deploy.Options{
		Network:     o.Network,
		Deployer:    o.Deployer,
		Nonce:       o.Nonce,
		Coordinator: o.Coordinator,
		Bus:         eventbus.NewBus(),
	})
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	n.raffle = result.Raffle
	n.raffleCloser = result.Raffle
	n.coordinator = result.MockCoordinator
	n.deployment = result.Deployment

	if result.MockCoordinator != nil && !result.Resumed {
		if err := fundDevAccounts(n.ledger, o.DevAccounts, o.DevAccountBalance); err != nil {
			return nil, fmt.Errorf("fund dev accounts: %w", err)
		}
	}

	if o.UpdateFrontEnd {
		fs := o.FileSystem
		if fs == nil {
			fs = afero.NewOsFs()
		}
		if err := export.New(fs, logger).FrontEnd(o.FrontEndABIFile, o.FrontEndAddrFile, n.deployment.ChainID, n.deployment.Raffle); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}

	if n.coordinator != nil && o.AutoFulfilInterval > 0 {
		n.coordinator.Start(o.AutoFulfilInterval)
	}

	var keeperService *keeper.Keeper
	if o.KeeperEnabled {
		keeperService = keeper.New(logger, n.raffle, keeper.Options{
			CheckInterval:  o.KeeperInterval,
			RequestTimeout: o.RequestTimeout,
		})
		n.keeperCloser = keeperService
	}

	nodeMetrics := newMetrics(o.Network.Name)
	nodeMetrics.Info.Set(1)

	components := []metrics.Collector{logger, nodeMetrics, n.raffle, n.ledger}
	if n.coordinator != nil {
		components = append(components, n.coordinator)
	}
	if keeperService != nil {
		components = append(components, keeperService)
	}

	if o.APIAddr != "" {
		apiOptions := api.Options{
			Raffle:             n.raffle,
			Ledger:             n.ledger,
			Logger:             logger,
			CORSAllowedOrigins: o.CORSAllowedOrigins,
			FaucetAmount:       o.FaucetAmount,
			AdminEnabled:       o.AdminEnabled,
			RateLimit:          o.RateLimit,
			RateBurst:          o.RateBurst,
		}
		if n.coordinator != nil {
			apiOptions.Coordinator = n.coordinator
		}
		if keeperService != nil {
			apiOptions.Keeper = keeperService
		}

		registry := metrics.NewRegistry(components...)
		apiOptions.MetricsRegistry = registry
		apiService := api.New(apiOptions)
		registry.MustRegister(apiService.Metrics()...)

		apiListener, err := net.Listen("tcp", o.APIAddr)
		if err != nil {
			return nil, fmt.Errorf("api listener: %w", err)
		}
		n.apiAddr = apiListener.Addr()

		apiServer := &http.Server{
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           apiService,
			ErrorLog:          log.New(n.errorLogWriter, "", 0),
		}

		go func() {
			logger.Infof("api address: %s", apiListener.Addr())

			if err := apiServer.Serve(apiListener); err != nil && err != http.ErrServerClosed {
				logger.Debugf("api server: %v", err)
				logger.Error("unable to serve api")
			}
		}()

		n.apiServer = apiServer
		n.apiCloser = apiService
	}

	nodeMetrics.StartupDuration.Observe(time.Since(start).Seconds())
	logger.Infof("raffle %s ready on %s, entrance fee %s, interval %s", n.deployment.Raffle, o.Network.Name, n.deployment.EntranceFee, n.deployment.Interval)

	return n, nil
}

func fundDevAccounts(l *ledger.Ledger, accounts []common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	for _, a := range accounts {
		if err := l.Mint(a, amount); err != nil {
			return fmt.Errorf("mint %s: %w", a, err)
		}
	}
	return nil
}

func (n *Node) Raffle() *raffle.Service {
	return n.raffle
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Coordinator returns the mock coordinator of a development chain, nil
// otherwise.
func (n *Node) Coordinator() *mock.Coordinator {
	return n.coordinator
}

func (n *Node) Deployment() deploy.Deployment {
	return n.deployment
}

// APIAddr returns the address the api listens on, nil without api.
func (n *Node) APIAddr() net.Addr {
	return n.apiAddr
}

func (n *Node) Shutdown() error {
	var mErr error

	// if a shutdown is already in process, return here
	n.shutdownMutex.Lock()
	if n.shutdownInProgress {
		n.shutdownMutex.Unlock()
		return ErrShutdownInProgress
	}
	n.shutdownInProgress = true
	n.shutdownMutex.Unlock()

	// tryClose is a convenient closure which decrease
	// repetitive io.Closer tryClose procedure.
	tryClose := func(c io.Closer, errMsg string) {
		if c == nil {
			return
		}
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}

	tryClose(n.apiCloser, "api")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var eg errgroup.Group
	if n.apiServer != nil {
		eg.Go(func() error {
			if err := n.apiServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
	}
	if n.keeperCloser != nil {
		eg.Go(func() error {
			if err := n.keeperCloser.Close(); err != nil {
				return fmt.Errorf("keeper: %w", err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	// the coordinator is stopped before the raffle it calls back into
	if n.coordinator != nil {
		tryClose(n.coordinator, "vrf coordinator")
	}
	tryClose(n.raffleCloser, "raffle")
	tryClose(n.stateStoreCloser, "statestore")
	tryClose(n.errorLogWriter, "error log writer")

	return mErr
}
