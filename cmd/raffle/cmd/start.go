// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle"
	"github.com/ethersphere/raffle/pkg/api"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initStartCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Deploy or resume a raffle and serve it",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %v", err)
			}

			o, err := c.nodeOptions()
			if err != nil {
				return err
			}
			o.APIAddr = c.config.GetString(optionNameAPIAddr)
			o.CORSAllowedOrigins = c.config.GetStringSlice(optionCORSAllowedOrigins)
			o.KeeperEnabled = c.config.GetBool(optionNameKeeperEnable)
			o.KeeperInterval = c.config.GetDuration(optionNameKeeperInterval)
			o.RequestTimeout = c.config.GetDuration(optionNameRequestTimeout)
			o.AutoFulfilInterval = c.config.GetDuration(optionNameAutoFulfilInterval)
			o.AdminEnabled = c.config.GetBool(optionNameAdminEnable)
			o.RateLimit = c.config.GetDuration(optionNameRateLimit)
			o.RateBurst = c.config.GetInt(optionNameRateBurst)

			o.FaucetAmount, err = parseWei(optionNameFaucetAmount, c.config.GetString(optionNameFaucetAmount))
			if err != nil {
				return err
			}

			logger.Infof("version: %v", raffle.Version)

			n, err := node.NewNode(logger, o)
			if err != nil {
				return err
			}

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			sig := <-interruptChannel
			logger.Debugf("received signal: %v", sig)

			return shutdown(logger, n, interruptChannel)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	cmd.Flags().String(optionNameAPIAddr, ":8080", "HTTP API listen address, empty to disable")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().Bool(optionNameKeeperEnable, true, "check and perform upkeep periodically")
	cmd.Flags().Duration(optionNameKeeperInterval, 10*time.Second, "upkeep check interval")
	cmd.Flags().Duration(optionNameRequestTimeout, 0, "reset a raffle stuck in calculating after this duration, zero to wait forever")
	cmd.Flags().Duration(optionNameAutoFulfilInterval, 5*time.Second, "interval at which the development coordinator answers pending requests, zero to disable")
	cmd.Flags().String(optionNameFaucetAmount, "", "amount in wei minted by the faucet endpoint, empty to disable")
	cmd.Flags().Bool(optionNameAdminEnable, false, "enable the raffle reset endpoint")
	cmd.Flags().Duration(optionNameRateLimit, api.DefaultRateLimit, "interval at which a client may issue one state changing request")
	cmd.Flags().Int(optionNameRateBurst, api.DefaultRateBurst, "state changing requests a client may issue at once")

	c.root.AddCommand(cmd)
	return nil
}

// nodeOptions returns the node options shared by the start and deploy
// commands.
func (c *command) nodeOptions() (*node.Options, error) {
	network, err := c.network()
	if err != nil {
		return nil, err
	}
	deployer, err := c.deployer()
	if err != nil {
		return nil, err
	}
	devAccountBalance, err := parseWei(optionNameDevAccountBalance, c.config.GetString(optionNameDevAccountBalance))
	if err != nil {
		return nil, err
	}
	var accounts []common.Address
	for _, a := range c.config.GetStringSlice(optionNameDevAccounts) {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid dev account %q", a)
		}
		accounts = append(accounts, common.HexToAddress(a))
	}

	return &node.Options{
		DataDir:           c.config.GetString(optionNameDataDir),
		Network:           network,
		Deployer:          deployer,
		Nonce:             c.config.GetUint64(optionNameNonce),
		DevAccounts:       accounts,
		DevAccountBalance: devAccountBalance,
		UpdateFrontEnd:    c.config.GetBool(optionNameUpdateFrontEnd),
		FrontEndABIFile:   c.config.GetString(optionNameFrontEndABIFile),
		FrontEndAddrFile:  c.config.GetString(optionNameFrontEndAddrFile),
	}, nil
}

// shutdown stops the node. Another signal on interrupt terminates the
// process if stopping blocks for too long.
func shutdown(logger logging.Logger, n *node.Node, interrupt <-chan os.Signal) error {
	logger.Info("shutting down")

	done := make(chan error, 1)
	go func() {
		done <- n.Shutdown()
	}()

	select {
	case sig := <-interrupt:
		logger.Infof("received signal: %v", sig)
		return nil
	case err := <-done:
		if err != nil {
			logger.Errorf("shutdown: %v", err)
			return err
		}
		return nil
	}
}
