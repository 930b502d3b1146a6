// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/ethersphere/raffle/pkg/export"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameDataDir            = "data-dir"
	optionNameNetwork            = "network"
	optionNameNetworksFile       = "networks-file"
	optionNameDeployer           = "deployer"
	optionNameNonce              = "nonce"
	optionNameVerbosity          = "verbosity"
	optionNameAPIAddr            = "api-addr"
	optionCORSAllowedOrigins     = "cors-allowed-origins"
	optionNameKeeperEnable       = "keeper-enable"
	optionNameKeeperInterval     = "keeper-interval"
	optionNameRequestTimeout     = "request-timeout"
	optionNameAutoFulfilInterval = "auto-fulfil-interval"
	optionNameDevAccounts        = "dev-accounts"
	optionNameDevAccountBalance  = "dev-account-balance"
	optionNameFaucetAmount       = "faucet-amount"
	optionNameAdminEnable        = "admin-enable"
	optionNameRateLimit          = "rate-limit"
	optionNameRateBurst          = "rate-burst"
	optionNameUpdateFrontEnd     = "update-front-end"
	optionNameFrontEndABIFile    = "front-end-abi-file"
	optionNameFrontEndAddrFile   = "front-end-addresses-file"
)

// hardhat default accounts
var devAccounts = []string{
	"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	"0x90F79bf6EB2c4f870365E785982E1f101E93b906",
	"0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65",
}

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "raffle",
			Short:         "Verifiably random raffle",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()

	if err := c.initStartCmd(); err != nil {
		return nil, err
	}

	if err := c.initDeployCmd(); err != nil {
		return nil, err
	}

	if err := c.initExportCmd(); err != nil {
		return nil, err
	}

	if err := c.initNetworksCmd(); err != nil {
		return nil, err
	}

	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.raffle.yaml)")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	configName := ".raffle"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".raffle" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("raffle")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if c.homeDir != "" && c.cfgFile == "" {
		c.cfgFile = filepath.Join(c.homeDir, configName+".yaml")
	}

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

// setNetworkFlags adds the flags shared by the commands that open a
// deployment.
func (c *command) setNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".raffle"), "data directory, empty for an in-memory state store")
	cmd.Flags().String(optionNameNetwork, "hardhat", "network to deploy the raffle on")
	cmd.Flags().String(optionNameNetworksFile, "", "YAML file with additional network definitions")
	cmd.Flags().String(optionNameDeployer, devAccounts[0], "deployer account address")
	cmd.Flags().Uint64(optionNameNonce, 0, "deployer account nonce before a fresh deployment")
	cmd.Flags().StringSlice(optionNameDevAccounts, devAccounts, "accounts funded on a fresh development deployment")
	cmd.Flags().String(optionNameDevAccountBalance, "10000000000000000000000", "balance in wei of each development account")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	cmd.Flags().Bool(optionNameUpdateFrontEnd, false, "write the raffle abi and address to the front end files")
	cmd.Flags().String(optionNameFrontEndABIFile, export.DefaultABIFile, "front end abi file")
	cmd.Flags().String(optionNameFrontEndAddrFile, export.DefaultAddressesFile, "front end contract addresses file")
}

func (c *command) network() (*config.NetworkConfig, error) {
	networks, err := config.LoadNetworks(c.config.GetString(optionNameNetworksFile))
	if err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}
	return networks.Lookup(c.config.GetString(optionNameNetwork))
}

func (c *command) deployer() (common.Address, error) {
	v := c.config.GetString(optionNameDeployer)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid deployer address %q", v)
	}
	return common.HexToAddress(v), nil
}

// parseWei parses a decimal wei amount. An empty value is nil.
func parseWei(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func newLogger(cmd *cobra.Command, verbosity string) (logging.Logger, error) {
	var logger logging.Logger
	switch verbosity {
	case "0", "silent":
		logger = logging.New(ioutil.Discard, 0)
	case "1", "error":
		logger = logging.New(cmd.OutOrStdout(), logrus.ErrorLevel)
	case "2", "warn":
		logger = logging.New(cmd.OutOrStdout(), logrus.WarnLevel)
	case "3", "info":
		logger = logging.New(cmd.OutOrStdout(), logrus.InfoLevel)
	case "4", "debug":
		logger = logging.New(cmd.OutOrStdout(), logrus.DebugLevel)
	case "5", "trace":
		logger = logging.New(cmd.OutOrStdout(), logrus.TraceLevel)
	default:
		return nil, fmt.Errorf("unknown verbosity level %q", verbosity)
	}
	return logger, nil
}
