// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v2"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")

	developmentChains = []string{"hardhat", "localhost"}
)

// IsDevelopmentChain reports whether a mock coordinator is deployed on the
// named network instead of using a live one.
func IsDevelopmentChain(name string) bool {
	for _, n := range developmentChains {
		if n == name {
			return true
		}
	}
	return false
}

// Validate checks that the configuration is complete enough to deploy a
// raffle on the named network.
func (c *NetworkConfig) Validate() error {
	if _, err := ParseKeyHash(c.KeyHash); err != nil {
		return err
	}
	if c.CallbackGasLimit == 0 {
		return errors.New("config error: callbackGasLimit is missing")
	}
	if c.Interval <= 0 {
		return errors.New("config error: interval is missing")
	}
	if c.EntranceFee == nil || c.EntranceFee.Sign() < 0 {
		return errors.New("config error: entranceFee is invalid")
	}
	if IsDevelopmentChain(c.Name) {
		if c.FundAmount == nil || c.FundAmount.Sign() <= 0 {
			return errors.New("config error: fundAmount is missing")
		}
		return nil
	}
	if c.VRFCoordinator == nil || *c.VRFCoordinator == (common.Address{}) {
		return errors.New("config error: vrfCoordinator is missing")
	}
	if c.SubscriptionID == nil || c.SubscriptionID.Sign() <= 0 {
		return errors.New("config error: subscriptionId is missing")
	}
	return nil
}

// ParseKeyHash decodes a 0x prefixed 32-byte hex string.
func ParseKeyHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.New("config error: keyHash must be a 32-byte hex string")
	}
	return common.BytesToHash(b), nil
}

// Networks maps network names and chain ids to their configuration.
type Networks struct {
	configs  map[int64]*NetworkConfig
	chainIDs map[string]int64
}

// DefaultNetworks returns the built-in networks: sepolia and the local
// development chains hardhat and localhost.
func DefaultNetworks() *Networks {
	n := &Networks{
		configs:  make(map[int64]*NetworkConfig),
		chainIDs: make(map[string]int64),
	}
	for _, chainID := range []int64{sepoliaChainID, localhostChainID} {
		cfg, _ := GetNetworkConfig(chainID)
		n.configs[chainID] = cfg
		n.chainIDs[cfg.Name] = chainID
	}
	n.chainIDs["hardhat"] = localhostChainID
	return n
}

// Lookup returns the configuration of the named network.
func (n *Networks) Lookup(name string) (*NetworkConfig, error) {
	chainID, ok := n.chainIDs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
	cfg, ok := n.configs[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: no config for chain id %d", ErrUnknownNetwork, chainID)
	}
	c := cfg.clone()
	c.Name = name
	return c, nil
}

// ByChainID returns the configuration stored for the chain id.
func (n *Networks) ByChainID(chainID int64) (*NetworkConfig, bool) {
	cfg, ok := n.configs[chainID]
	if !ok {
		return nil, false
	}
	return cfg.clone(), true
}

// Names returns the known network names in alphabetical order.
func (n *Networks) Names() []string {
	names := make([]string, 0, len(n.chainIDs))
	for name := range n.chainIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type networksYAML struct {
	Networks []networkYAML `yaml:"networks"`
}

type networkYAML struct {
	Name             string `yaml:"name"`
	ChainID          int64  `yaml:"chainId"`
	VRFCoordinator   string `yaml:"vrfCoordinator"`
	KeyHash          string `yaml:"keyHash"`
	SubscriptionID   string `yaml:"subscriptionId"`
	CallbackGasLimit uint32 `yaml:"callbackGasLimit"`
	Interval         uint64 `yaml:"interval"`
	FundAmount       string `yaml:"fundAmount"`
	EntranceFee      string `yaml:"entranceFee"`
}

// Merge reads network definitions in YAML and adds them to the table. A
// definition for a known chain id replaces the fields it sets.
func (n *Networks) Merge(r io.Reader) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}

	var doc networksYAML
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return fmt.Errorf("parse networks: %w", err)
	}

	for _, y := range doc.Networks {
		if y.Name == "" || y.ChainID <= 0 {
			return errors.New("parse networks: name and chainId are required")
		}

		cfg, ok := n.configs[y.ChainID]
		if !ok {
			cfg, _ = GetNetworkConfig(y.ChainID)
		} else {
			cfg = cfg.clone()
		}
		cfg.Name = y.Name

		if y.VRFCoordinator != "" {
			if !common.IsHexAddress(y.VRFCoordinator) {
				return fmt.Errorf("parse networks: %s: invalid vrfCoordinator %q", y.Name, y.VRFCoordinator)
			}
			a := common.HexToAddress(y.VRFCoordinator)
			cfg.VRFCoordinator = &a
		}
		if y.KeyHash != "" {
			cfg.KeyHash = y.KeyHash
		}
		if y.SubscriptionID != "" {
			if cfg.SubscriptionID, err = parseInt(y.Name, "subscriptionId", y.SubscriptionID); err != nil {
				return err
			}
		}
		if y.CallbackGasLimit != 0 {
			cfg.CallbackGasLimit = y.CallbackGasLimit
		}
		if y.Interval != 0 {
			cfg.Interval = time.Duration(y.Interval) * time.Second
		}
		if y.FundAmount != "" {
			if cfg.FundAmount, err = parseInt(y.Name, "fundAmount", y.FundAmount); err != nil {
				return err
			}
		}
		if y.EntranceFee != "" {
			if cfg.EntranceFee, err = parseInt(y.Name, "entranceFee", y.EntranceFee); err != nil {
				return err
			}
		}

		n.configs[y.ChainID] = cfg
		n.chainIDs[y.Name] = y.ChainID
	}
	return nil
}

func parseInt(network, field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("parse networks: %s: invalid %s %q", network, field, s)
	}
	return v, nil
}

// LoadNetworks returns the built-in networks merged with the definitions
// in the YAML file at path. An empty path returns the built-in networks.
func LoadNetworks(path string) (*Networks, error) {
	n := DefaultNetworks()
	if path == "" {
		return n, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := n.Merge(f); err != nil {
		return nil, err
	}
	return n, nil
}
