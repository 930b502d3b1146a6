// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config_test

import (
	"errors"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/config"
	"github.com/google/go-cmp/cmp"
)

func TestGetNetworkConfig(t *testing.T) {
	sepolia, ok := config.GetNetworkConfig(11155111)
	if !ok {
		t.Fatal("sepolia not found")
	}
	if sepolia.Name != "sepolia" {
		t.Fatalf("got name %q, want sepolia", sepolia.Name)
	}
	if sepolia.VRFCoordinator == nil || *sepolia.VRFCoordinator != common.HexToAddress("0x9DdfaCa8183c41ad55329BdeeD9F6A8d53168B1B") {
		t.Fatalf("got coordinator %v", sepolia.VRFCoordinator)
	}
	if sepolia.CallbackGasLimit != 500000 || sepolia.Interval != 120*time.Second {
		t.Fatalf("got callback gas limit %d and interval %s", sepolia.CallbackGasLimit, sepolia.Interval)
	}
	if err := sepolia.Validate(); err != nil {
		t.Fatal(err)
	}

	localhost, ok := config.GetNetworkConfig(31337)
	if !ok {
		t.Fatal("localhost not found")
	}
	wantFund, _ := new(big.Int).SetString("1000000000000000000000", 10)
	if localhost.VRFCoordinator != nil || localhost.FundAmount.Cmp(wantFund) != 0 {
		t.Fatalf("got coordinator %v and fund amount %s", localhost.VRFCoordinator, localhost.FundAmount)
	}
	if err := localhost.Validate(); err != nil {
		t.Fatal(err)
	}

	if _, ok := config.GetNetworkConfig(1); ok {
		t.Fatal("mainnet should not be configured")
	}
}

func TestIsDevelopmentChain(t *testing.T) {
	for name, want := range map[string]bool{
		"hardhat":   true,
		"localhost": true,
		"sepolia":   false,
		"":          false,
	} {
		if got := config.IsDevelopmentChain(name); got != want {
			t.Errorf("%q: got %v, want %v", name, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.NetworkConfig {
		cfg, _ := config.GetNetworkConfig(11155111)
		return cfg
	}

	for _, tc := range []struct {
		name   string
		modify func(*config.NetworkConfig)
	}{
		{name: "short key hash", modify: func(c *config.NetworkConfig) { c.KeyHash = "0x1234" }},
		{name: "key hash without prefix", modify: func(c *config.NetworkConfig) { c.KeyHash = strings.TrimPrefix(c.KeyHash, "0x") }},
		{name: "key hash not hex", modify: func(c *config.NetworkConfig) { c.KeyHash = "0x" + strings.Repeat("zz", 32) }},
		{name: "missing callback gas limit", modify: func(c *config.NetworkConfig) { c.CallbackGasLimit = 0 }},
		{name: "missing interval", modify: func(c *config.NetworkConfig) { c.Interval = 0 }},
		{name: "missing coordinator", modify: func(c *config.NetworkConfig) { c.VRFCoordinator = nil }},
		{name: "missing subscription", modify: func(c *config.NetworkConfig) { c.SubscriptionID = nil }},
		{name: "negative entrance fee", modify: func(c *config.NetworkConfig) { c.EntranceFee = big.NewInt(-1) }},
		{name: "development chain without fund amount", modify: func(c *config.NetworkConfig) { c.Name = "hardhat" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNetworksLookup(t *testing.T) {
	n := config.DefaultNetworks()

	if diff := cmp.Diff([]string{"hardhat", "localhost", "sepolia"}, n.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	hardhat, err := n.Lookup("hardhat")
	if err != nil {
		t.Fatal(err)
	}
	if hardhat.Name != "hardhat" || hardhat.ChainID != 31337 {
		t.Fatalf("got %s on chain %d", hardhat.Name, hardhat.ChainID)
	}

	// lookups return copies
	hardhat.FundAmount.SetInt64(1)
	localhost, err := n.Lookup("localhost")
	if err != nil {
		t.Fatal(err)
	}
	if localhost.FundAmount.Cmp(big.NewInt(1)) == 0 {
		t.Fatal("lookup shares state")
	}

	if _, err := n.Lookup("mainnet"); !errors.Is(err, config.ErrUnknownNetwork) {
		t.Fatalf("got error %v, want %v", err, config.ErrUnknownNetwork)
	}
}

func TestNetworksMerge(t *testing.T) {
	n := config.DefaultNetworks()

	err := n.Merge(strings.NewReader(`
networks:
  - name: sepolia
    chainId: 11155111
    interval: 300
    entranceFee: "20000000000000000"
  - name: anvil
    chainId: 31338
    keyHash: "0x6c3699283bda56ad74f6b855546325b68d482e983852a7e34c2d6a8c3f0a5e2a"
    vrfCoordinator: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    subscriptionId: "7"
`))
	if err != nil {
		t.Fatal(err)
	}

	sepolia, err := n.Lookup("sepolia")
	if err != nil {
		t.Fatal(err)
	}
	if sepolia.Interval != 300*time.Second {
		t.Fatalf("got interval %s, want 5m", sepolia.Interval)
	}
	if sepolia.EntranceFee.Cmp(big.NewInt(20_000_000_000_000_000)) != 0 {
		t.Fatalf("got entrance fee %s", sepolia.EntranceFee)
	}
	if sepolia.VRFCoordinator == nil {
		t.Fatal("override dropped the coordinator")
	}

	anvil, err := n.Lookup("anvil")
	if err != nil {
		t.Fatal(err)
	}
	if err := anvil.Validate(); err != nil {
		t.Fatal(err)
	}
	if got, ok := n.ByChainID(31338); !ok || got.SubscriptionID.Int64() != 7 {
		t.Fatalf("got %+v", got)
	}

	for _, doc := range []string{
		"networks:\n  - chainId: 1\n",
		"networks:\n  - name: x\n    chainId: 1\n    vrfCoordinator: nope\n",
		"networks:\n  - name: x\n    chainId: 1\n    fundAmount: lots\n",
		"networks:\n  - name: x\n    chainId: 1\n    unknown: field\n",
	} {
		if err := config.DefaultNetworks().Merge(strings.NewReader(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestLoadNetworks(t *testing.T) {
	dir, err := ioutil.TempDir("", "raffle-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "networks.yaml")
	if err := ioutil.WriteFile(path, []byte("networks:\n  - name: localhost\n    chainId: 31337\n    callbackGasLimit: 100000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := config.LoadNetworks(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := n.Lookup("hardhat")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CallbackGasLimit != 100000 {
		t.Fatalf("got callback gas limit %d, want 100000", cfg.CallbackGasLimit)
	}

	if _, err := config.LoadNetworks(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := config.LoadNetworks(""); err != nil {
		t.Fatal(err)
	}
}
