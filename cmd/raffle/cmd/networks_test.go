// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethersphere/raffle/cmd/raffle/cmd"
)

func TestNetworksCmd(t *testing.T) {
	var outputBuf bytes.Buffer
	if err := newCommand(t,
		cmd.WithArgs("networks"),
		cmd.WithOutput(&outputBuf),
	).Execute(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(outputBuf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d networks, want 3: %q", len(lines), outputBuf.String())
	}
	for i, want := range []string{
		"hardhat\t31337\tdevelopment",
		"localhost\t31337\tdevelopment",
		"sepolia\t11155111\tlive",
	} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d: got %q, want prefix %q", i, lines[i], want)
		}
	}
}

func TestNetworksCmdFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "networks.yaml")
	if err := ioutil.WriteFile(file, []byte(`networks:
  - name: goerli
    chainId: 5
    vrfCoordinator: "0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D"
    keyHash: "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"
    subscriptionId: "42"
    interval: 30
`), 0644); err != nil {
		t.Fatal(err)
	}

	var outputBuf bytes.Buffer
	if err := newCommand(t,
		cmd.WithArgs("networks", "--networks-file", file),
		cmd.WithOutput(&outputBuf),
	).Execute(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(outputBuf.String(), "goerli\t5\tlive\tentrance fee 10000000000000000\tinterval 30s\n") {
		t.Errorf("goerli not listed: %q", outputBuf.String())
	}
}

func TestNetworksCmdInvalidFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "networks.yaml")
	if err := ioutil.WriteFile(file, []byte("networks:\n  - name: broken\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := newCommand(t,
		cmd.WithArgs("networks", "--networks-file", file),
		cmd.WithOutput(ioutil.Discard),
	).Execute()
	if err == nil {
		t.Fatal("expected error")
	}
}
