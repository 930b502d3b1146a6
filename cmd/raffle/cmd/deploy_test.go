// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethersphere/raffle/cmd/raffle/cmd"
)

const hardhatRaffle = "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9"

func TestDeployAndExportCmd(t *testing.T) {
	dataDir := t.TempDir()
	frontEnd := t.TempDir()
	abiFile := filepath.Join(frontEnd, "constants", "abi.json")
	addrFile := filepath.Join(frontEnd, "constants", "contractAddresses.json")

	run := func(args ...string) string {
		t.Helper()
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs(append(args,
				"--data-dir", dataDir,
				"--verbosity", "silent",
				"--front-end-abi-file", abiFile,
				"--front-end-addresses-file", addrFile,
			)...),
			cmd.WithOutput(&outputBuf),
		).Execute(); err != nil {
			t.Fatal(err)
		}
		return outputBuf.String()
	}

	out := run("deploy")
	if !strings.Contains(out, "raffle: "+hardhatRaffle+"\n") {
		t.Fatalf("unexpected deploy output %q", out)
	}
	if !strings.Contains(out, "chain id: 31337\n") {
		t.Errorf("unexpected deploy output %q", out)
	}

	// deploying again resumes the stored deployment
	if again := run("deploy"); again != out {
		t.Errorf("got redeploy output %q, want %q", again, out)
	}

	out = run("export")
	if out != "exported raffle "+hardhatRaffle+" on chain 31337\n" {
		t.Errorf("unexpected export output %q", out)
	}

	data, err := ioutil.ReadFile(addrFile)
	if err != nil {
		t.Fatal(err)
	}
	var addresses map[string][]string
	if err := json.Unmarshal(data, &addresses); err != nil {
		t.Fatal(err)
	}
	if got := addresses["31337"]; len(got) != 1 || got[0] != hardhatRaffle {
		t.Errorf("got addresses %v", addresses)
	}

	abi, err := ioutil.ReadFile(abiFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(abi, []byte(`"enterRaffle"`)) {
		t.Error("abi does not describe enterRaffle")
	}
}

func TestExportCmdNoDeployment(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("export", "--data-dir", t.TempDir(), "--verbosity", "silent"),
		cmd.WithOutput(ioutil.Discard),
	).Execute()
	if err == nil || !strings.Contains(err.Error(), "no raffle deployed on hardhat") {
		t.Fatalf("got error %v", err)
	}
}

func TestDeployCmdLiveNetwork(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("deploy", "--network", "sepolia", "--data-dir", "", "--verbosity", "silent"),
		cmd.WithOutput(ioutil.Discard),
	).Execute()
	if err == nil {
		t.Fatal("expected error without a coordinator binding")
	}
}

func TestDeployCmdUnknownNetwork(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("deploy", "--network", "mainnet", "--data-dir", "", "--verbosity", "silent"),
		cmd.WithOutput(ioutil.Discard),
	).Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown network") {
		t.Fatalf("got error %v", err)
	}
}
