// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package export writes the files a front end needs to talk to a deployed
// raffle: the raffle ABI and a registry of raffle addresses per chain id.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/raffle/pkg/logging"
	"github.com/ethersphere/raffle/pkg/raffle"
	"github.com/spf13/afero"
)

const (
	DefaultABIFile       = "../nextjs-raffledraw-frontend/constants/abi.json"
	DefaultAddressesFile = "../nextjs-raffledraw-frontend/constants/contractAddresses.json"
)

// Addresses maps a chain id to the raffle addresses deployed on it.
type Addresses map[string][]string

type Exporter struct {
	fs     afero.Fs
	logger logging.Logger
}

func New(fs afero.Fs, logger logging.Logger) *Exporter {
	return &Exporter{
		fs:     fs,
		logger: logger,
	}
}

// WriteABI writes the raffle ABI to path.
func (e *Exporter) WriteABI(path string) error {
	if _, err := raffle.ParseABI(); err != nil {
		return fmt.Errorf("parse abi: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raffle.ABIJSON)); err != nil {
		return err
	}

	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(e.fs, path, buf.Bytes(), 0644)
}

// UpdateContractAddresses adds the raffle address to the list of the chain
// id in the registry at path. The file is created when missing and an
// address already listed is not added again.
func (e *Exporter) UpdateContractAddresses(path string, chainID int64, address common.Address) (Addresses, error) {
	addresses := make(Addresses)

	data, err := afero.ReadFile(e.fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		e.logger.Info("export: no existing addresses file, creating new one")
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &addresses); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	key := strconv.FormatInt(chainID, 10)
	addr := address.Hex()
	if !contains(addresses[key], addr) {
		addresses[key] = append(addresses[key], addr)
	}

	out, err := json.MarshalIndent(addresses, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(e.fs, path, out, 0644); err != nil {
		return nil, err
	}
	return addresses, nil
}

// FrontEnd writes both the ABI and the address registry.
func (e *Exporter) FrontEnd(abiPath, addressesPath string, chainID int64, address common.Address) error {
	e.logger.Info("export: updating front end")
	if err := e.WriteABI(abiPath); err != nil {
		return fmt.Errorf("write abi: %w", err)
	}
	if _, err := e.UpdateContractAddresses(addressesPath, chainID, address); err != nil {
		return fmt.Errorf("update contract addresses: %w", err)
	}
	e.logger.Info("export: front end updated")
	return nil
}

func contains(list []string, addr string) bool {
	for _, a := range list {
		if common.IsHexAddress(a) && common.HexToAddress(a).Hex() == addr {
			return true
		}
	}
	return false
}
