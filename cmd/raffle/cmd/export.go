// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethersphere/raffle/pkg/deploy"
	"github.com/ethersphere/raffle/pkg/export"
	"github.com/ethersphere/raffle/pkg/node"
	"github.com/ethersphere/raffle/pkg/storage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func (c *command) initExportCmd() error {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the raffle abi and deployed address for the front end",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			v := strings.ToLower(c.config.GetString(optionNameVerbosity))
			logger, err := newLogger(cmd, v)
			if err != nil {
				return fmt.Errorf("new logger: %v", err)
			}

			network, err := c.network()
			if err != nil {
				return err
			}

			stateStore, err := node.InitStateStore(logger, c.config.GetString(optionNameDataDir))
			if err != nil {
				return err
			}
			defer stateStore.Close()

			d, err := deploy.Load(stateStore, network.ChainID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no raffle deployed on %s", network.Name)
				}
				return err
			}

			abiFile := c.config.GetString(optionNameFrontEndABIFile)
			addrFile := c.config.GetString(optionNameFrontEndAddrFile)
			if err := export.New(afero.NewOsFs(), logger).FrontEnd(abiFile, addrFile, d.ChainID, d.Raffle); err != nil {
				return err
			}

			cmd.Printf("exported raffle %s on chain %d\n", d.Raffle, d.ChainID)
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)

	c.root.AddCommand(cmd)
	return nil
}
