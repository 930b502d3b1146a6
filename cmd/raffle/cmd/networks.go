// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/ethersphere/raffle/pkg/config"
	"github.com/spf13/cobra"
)

func (c *command) initNetworksCmd() error {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List the networks a raffle can be deployed on",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			networks, err := config.LoadNetworks(c.config.GetString(optionNameNetworksFile))
			if err != nil {
				return fmt.Errorf("load networks: %w", err)
			}

			for _, name := range networks.Names() {
				n, err := networks.Lookup(name)
				if err != nil {
					return err
				}
				kind := "live"
				if config.IsDevelopmentChain(name) {
					kind = "development"
				}
				cmd.Printf("%s\t%d\t%s\tentrance fee %s\tinterval %s\n", name, n.ChainID, kind, n.EntranceFee, n.Interval)
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	cmd.Flags().String(optionNameNetworksFile, "", "YAML file with additional network definitions")

	c.root.AddCommand(cmd)
	return nil
}
