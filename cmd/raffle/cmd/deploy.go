// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"

	"github.com/ethersphere/raffle/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initDeployCmd() error {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the raffle and its development coordinator",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if (len(args)) > 0 {
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

			n, err := node.NewNode(logger, o)
			if err != nil {
				return err
			}
			defer func() {
				if shutdownErr := n.Shutdown(); shutdownErr != nil && err == nil {
					err = shutdownErr
				}
			}()

			d := n.Deployment()
			cmd.Printf("network: %s\n", d.Network)
			cmd.Printf("chain id: %d\n", d.ChainID)
			cmd.Printf("raffle: %s\n", d.Raffle)
			cmd.Printf("vrf coordinator: %s\n", d.VRFCoordinator)
			cmd.Printf("subscription id: %s\n", d.SubscriptionID)
			cmd.Printf("entrance fee: %s\n", d.EntranceFee)
			cmd.Printf("interval: %s\n", d.Interval)
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
