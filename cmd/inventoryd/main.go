/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"fmt"
	"os"

	"github.com/kentakayama/inventory-gateway/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "inventoryd",
		Short: "Software inventory gateway",
		Long: `inventoryd serves the open-source flag and remark tables that annotate an
upstream software inventory, proxies the upstream API, and exports the joined
inventory as CSV.

Configuration is read from --config (YAML), then INVENTORY_* environment
variables (INVENTORY_UPSTREAM__BASE_URL sets upstream.base_url), then flags.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	config.BindFlags(root.PersistentFlags())

	load := func(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return nil, nil, err
		}
		logger, err := config.NewLogger(cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		return cfg, logger, nil
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newExportCmd(load))
	root.AddCommand(newFlagCmd(load))
	root.AddCommand(newRemarkCmd(load))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inventoryd %s\n", version)
		},
	})
	return root
}

type loadFunc func(cmd *cobra.Command) (*config.Config, *zap.Logger, error)
