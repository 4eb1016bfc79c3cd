/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kentakayama/inventory-gateway/internal/augment"
	"github.com/kentakayama/inventory-gateway/internal/infra/augmentapi"
	"github.com/spf13/cobra"
)

// newFlagCmd edits open-source flags on a running gateway (augment_api.base_url).
func newFlagCmd(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flag",
		Short: "Mark or unmark software titles as open source",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <software_title_id> <name>",
		Short: "Flag a software title as open source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			c, err := augmentClient(cmd, load)
			if err != nil {
				return err
			}
			flag, err := c.UpsertFlag(cmd.Context(), augment.FlagInput{SoftwareTitleID: id, Name: args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd, flag)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset <software_title_id>",
		Short: "Remove the open-source flag of a software title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			c, err := augmentClient(cmd, load)
			if err != nil {
				return err
			}
			deleted, err := c.DeleteFlag(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"deleted": deleted})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List open-source flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := augmentClient(cmd, load)
			if err != nil {
				return err
			}
			flags, err := c.ListFlags(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, flags)
		},
	})
	return cmd
}

// newRemarkCmd edits remarks on a running gateway. An omitted remark stores "".
func newRemarkCmd(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remark",
		Short: "Set or list software title remarks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <software_title_id> [remark]",
		Short: "Overwrite the remark of a software title",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			var text string
			if len(args) == 2 {
				text = args[1]
			}
			c, err := augmentClient(cmd, load)
			if err != nil {
				return err
			}
			remark, err := c.UpsertRemark(cmd.Context(), augment.RemarkInput{SoftwareTitleID: id, Remark: text})
			if err != nil {
				return err
			}
			return printJSON(cmd, remark)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := augmentClient(cmd, load)
			if err != nil {
				return err
			}
			remarks, err := c.ListRemarks(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, remarks)
		},
	})
	return cmd
}

func augmentClient(cmd *cobra.Command, load loadFunc) (*augmentapi.Client, error) {
	cfg, logger, err := load(cmd)
	if err != nil {
		return nil, err
	}
	return augmentapi.NewClient(cfg.AugmentAPI, logger.Named("augment_api"))
}

func parseTitleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("software_title_id must be an integer, got %q", raw)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
