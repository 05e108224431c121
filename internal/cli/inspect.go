// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cli

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "history <memory-id>",
		Short: "Show the change history of a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			changes, err := e.components.History.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, changes)
		},
	}
}

func newHealthCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize memories per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			health, err := e.components.Memories.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, health)
		},
	}
}

func newRecalcCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc <cluster-id>",
		Short: "Recompute a cluster's centroid from its active members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			c, err := e.components.Clusters.RecalculateCentroid(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, c)
		},
	}
}
