// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cli

import (
	"github.com/cognitivecomputations/agi-mcp-server/internal/server"
	"github.com/spf13/cobra"
)

func newArchiveCmd(open opener) *cobra.Command {
	var (
		minAgeDays    int
		maxImportance float64
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive old, unimportant, rarely accessed memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			criteria := server.ArchiveCriteria(e.cfg)
			if cmd.Flags().Changed("min-age-days") {
				criteria.MinAgeDays = minAgeDays
			}
			if cmd.Flags().Changed("max-importance") {
				criteria.MaxImportance = maxImportance
			}

			report, err := e.components.Lifecycle.Archive(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().IntVar(&minAgeDays, "min-age-days", 0, "Minimum age in days (default: from config)")
	cmd.Flags().Float64Var(&maxImportance, "max-importance", 0, "Archive memories below this importance (default: from config)")
	return cmd
}

func newPruneCmd(open opener) *cobra.Command {
	var (
		maxAgeDays     int
		minImportance  float64
		maxAccessCount int64
		status         string
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Mark old, unimportant memories as deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			criteria := server.PruneCriteria(e.cfg)
			flags := cmd.Flags()
			if flags.Changed("max-age-days") {
				criteria.MaxAgeDays = maxAgeDays
			}
			if flags.Changed("min-importance") {
				criteria.MinImportance = minImportance
			}
			if flags.Changed("max-access-count") {
				criteria.MaxAccessCount = maxAccessCount
			}
			if flags.Changed("status") {
				criteria.Status = status
			}

			report, err := e.components.Lifecycle.Prune(cmd.Context(), criteria)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Minimum age in days (default: from config)")
	cmd.Flags().Float64Var(&minImportance, "min-importance", 0, "Prune memories below this importance (default: from config)")
	cmd.Flags().Int64Var(&maxAccessCount, "max-access-count", 0, "Prune memories accessed at most this many times (default: from config)")
	cmd.Flags().StringVar(&status, "status", "", "Only prune memories in this status (default: from config)")
	return cmd
}

func newCleanupCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired working memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			removed, err := e.components.Working.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(removed))
			for _, wm := range removed {
				ids = append(ids, wm.ID)
			}
			return printJSON(cmd, map[string]interface{}{"removed": len(ids), "ids": ids})
		},
	}
}
