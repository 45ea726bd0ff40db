// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litwatch/internal/ingest"
	"github.com/pdiddy/litwatch/pkg/types"
)

// runCmd is the scheduled entry point: one fetch pass, then one scoring pass.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new papers, then score them",
	Long: `Run executes one full pipeline pass: ingestion across all enabled
sources followed by scoring of everything pending. It is the command a
cron job or launchd agent invokes on a schedule.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("lookback", 0, "days back to search (overrides config)")
	runCmd.Flags().Int("max-new", 0, "cap on new papers this run, 0 disables (overrides config)")
	runCmd.Flags().String("topics", "", "topics file (overrides config)")
	runCmd.Flags().Int("limit", 0, "score at most N papers this run, 0 means all")
	runCmd.Flags().Bool("json", false, "print the combined report as JSON")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyFetchFlags(cmd, &cfg)

	jsonOut, _ := cmd.Flags().GetBool("json")
	progress := io.Writer(os.Stdout)
	if jsonOut {
		progress = os.Stderr
	}

	ingestion, err := doFetch(cmd, cfg, progress)
	if err != nil {
		return err
	}
	if !jsonOut {
		ingest.FormatTable(ingestion, os.Stdout)
		fmt.Fprintln(os.Stdout)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	scored, err := doScore(cmd, cfg, limit, progress)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Ingestion types.IngestionReport `json:"ingestion"`
			Scoring   types.ScoringReport   `json:"scoring"`
		}{ingestion, scored})
	}
	return nil
}
