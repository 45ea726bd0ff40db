// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/internal/scoring"
	"github.com/pdiddy/litwatch/pkg/types"
)

// scoreCmd scores pending papers with the configured model backend.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score pending papers with the local model",
	Long: `Score sends every unscored paper's title and abstract to the configured
Ollama model and stores the relevance verdict. A paper that keeps
producing unusable output is recorded as failed so it is not retried on
the next run; use "archive requeue" to put it back in the queue.`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().Int("limit", 0, "score at most N papers this run, 0 means all")
	scoreCmd.Flags().Bool("json", false, "print the report as JSON")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	// With --json, progress moves to stderr so stdout stays machine-readable.
	jsonOut, _ := cmd.Flags().GetBool("json")
	progress := io.Writer(os.Stdout)
	if jsonOut {
		progress = os.Stderr
	}

	limit, _ := cmd.Flags().GetInt("limit")
	report, err := doScore(cmd, cfg, limit, progress)
	if err != nil {
		return err
	}

	if jsonOut {
		return scoring.FormatJSON(report, os.Stdout)
	}
	return nil
}

// doScore runs one scoring pass. Shared with the run command.
func doScore(cmd *cobra.Command, cfg types.Config, limit int, progress io.Writer) (types.ScoringReport, error) {
	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return types.ScoringReport{}, err
	}
	defer store.Close()

	backend := scoring.NewOllamaBackend(cfg.Scoring)
	engine := scoring.NewEngine(store, backend, cfg.Scoring, progress)
	return engine.Run(cmd.Context(), limit)
}
