// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/internal/ingest"
	"github.com/pdiddy/litwatch/internal/sources"
	"github.com/pdiddy/litwatch/pkg/types"
)

// fetchCmd polls the enabled sources and archives new papers.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Poll sources for new papers and archive them",
	Long: `Fetch runs every configured query against each enabled source, normalizes
the results, and inserts papers not already in the archive. Papers seen
before (from any source) count as duplicates and keep their original
source attribution.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Int("lookback", 0, "days back to search (overrides config)")
	fetchCmd.Flags().Int("max-new", 0, "cap on new papers this run, 0 disables (overrides config)")
	fetchCmd.Flags().String("topics", "", "topics file (overrides config)")
	fetchCmd.Flags().Bool("json", false, "print the report as JSON")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyFetchFlags(cmd, &cfg)

	// With --json, progress moves to stderr so stdout stays machine-readable.
	jsonOut, _ := cmd.Flags().GetBool("json")
	progress := io.Writer(os.Stdout)
	if jsonOut {
		progress = os.Stderr
	}

	report, err := doFetch(cmd, cfg, progress)
	if err != nil {
		return err
	}

	if jsonOut {
		return ingest.FormatJSON(report, os.Stdout)
	}
	ingest.FormatTable(report, os.Stdout)
	return nil
}

// applyFetchFlags folds per-run flag overrides into cfg.
func applyFetchFlags(cmd *cobra.Command, cfg *types.Config) {
	if v, _ := cmd.Flags().GetInt("lookback"); v > 0 {
		cfg.Ingest.LookbackDays = v
	}
	if cmd.Flags().Changed("max-new") {
		cfg.Ingest.MaxNewPerRun, _ = cmd.Flags().GetInt("max-new")
	}
	if v, _ := cmd.Flags().GetString("topics"); v != "" {
		cfg.Ingest.TopicsFile = v
	}
}

// doFetch runs one ingestion pass. Shared with the run command.
func doFetch(cmd *cobra.Command, cfg types.Config, progress io.Writer) (types.IngestionReport, error) {
	topics, err := loadTopics(cfg.Ingest.TopicsFile)
	if err != nil {
		return types.IngestionReport{}, err
	}

	clients := sources.Enabled(cfg.Sources)
	if len(clients) == 0 {
		return types.IngestionReport{}, errors.New("no sources enabled; check the sources section of your config")
	}

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return types.IngestionReport{}, err
	}
	defer store.Close()

	window := sources.LookbackWindow(time.Now().UTC(), cfg.Ingest.LookbackDays)
	engine := ingest.NewEngine(store, clients, cfg.Ingest, progress)
	return engine.Run(cmd.Context(), topics, window)
}

// starterTopics seeds a first topics file for the operator to edit.
// The queries track the neoantigen vaccine literature the tool was
// originally pointed at.
var starterTopics = sources.Topics{Queries: map[string][]string{
	"pubmed": {
		"neoantigen vaccine",
		"personalized cancer vaccine peptide",
		"neoepitope vaccine",
	},
	"biorxiv": {
		"neoantigen vaccine",
		"personalized cancer vaccine",
	},
	"medrxiv": {
		"neoantigen vaccine",
	},
}}

// loadTopics reads the search corpus, writing a starter file on first
// run so a fresh checkout fetches something without hand-editing.
func loadTopics(path string) (sources.Topics, error) {
	t, err := sources.ReadTopics(path)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return sources.Topics{}, err
	}
	if werr := sources.WriteTopics(path, starterTopics); werr != nil {
		return sources.Topics{}, fmt.Errorf("no topics file at %s and could not write a starter: %w", path, werr)
	}
	fmt.Fprintf(os.Stderr, "Wrote starter topics to %s; edit it to set your search queries.\n", path)
	return starterTopics, nil
}
