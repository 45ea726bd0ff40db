// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Query and annotate the paper archive",
	Long: `Archive queries the accumulated papers and manages operator annotations.
Listings join each paper with its scoring verdict and annotation in a
single snapshot.`,
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived papers with scores and annotations",
	Long: `List prints archived papers, newest publication first. By default only
papers at or above the configured display score appear; pass
--min-score 0 to include everything, pending and failed included.`,
	RunE: runArchiveList,
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	opts := archive.QueryOptions{}
	opts.MinScore, _ = cmd.Flags().GetInt("min-score")
	if opts.MinScore < 0 {
		opts.MinScore = cfg.Scoring.MinDisplayScore
	}
	opts.Sources, _ = cmd.Flags().GetStringSlice("source")
	opts.Starred, _ = cmd.Flags().GetBool("starred")
	opts.Tag, _ = cmd.Flags().GetString("tag")
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table", "":
		archive.FormatTable(entries, os.Stdout)
	case "json":
		return archive.FormatJSON(entries, os.Stdout)
	case "markdown":
		fmt.Fprint(os.Stdout, archive.Markdown(entries, time.Now()))
	default:
		return fmt.Errorf("unsupported format %q: use table, json, or markdown", format)
	}
	return nil
}

// --- show subcommand ---

var archiveShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show one paper in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printEntry(entry)
	return nil
}

func printEntry(e archive.Entry) {
	p := e.Paper
	fmt.Printf("%-12s %s\n", "Key:", p.IdentityKey)
	fmt.Printf("%-12s %s\n", "Title:", p.Title)
	fmt.Printf("%-12s %s\n", "Authors:", archive.FormatAuthors(p.Authors, 10))
	if p.Journal != "" {
		fmt.Printf("%-12s %s\n", "Journal:", p.Journal)
	}
	published := p.PublishedAt.Format("2006-01-02")
	if p.DateEstimated {
		published += " (estimated)"
	}
	fmt.Printf("%-12s %s\n", "Published:", published)
	fmt.Printf("%-12s %s\n", "Source:", p.Source)
	fmt.Printf("%-12s %s\n", "First seen:", p.FirstSeenAt.Format(time.RFC3339))
	if p.ExternalURL != "" {
		fmt.Printf("%-12s %s\n", "URL:", p.ExternalURL)
	}

	switch {
	case e.Enrichment == nil:
		fmt.Printf("%-12s pending\n", "Status:")
	case e.Enrichment.Status == types.ScoringScored:
		fmt.Printf("%-12s scored %d/10 at %s\n", "Status:",
			e.Enrichment.RelevanceScore, e.Enrichment.ScoredAt.Format(time.RFC3339))
		if len(e.Enrichment.Tags) > 0 {
			fmt.Printf("%-12s %s\n", "Tags:", strings.Join(e.Enrichment.Tags, ", "))
		}
		if e.Enrichment.KeyFinding != "" {
			fmt.Printf("%-12s %s\n", "Key finding:", e.Enrichment.KeyFinding)
		}
		if e.Enrichment.Summary != "" {
			fmt.Printf("%-12s %s\n", "Summary:", e.Enrichment.Summary)
		}
	default:
		fmt.Printf("%-12s failed permanently (%s)\n", "Status:", e.Enrichment.FailureReason)
	}

	if e.Annotation != nil {
		if e.Annotation.Starred {
			fmt.Printf("%-12s yes\n", "Starred:")
		}
		if e.Annotation.Note != "" {
			fmt.Printf("%-12s %s\n", "Note:", e.Annotation.Note)
		}
	}

	if p.Abstract != "" {
		fmt.Printf("\n%s\n", p.Abstract)
	}
}

// --- star subcommand ---

var archiveStarCmd = &cobra.Command{
	Use:   "star KEY",
	Short: "Star a paper for follow-up",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveStar,
}

func runArchiveStar(cmd *cobra.Command, args []string) error {
	off, _ := cmd.Flags().GetBool("off")

	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	ann, err := currentAnnotation(cmd, store, args[0])
	if err != nil {
		return err
	}
	ann.Starred = !off
	if err := store.UpsertAnnotation(cmd.Context(), args[0], ann); err != nil {
		return err
	}

	if off {
		fmt.Printf("Unstarred %s\n", args[0])
	} else {
		fmt.Printf("Starred %s\n", args[0])
	}
	return nil
}

// --- note subcommand ---

var archiveNoteCmd = &cobra.Command{
	Use:   "note KEY [TEXT]",
	Short: "Attach a note to a paper",
	Long:  `Note sets the free-form note on a paper. Omitting TEXT clears it.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveNote,
}

func runArchiveNote(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	ann, err := currentAnnotation(cmd, store, args[0])
	if err != nil {
		return err
	}
	ann.Note = strings.Join(args[1:], " ")
	if err := store.UpsertAnnotation(cmd.Context(), args[0], ann); err != nil {
		return err
	}

	if ann.Note == "" {
		fmt.Printf("Cleared note on %s\n", args[0])
	} else {
		fmt.Printf("Set note on %s\n", args[0])
	}
	return nil
}

// --- requeue subcommand ---

var archiveRequeueCmd = &cobra.Command{
	Use:   "requeue KEY",
	Short: "Put a paper back in the scoring queue",
	Long: `Requeue discards a paper's enrichment so the next scoring run picks it
up again. Works on scored and failed papers alike; annotations are
untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchiveRequeue,
}

func runArchiveRequeue(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteEnrichment(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Requeued %s for scoring\n", args[0])
	return nil
}

// --- stats subcommand ---

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize archive contents",
	RunE:  runArchiveStats,
}

func runArchiveStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context(), cfg.Scoring.MinDisplayScore)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("%-16s %d\n", "Papers:", stats.Papers)
	fmt.Printf("%-16s %d\n", "  scored:", stats.Scored)
	fmt.Printf("%-16s %d\n", "  failed:", stats.Failed)
	fmt.Printf("%-16s %d\n", "  pending:", stats.Pending)
	fmt.Printf("%-16s %d (score >= %d)\n", "High relevance:", stats.HighRelevance, cfg.Scoring.MinDisplayScore)
	fmt.Printf("%-16s %d\n", "Starred:", stats.Starred)

	if len(stats.BySource) > 0 {
		fmt.Println("\nBy source:")
		names := make([]string, 0, len(stats.BySource))
		for name := range stats.BySource {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-10s %d\n", name, stats.BySource[name])
		}
	}
	return nil
}

// --- shared helpers ---

func openArchive() (*archive.Store, error) {
	return archive.Open(loadConfig().Archive.Path)
}

// currentAnnotation returns the paper's annotation, or a zero one if
// none exists yet. Upserts write both fields, so the untouched field
// has to be carried over.
func currentAnnotation(cmd *cobra.Command, store *archive.Store, key string) (types.Annotation, error) {
	entry, err := store.Get(cmd.Context(), key)
	if err != nil {
		return types.Annotation{}, err
	}
	if entry.Annotation != nil {
		return *entry.Annotation, nil
	}
	return types.Annotation{}, nil
}

func init() {
	// List flags.
	archiveListCmd.Flags().Int("min-score", -1, "minimum relevance score (-1 = config default, 0 = everything)")
	archiveListCmd.Flags().StringSlice("source", nil, "filter by source (repeatable)")
	archiveListCmd.Flags().Bool("starred", false, "only starred papers")
	archiveListCmd.Flags().String("tag", "", "filter by tag")
	archiveListCmd.Flags().Int("limit", 0, "maximum papers (0 = all)")
	archiveListCmd.Flags().String("format", "table", "output format: table, json, or markdown")

	// Star flags.
	archiveStarCmd.Flags().Bool("off", false, "remove the star instead")

	// Stats flags.
	archiveStatsCmd.Flags().Bool("json", false, "print stats as JSON")

	// Wire subcommands.
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveStarCmd)
	archiveCmd.AddCommand(archiveNoteCmd)
	archiveCmd.AddCommand(archiveRequeueCmd)
	archiveCmd.AddCommand(archiveStatsCmd)

	rootCmd.AddCommand(archiveCmd)
}
