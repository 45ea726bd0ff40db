// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest drives the fetch half of the pipeline: it runs the
// topic queries against every enabled source, normalizes what comes
// back, and inserts new papers into the archive. Sources run one at a
// time so that when two sources return the same paper in one run, the
// archived record is always attributed to the earlier source in the
// configured order. Queries within a source fan out concurrently.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/internal/normalize"
	"github.com/pdiddy/litwatch/internal/sources"
	"github.com/pdiddy/litwatch/pkg/types"
)

const defaultLookbackDays = 4

// Engine runs ingestion over a fixed set of source clients.
type Engine struct {
	store   *archive.Store
	clients []sources.Client
	cfg     types.IngestConfig
	out     io.Writer
}

// NewEngine wires an engine. Progress lines go to out.
func NewEngine(store *archive.Store, clients []sources.Client, cfg types.IngestConfig, out io.Writer) *Engine {
	if cfg.LookbackDays < 1 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{store: store, clients: clients, cfg: cfg, out: out}
}

// Run executes one ingestion pass over the window and reports
// per-source tallies. A failing query or record never aborts the run;
// it is counted and the rest proceeds. A storage failure does abort,
// returning the tallies accumulated so far. Once the per-run cap on
// new papers is reached the current source finishes counting its
// remainder as skipped and the sources after it are not queried at all.
func (e *Engine) Run(ctx context.Context, topics sources.Topics, window sources.Window) (types.IngestionReport, error) {
	report := types.IngestionReport{
		RunID:        uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		LookbackDays: e.cfg.LookbackDays,
	}

	totalNew := 0
	for _, client := range e.clients {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if report.CapReached {
			break
		}

		queries := topics.ForSource(client.Name())
		if len(queries) == 0 {
			fmt.Fprintf(e.out, "%s: no queries configured, skipping\n", client.Name())
			continue
		}

		src, err := e.runSource(ctx, client, queries, window, report.StartedAt, &totalNew)
		report.Sources = append(report.Sources, src)
		if err != nil {
			return report, err
		}

		fmt.Fprintf(e.out, "%s: %d fetched, %d new, %d duplicates, %d failed\n",
			src.Source, src.Fetched, src.New, src.Duplicates, src.Failed)

		if e.cfg.MaxNewPerRun > 0 && totalNew >= e.cfg.MaxNewPerRun {
			report.CapReached = true
			fmt.Fprintf(e.out, "per-run cap of %d new papers reached, halting\n", e.cfg.MaxNewPerRun)
		}
	}

	fmt.Fprintf(e.out, "Ingestion done: %d new papers from %d records.\n",
		report.TotalNew(), report.TotalFetched())
	return report, ctx.Err()
}

// runSource fans the source's queries out across the worker pool, then
// normalizes and inserts the results in query order so tallies are
// reproducible. The returned error is non-nil only for storage
// failures, which are fatal to the run.
func (e *Engine) runSource(ctx context.Context, client sources.Client, queries []string, window sources.Window, runDate time.Time, totalNew *int) (types.SourceCount, error) {
	src := types.SourceCount{Source: client.Name(), Requested: len(queries)}

	type queryResult struct {
		records []sources.RawRecord
		err     error
	}
	results := make([]queryResult, len(queries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.Workers)
	for i, q := range queries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, q string) {
			defer wg.Done()
			defer func() { <-sem }()
			records, err := client.Fetch(ctx, q, window)
			results[i] = queryResult{records: records, err: err}
		}(i, q)
	}
	wg.Wait()

	normalizer, err := normalize.ForSource(client.Name())
	if err != nil {
		src.Failed = len(queries)
		fmt.Fprintf(e.out, "warning: %s: %v\n", client.Name(), err)
		return src, nil
	}

	for i, res := range results {
		if res.err != nil {
			src.Failed++
			fmt.Fprintf(e.out, "warning: %s query %q failed: %v\n", client.Name(), queries[i], res.err)
			continue
		}
		src.Fetched += len(res.records)

		for _, raw := range res.records {
			if e.cfg.MaxNewPerRun > 0 && *totalNew >= e.cfg.MaxNewPerRun {
				src.CapSkipped++
				continue
			}

			paper, err := normalizer.Normalize(raw, runDate)
			if err != nil {
				src.Failed++
				continue
			}

			inserted, err := e.store.InsertIfAbsent(ctx, paper)
			if err != nil {
				return src, fmt.Errorf("inserting %s: %w", paper.IdentityKey, err)
			}
			if inserted {
				src.New++
				*totalNew++
			} else {
				src.Duplicates++
			}
		}
	}
	return src, nil
}

// FormatTable writes the per-source report as a human-readable table.
func FormatTable(r types.IngestionReport, w io.Writer) {
	fmt.Fprintf(w, "%-10s  %-9s  %-8s  %-5s  %-10s  %-7s  %s\n",
		"Source", "Requested", "Fetched", "New", "Duplicates", "Failed", "Skipped")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	for _, s := range r.Sources {
		fmt.Fprintf(w, "%-10s  %-9d  %-8d  %-5d  %-10d  %-7d  %d\n",
			s.Source, s.Requested, s.Fetched, s.New, s.Duplicates, s.Failed, s.CapSkipped)
	}

	fmt.Fprintf(w, "\n%d new papers", r.TotalNew())
	if r.CapReached {
		fmt.Fprint(w, " (per-run cap reached)")
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the report as indented JSON.
func FormatJSON(r types.IngestionReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
