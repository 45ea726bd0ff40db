// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/pkg/types"
)

// retryDelay is the pause between attempts on the same paper. A
// package variable so tests can shrink it.
var retryDelay = 2 * time.Second

const defaultTimeout = 120 * time.Second

// Engine drains the pending backlog through a model backend. Workers
// score papers concurrently; failures on one paper never abort the
// batch.
type Engine struct {
	store   *archive.Store
	backend ModelBackend
	cfg     types.ScoringConfig
	out     io.Writer
}

// NewEngine wires an engine. Progress lines go to out.
func NewEngine(store *archive.Store, backend ModelBackend, cfg types.ScoringConfig, out io.Writer) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{store: store, backend: backend, cfg: cfg, out: out}
}

// Run scores up to limit pending papers (all of them when limit <= 0)
// and reports the outcome. The backend is checked once up front; if it
// is not ready the run fails and every paper stays pending. A storage
// failure halts dispatch and fails the run. Cancellation stops
// dispatch and leaves unprocessed papers pending.
func (e *Engine) Run(ctx context.Context, limit int) (types.ScoringReport, error) {
	report := types.ScoringReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Model:     e.backend.Name(),
	}

	papers, err := e.store.ListUnscored(ctx, limit)
	if err != nil {
		return report, err
	}
	if len(papers) == 0 {
		fmt.Fprintln(e.out, "No pending papers.")
		return report, nil
	}

	if err := e.backend.CheckReady(ctx); err != nil {
		return report, fmt.Errorf("scoring backend not ready: %w", err)
	}

	fmt.Fprintf(e.out, "Scoring %d papers with %s...\n", len(papers), e.backend.Name())

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.Workers)
	var mu sync.Mutex
	done := 0
	var runErr error

	for _, p := range papers {
		mu.Lock()
		halted := runErr != nil
		mu.Unlock()
		if ctx.Err() != nil || halted {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(paper types.Paper) {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			report.Attempted++
			mu.Unlock()

			scored, err := e.scoreOne(ctx, paper)

			mu.Lock()
			defer mu.Unlock()
			done++
			switch {
			case err != nil:
				fmt.Fprintf(e.out, "  [%d/%d] aborted: %s: %v\n", done, len(papers), shorten(paper.Title, 60), err)
				// A missing paper row spoils only its own write; any
				// other error here is a storage or cancellation
				// failure that the rest of the batch would hit too.
				if runErr == nil && !errors.Is(err, archive.ErrNotFound) {
					runErr = err
				}
			case scored:
				report.Succeeded++
				fmt.Fprintf(e.out, "  [%d/%d] scored: %s\n", done, len(papers), shorten(paper.Title, 60))
			default:
				report.Failed++
				fmt.Fprintf(e.out, "  [%d/%d] failed permanently: %s\n", done, len(papers), shorten(paper.Title, 60))
			}
		}(p)
	}
	wg.Wait()

	fmt.Fprintf(e.out, "Scored %d/%d papers (%d failed permanently).\n",
		report.Succeeded, len(papers), report.Failed)
	if runErr != nil {
		return report, runErr
	}
	return report, ctx.Err()
}

// scoreOne runs the retry loop for a single paper. It returns (true,
// nil) when a verdict was stored, (false, nil) when the paper was
// recorded failed-permanently, and a non-nil error only when nothing
// was written, which leaves the paper pending.
func (e *Engine) scoreOne(ctx context.Context, paper types.Paper) (bool, error) {
	system, user, err := Prompts(e.cfg, paper)
	if err != nil {
		return false, err
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		enrichment, err := e.attempt(ctx, system, user)
		if err == nil {
			enrichment.ScoredAt = time.Now().UTC()
			if err := e.store.WriteEnrichment(ctx, paper.IdentityKey, enrichment); err != nil {
				return false, fmt.Errorf("storing verdict: %w", err)
			}
			return true, nil
		}
		if ctx.Err() != nil {
			// The run was cancelled, not the paper's own attempt
			// budget, so the paper stays pending.
			return false, ctx.Err()
		}
		lastErr = err
	}

	failure := types.Enrichment{
		Status:        types.ScoringFailed,
		FailureReason: lastErr.Error(),
		ScoredAt:      time.Now().UTC(),
	}
	if err := e.store.WriteEnrichment(ctx, paper.IdentityKey, failure); err != nil {
		return false, fmt.Errorf("recording failure: %w", err)
	}
	return false, nil
}

// attempt makes one model call under its own per-attempt deadline and
// parses the reply.
func (e *Engine) attempt(ctx context.Context, system, user string) (types.Enrichment, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	raw, err := e.backend.Generate(attemptCtx, system, user)
	if err != nil {
		return types.Enrichment{}, fmt.Errorf("model request: %w", err)
	}
	return Parse(raw)
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// FormatJSON writes the report as indented JSON.
func FormatJSON(r types.ScoringReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
