// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"io"
	"testing"

	"github.com/pdiddy/litwatch/internal/archive"
	"github.com/pdiddy/litwatch/internal/scoring"
	"github.com/pdiddy/litwatch/internal/sources"
	"github.com/pdiddy/litwatch/pkg/types"
)

// stubModel answers every prompt with the same verdict.
type stubModel struct {
	reply string
	calls int
}

func (s *stubModel) Name() string { return "stub" }

func (s *stubModel) CheckReady(context.Context) error { return nil }

func (s *stubModel) Generate(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, nil
}

// TestPipeline exercises a full fetch-then-score pass: overlapping
// sources collapse to one archived paper per identity, scoring drains
// exactly the pending set, and a rerun of both stages changes nothing.
func TestPipeline(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	shared := "10.1101/2026.02.01.578901"
	pubmed := &fakeClient{
		name: "pubmed",
		records: map[string][]sources.RawRecord{
			"vaccine": {
				rawRecord(shared, "A Trial Published In A Journal"),
				rawRecord("10.1000/only-pubmed", "PubMed Only Paper"),
			},
		},
	}
	biorxiv := &fakeClient{
		name: "biorxiv",
		records: map[string][]sources.RawRecord{
			"vaccine": {
				rawRecord(shared, "A Trial Preprint Copy"),
				rawRecord("10.1101/only-biorxiv", "Preprint Only Paper"),
			},
		},
	}
	topics := topicsFor(map[string][]string{
		"pubmed":  {"vaccine"},
		"biorxiv": {"vaccine"},
	})

	ingester := NewEngine(store, []sources.Client{pubmed, biorxiv}, types.IngestConfig{}, io.Discard)
	report, err := ingester.Run(ctx, topics, runWindow())
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalFetched() != 4 || report.TotalNew() != 3 {
		t.Fatalf("ingestion report = %+v, want 4 fetched and 3 new", report)
	}

	model := &stubModel{reply: `{"relevance_score": 7, "summary": "Relevant trial.", "key_finding": "Works.", "tags": ["trial"]}`}
	scorer := scoring.NewEngine(store, model, types.ScoringConfig{}, io.Discard)
	scoreReport, err := scorer.Run(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if scoreReport.Succeeded != 3 {
		t.Fatalf("scoring report = %+v, want 3 succeeded", scoreReport)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want 3 (one per unique paper)", model.calls)
	}

	// The shared paper carries the first source's record and one verdict.
	entry, err := store.Get(ctx, "doi:"+shared)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Paper.Source != "pubmed" {
		t.Errorf("shared paper source = %q, want pubmed", entry.Paper.Source)
	}
	if entry.Enrichment == nil || entry.Enrichment.RelevanceScore != 7 {
		t.Errorf("shared paper enrichment = %+v", entry.Enrichment)
	}

	if err := store.UpsertAnnotation(ctx, "doi:"+shared, types.Annotation{Starred: true, Note: "read this"}); err != nil {
		t.Fatal(err)
	}

	// Rerunning both stages must not duplicate, rescore, or touch the
	// annotation.
	report, err = ingester.Run(ctx, topics, runWindow())
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalNew() != 0 {
		t.Errorf("second ingestion inserted %d papers", report.TotalNew())
	}

	scoreReport, err = scorer.Run(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if scoreReport.Attempted != 0 {
		t.Errorf("second scoring attempted %d papers, want 0", scoreReport.Attempted)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times after rerun, want still 3", model.calls)
	}

	entry, err = store.Get(ctx, "doi:"+shared)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Annotation == nil || !entry.Annotation.Starred || entry.Annotation.Note != "read this" {
		t.Errorf("annotation = %+v, want untouched by reruns", entry.Annotation)
	}

	entries, err := store.Query(ctx, archive.QueryOptions{MinScore: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("query returned %d entries, want all 3 scored papers", len(entries))
	}
}
