// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"testing"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

func testSourcesCfg() types.SourcesConfig {
	cfg := types.SourcesConfig{}
	cfg.UserAgent = "litwatch-test"
	cfg.Timeout = 5 * time.Second
	return cfg
}

// --- LookbackWindow ---

func TestLookbackWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	w := LookbackWindow(now, 4)

	if !w.To.Equal(now) {
		t.Errorf("To = %v, want %v", w.To, now)
	}
	if got, want := w.To.Sub(w.From), 4*24*time.Hour; got != want {
		t.Errorf("window span = %v, want %v", got, want)
	}
}

// --- Enabled ---

func TestEnabled(t *testing.T) {
	tests := []struct {
		name   string
		enable []string
		want   []string
	}{
		{"all sources", []string{"pubmed", "biorxiv", "medrxiv", "openalex"},
			[]string{"pubmed", "biorxiv", "medrxiv", "openalex"}},
		{"none", nil, nil},
		{"pubmed only", []string{"pubmed"}, []string{"pubmed"}},
		{"preprints only", []string{"medrxiv", "biorxiv"}, []string{"biorxiv", "medrxiv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSourcesCfg()
			for _, name := range tt.enable {
				switch name {
				case "pubmed":
					cfg.PubMed.Enabled = true
				case "biorxiv":
					cfg.Biorxiv.Enabled = true
				case "medrxiv":
					cfg.Medrxiv.Enabled = true
				case "openalex":
					cfg.OpenAlex.Enabled = true
				}
			}

			clients := Enabled(cfg)
			if len(clients) != len(tt.want) {
				t.Fatalf("len(clients) = %d, want %d", len(clients), len(tt.want))
			}
			for i, want := range tt.want {
				if got := clients[i].Name(); got != want {
					t.Errorf("clients[%d].Name() = %q, want %q", i, got, want)
				}
			}
		})
	}
}
