// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements clients for the literature APIs the
// pipeline ingests from. Each client turns a topic query plus a
// lookback window into raw candidate records; canonicalization happens
// downstream in the normalize package.
package sources

import (
	"context"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

// RawRecord is a source-native record after wire decoding but before
// canonicalization. Clients decode structure (XML elements, JSON
// fields, delimited author strings); text stays as the source sent it.
type RawRecord struct {
	// NativeID is the source's own identifier (PMID for PubMed, the
	// work URL for OpenAlex). Empty when the source has none beyond
	// the DOI.
	NativeID string

	// DOI as reported by the source, if any.
	DOI string

	Title    string
	Abstract string
	Journal  string

	// Authors in source order, one name per element.
	Authors []string

	// RawDate is the source's native date string (usually YYYY-MM-DD).
	RawDate string

	// URL links back to the record; clients fill it when the source
	// provides one, the normalizer constructs it otherwise.
	URL string
}

// Window is the lookback span a fetch covers, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// LookbackWindow returns the window ending now and starting days earlier.
func LookbackWindow(now time.Time, days int) Window {
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Client fetches raw records for one literature source. Each call
// re-issues the request; clients exhaust any pagination within the
// window before returning. Implementations are stateless aside from
// their HTTP client and rate limiter.
type Client interface {
	// Name returns the source identifier ("pubmed", "biorxiv", ...).
	Name() string

	// Fetch returns records matching query within the window. A
	// transport or decode failure surfaces as an error; callers treat
	// the query as empty and continue.
	Fetch(ctx context.Context, query string, window Window) ([]RawRecord, error)
}

// Enabled builds the client set selected by cfg, in a fixed order.
func Enabled(cfg types.SourcesConfig) []Client {
	var clients []Client
	if cfg.PubMed.Enabled {
		clients = append(clients, NewPubMedClient(cfg))
	}
	if cfg.Biorxiv.Enabled {
		clients = append(clients, NewBiorxivClient("biorxiv", cfg))
	}
	if cfg.Medrxiv.Enabled {
		clients = append(clients, NewBiorxivClient("medrxiv", cfg))
	}
	if cfg.OpenAlex.Enabled {
		clients = append(clients, NewOpenAlexClient(cfg))
	}
	return clients
}
