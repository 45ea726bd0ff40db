// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceCount tallies one source's contribution to an ingestion run.
type SourceCount struct {
	// Source is the backend name.
	Source string `json:"source" yaml:"source"`

	// Requested counts queries issued against the source.
	Requested int `json:"requested" yaml:"requested"`

	// Fetched counts raw records the source returned.
	Fetched int `json:"fetched" yaml:"fetched"`

	// New counts papers inserted into the archive.
	New int `json:"new" yaml:"new"`

	// Duplicates counts records whose identity key was already present.
	Duplicates int `json:"duplicates" yaml:"duplicates"`

	// Failed counts records dropped by normalization plus queries that
	// failed outright.
	Failed int `json:"failed" yaml:"failed"`

	// CapSkipped counts records fetched but not inserted because the
	// per-run cap was already reached.
	CapSkipped int `json:"cap_skipped" yaml:"cap_skipped"`
}

// IngestionReport summarizes one ingestion run across all sources.
type IngestionReport struct {
	// RunID identifies this run in logs and reports.
	RunID string `json:"run_id" yaml:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// LookbackDays is the window the run searched.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`

	// CapReached is true when the per-run insertion cap halted the run.
	CapReached bool `json:"cap_reached" yaml:"cap_reached"`

	// Sources holds per-source tallies in processing order.
	Sources []SourceCount `json:"sources" yaml:"sources"`
}

// TotalNew sums inserted papers across sources.
func (r IngestionReport) TotalNew() int {
	n := 0
	for _, s := range r.Sources {
		n += s.New
	}
	return n
}

// TotalFetched sums fetched records across sources.
func (r IngestionReport) TotalFetched() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Fetched
	}
	return n
}

// TotalFailed sums failed records and queries across sources.
func (r IngestionReport) TotalFailed() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Failed
	}
	return n
}

// ScoringReport summarizes one scoring run.
type ScoringReport struct {
	// RunID identifies this run in logs and reports.
	RunID string `json:"run_id" yaml:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Model is the backend model identifier used for the run.
	Model string `json:"model" yaml:"model"`

	// Attempted counts papers pulled from the unscored set.
	Attempted int `json:"attempted" yaml:"attempted"`

	// Succeeded counts papers that gained a valid enrichment.
	Succeeded int `json:"succeeded" yaml:"succeeded"`

	// Failed counts papers recorded failed-permanently. Papers whose
	// run was cut short before a verdict stay pending and appear only
	// in Attempted.
	Failed int `json:"failed" yaml:"failed"`
}
