// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litwatch pipeline.
package types

import "time"

// ScoringStatus indicates where a paper sits in the relevance-scoring
// lifecycle. Papers start pending and end scored or failed-permanently;
// both end states are terminal for automatic processing.
type ScoringStatus string

const (
	ScoringPending ScoringStatus = "pending"
	ScoringScored  ScoringStatus = "scored"
	ScoringFailed  ScoringStatus = "failed-permanently"
)

// Paper is the canonical bibliographic record held in the archive.
// Canonical fields are written once at first ingestion and never
// mutated afterward.
type Paper struct {
	// IdentityKey uniquely identifies the publication across sources
	// and runs. Namespaced by identifier type: "doi:<doi>",
	// "pmid:<digits>", or "sha:<16 hex>" for the content fingerprint.
	IdentityKey string `json:"identity_key" yaml:"identity_key"`

	// Source names the backend that first produced this record
	// (e.g. "pubmed", "biorxiv"). Later sightings of the same
	// publication from other sources do not overwrite it.
	Source string `json:"source" yaml:"source"`

	// Title is the paper title, whitespace-collapsed; may be empty.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, whitespace-collapsed; may be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Journal is the publication venue. Preprint servers report
	// "<server> (preprint)".
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// PublishedAt is the publication date at UTC midnight.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// DateEstimated is true when the source date could not be parsed
	// and the ingestion run date was substituted.
	DateEstimated bool `json:"date_estimated,omitempty" yaml:"date_estimated,omitempty"`

	// ExternalURL links back to the record at its source.
	ExternalURL string `json:"external_url" yaml:"external_url"`

	// FirstSeenAt is the insertion timestamp, set once, immutable.
	FirstSeenAt time.Time `json:"first_seen_at" yaml:"first_seen_at"`
}

// Enrichment is the model-derived relevance assessment attached to a
// paper. At most one per paper; written only by the scoring engine.
type Enrichment struct {
	// RelevanceScore is the model's 1-10 relevance rating. Zero on
	// failed-permanently rows.
	RelevanceScore int `json:"relevance_score" yaml:"relevance_score"`

	// Summary is a short prose summary of the paper.
	Summary string `json:"summary" yaml:"summary"`

	// KeyFinding is a one-sentence headline of the main finding.
	KeyFinding string `json:"key_finding" yaml:"key_finding"`

	// Tags are short topical labels; order is not meaningful.
	Tags []string `json:"tags" yaml:"tags"`

	// ScoredAt is when the scoring attempt concluded.
	ScoredAt time.Time `json:"scored_at" yaml:"scored_at"`

	// Status is scored or failed-permanently on stored rows; pending
	// papers have no enrichment row at all.
	Status ScoringStatus `json:"scoring_status" yaml:"scoring_status"`

	// FailureReason records why scoring failed permanently; empty on
	// success.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
}

// Annotation holds operator-owned state for a paper, independent of
// the enrichment lifecycle. Pipeline runs never touch it.
type Annotation struct {
	// Starred marks the paper for follow-up.
	Starred bool `json:"starred" yaml:"starred"`

	// Note is free-form operator text.
	Note string `json:"note" yaml:"note"`
}
