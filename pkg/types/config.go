package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litwatch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ArchiveConfig holds settings for the paper archive.
type ArchiveConfig struct {
	// Path is the SQLite database file (default "litwatch.db").
	Path string `json:"path" yaml:"path"`
}

// PubMedConfig holds settings for the PubMed source.
type PubMedConfig struct {
	// Enabled controls whether the PubMed backend is queried.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxResults is the retmax per search query (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// APIKey is an optional NCBI API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// PreprintConfig holds settings for a bioRxiv-style preprint server.
type PreprintConfig struct {
	// Enabled controls whether the server is queried.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// OpenAlexConfig holds settings for the OpenAlex source.
type OpenAlexConfig struct {
	// Enabled controls whether the OpenAlex backend is queried.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Email is sent as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// MaxResults is the per_page for search queries (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// SourcesConfig groups per-source settings.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	PubMed   PubMedConfig   `json:"pubmed" yaml:"pubmed"`
	Biorxiv  PreprintConfig `json:"biorxiv" yaml:"biorxiv"`
	Medrxiv  PreprintConfig `json:"medrxiv" yaml:"medrxiv"`
	OpenAlex OpenAlexConfig `json:"openalex" yaml:"openalex"`
}

// IngestConfig holds settings for the ingestion engine.
type IngestConfig struct {
	// LookbackDays is the search window before now (default 4, sized
	// for a twice-weekly cadence with a buffer day).
	LookbackDays int `json:"lookback_days" yaml:"lookback_days"`

	// MaxNewPerRun caps papers inserted per run (default 50).
	MaxNewPerRun int `json:"max_new_per_run" yaml:"max_new_per_run"`

	// Workers bounds concurrent queries per source (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// TopicsFile is the YAML file mapping sources to query strings
	// (default "topics.yaml").
	TopicsFile string `json:"topics_file" yaml:"topics_file"`
}

// ScoringConfig holds settings for the scoring engine and its model backend.
type ScoringConfig struct {
	// BaseURL is the Ollama server address (default "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the Ollama model identifier (default "mistral").
	Model string `json:"model" yaml:"model"`

	// Temperature is passed through to generation (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout bounds each generation attempt (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of additional attempts after a failed
	// one before a paper is recorded failed-permanently (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Workers bounds concurrent model calls (default 1; a local
	// backend serializes generations anyway).
	Workers int `json:"workers" yaml:"workers"`

	// AbstractMaxChars truncates abstracts in the prompt (default 4000).
	AbstractMaxChars int `json:"abstract_max_chars" yaml:"abstract_max_chars"`

	// MinDisplayScore is the default minimum score for archive listings
	// (default 5).
	MinDisplayScore int `json:"min_display_score" yaml:"min_display_score"`

	// Instructions overrides the built-in scoring rubric sent as the
	// system prompt. Empty selects the default.
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	Ingest  IngestConfig  `json:"ingest" yaml:"ingest"`
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`
}
