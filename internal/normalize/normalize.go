// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns raw source records into canonical papers.
// Everything here is pure: whitespace canonicalization, date parsing
// with a flagged fallback, and identity-key derivation. One normalizer
// exists per source; source identity does not leak past this boundary.
package normalize

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pdiddy/litwatch/internal/sources"
	"github.com/pdiddy/litwatch/pkg/types"
)

// Normalizer maps one source's raw records into canonical papers.
type Normalizer interface {
	// Source returns the source name this normalizer handles.
	Source() string

	// Normalize canonicalizes raw into a Paper. runDate substitutes
	// for unparseable publication dates (the paper is flagged, not
	// dropped). An error marks the record irrecoverable; the caller
	// counts it and moves on.
	Normalize(raw sources.RawRecord, runDate time.Time) (types.Paper, error)
}

// ForSource returns the normalizer registered for a source name.
func ForSource(name string) (Normalizer, error) {
	switch name {
	case "pubmed":
		return pubmedNormalizer{}, nil
	case "biorxiv", "medrxiv":
		return preprintNormalizer{server: name}, nil
	case "openalex":
		return openalexNormalizer{}, nil
	default:
		return nil, fmt.Errorf("no normalizer for source %q", name)
	}
}

// dateLayouts are tried in order against the sources' native date
// strings. All four sources emit ISO-ish dates; partial forms appear
// in older MEDLINE records.
var dateLayouts = []string{"2006-01-02", "2006-1-2", "2006-01", "2006-1", "2006"}

// parseDate parses a native date string to a UTC calendar date. On
// failure it substitutes runDate and reports the estimate flag.
func parseDate(raw string, runDate time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return midnightUTC(t), false
		}
	}
	return midnightUTC(runDate), true
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// collapse trims and collapses runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// build canonicalizes the fields every source shares and derives the
// identity key. accession is the namespaced persistent-identifier key
// to use when the record carries no DOI; empty when the source has
// none, which selects the content fingerprint.
func build(raw sources.RawRecord, source, accession string, runDate time.Time) (types.Paper, error) {
	p := types.Paper{
		Source:      source,
		Title:       collapse(raw.Title),
		Abstract:    collapse(raw.Abstract),
		Journal:     collapse(raw.Journal),
		ExternalURL: strings.TrimSpace(raw.URL),
	}

	for _, a := range raw.Authors {
		if a = collapse(a); a != "" {
			p.Authors = append(p.Authors, a)
		}
	}

	p.PublishedAt, p.DateEstimated = parseDate(raw.RawDate, runDate)

	// DOI outranks source-native accessions so the same publication
	// arriving from two sources keys identically.
	switch doi := NormalizeDOI(raw.DOI); {
	case doi != "":
		p.IdentityKey = "doi:" + doi
	case accession != "":
		p.IdentityKey = accession
	case p.Title == "" && len(p.Authors) == 0:
		return types.Paper{}, fmt.Errorf("record has no identifier, title, or authors")
	default:
		p.IdentityKey = Fingerprint(p.Title, firstAuthorSurname(p.Authors), p.PublishedAt)
	}

	return p, nil
}

// --- pubmed ---

type pubmedNormalizer struct{}

func (pubmedNormalizer) Source() string { return "pubmed" }

func (n pubmedNormalizer) Normalize(raw sources.RawRecord, runDate time.Time) (types.Paper, error) {
	accession := ""
	pmid := strings.TrimSpace(raw.NativeID)
	if pmidPattern.MatchString(pmid) {
		accession = "pmid:" + pmid
	}

	p, err := build(raw, n.Source(), accession, runDate)
	if err != nil {
		return types.Paper{}, err
	}
	if p.ExternalURL == "" && pmid != "" {
		p.ExternalURL = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	}
	return p, nil
}

// --- biorxiv / medrxiv ---

type preprintNormalizer struct {
	server string
}

func (n preprintNormalizer) Source() string { return n.server }

func (n preprintNormalizer) Normalize(raw sources.RawRecord, runDate time.Time) (types.Paper, error) {
	p, err := build(raw, n.Source(), "", runDate)
	if err != nil {
		return types.Paper{}, err
	}
	if p.Journal == "" {
		p.Journal = n.server + " (preprint)"
	}
	if p.ExternalURL == "" {
		if doi := NormalizeDOI(raw.DOI); doi != "" {
			p.ExternalURL = "https://doi.org/" + doi
		}
	}
	return p, nil
}

// --- openalex ---

type openalexNormalizer struct{}

func (openalexNormalizer) Source() string { return "openalex" }

func (n openalexNormalizer) Normalize(raw sources.RawRecord, runDate time.Time) (types.Paper, error) {
	// The work ID URL ends in the accession ("https://openalex.org/W42" -> "W42").
	accession := ""
	if id := strings.ToLower(path.Base(strings.TrimSpace(raw.NativeID))); strings.HasPrefix(id, "w") && len(id) > 1 {
		accession = "openalex:" + id
	}

	p, err := build(raw, n.Source(), accession, runDate)
	if err != nil {
		return types.Paper{}, err
	}
	if p.ExternalURL == "" {
		p.ExternalURL = strings.TrimSpace(raw.NativeID)
	}
	return p, nil
}
