// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"testing"
	"time"

	"github.com/pdiddy/litwatch/internal/sources"
)

var runDate = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestForSource(t *testing.T) {
	for _, name := range []string{"pubmed", "biorxiv", "medrxiv", "openalex"} {
		n, err := ForSource(name)
		if err != nil {
			t.Fatalf("ForSource(%q): %v", name, err)
		}
		if n.Source() != name {
			t.Errorf("ForSource(%q).Source() = %q", name, n.Source())
		}
	}

	if _, err := ForSource("gopher-journal"); err == nil {
		t.Error("ForSource with unknown source, want error")
	}
}

func TestNormalizePubMed(t *testing.T) {
	n, _ := ForSource("pubmed")
	raw := sources.RawRecord{
		NativeID: "34567890",
		Title:    "  A   vaccine\tstudy ",
		Abstract: "BACKGROUND: Some  context.\n\nRESULTS: It  worked.",
		Journal:  "Nature  Medicine",
		Authors:  []string{" Jane  Doe ", "Alex Smith"},
		RawDate:  "2026-03-02",
		URL:      "https://pubmed.ncbi.nlm.nih.gov/34567890/",
	}

	p, err := n.Normalize(raw, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if p.IdentityKey != "pmid:34567890" {
		t.Errorf("IdentityKey = %q, want pmid:34567890", p.IdentityKey)
	}
	if p.Source != "pubmed" {
		t.Errorf("Source = %q", p.Source)
	}
	if p.Title != "A vaccine study" {
		t.Errorf("Title = %q, whitespace not collapsed", p.Title)
	}
	if p.Abstract != "BACKGROUND: Some context. RESULTS: It worked." {
		t.Errorf("Abstract = %q, whitespace not collapsed", p.Abstract)
	}
	if p.Journal != "Nature Medicine" {
		t.Errorf("Journal = %q", p.Journal)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if !p.PublishedAt.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", p.PublishedAt)
	}
	if p.DateEstimated {
		t.Error("DateEstimated = true for a parseable date")
	}
}

func TestNormalizePubMedPrefersDOI(t *testing.T) {
	n, _ := ForSource("pubmed")
	raw := sources.RawRecord{
		NativeID: "34567890",
		DOI:      "10.1038/S41586-026-1234-5",
		Title:    "A vaccine study",
		RawDate:  "2026-03-02",
	}

	p, err := n.Normalize(raw, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.IdentityKey != "doi:10.1038/s41586-026-1234-5" {
		t.Errorf("IdentityKey = %q, want the DOI key", p.IdentityKey)
	}
	if p.ExternalURL != "https://pubmed.ncbi.nlm.nih.gov/34567890/" {
		t.Errorf("ExternalURL = %q, want constructed PubMed link", p.ExternalURL)
	}
}

func TestNormalizePreprint(t *testing.T) {
	n, _ := ForSource("biorxiv")
	raw := sources.RawRecord{
		DOI:     "10.1101/2026.03.01.123456",
		Title:   "Preprint on antigens",
		Authors: []string{"Doe, J.", "Smith, A."},
		RawDate: "2026-03-01",
	}

	p, err := n.Normalize(raw, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.IdentityKey != "doi:10.1101/2026.03.01.123456" {
		t.Errorf("IdentityKey = %q", p.IdentityKey)
	}
	if p.Journal != "biorxiv (preprint)" {
		t.Errorf("Journal = %q, want server default", p.Journal)
	}
	if p.ExternalURL != "https://doi.org/10.1101/2026.03.01.123456" {
		t.Errorf("ExternalURL = %q, want doi.org link", p.ExternalURL)
	}
}

func TestNormalizeOpenAlexAccession(t *testing.T) {
	n, _ := ForSource("openalex")
	raw := sources.RawRecord{
		NativeID: "https://openalex.org/W4242424242",
		Title:    "A work without a DOI",
		RawDate:  "2026-02-20",
	}

	p, err := n.Normalize(raw, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.IdentityKey != "openalex:w4242424242" {
		t.Errorf("IdentityKey = %q, want the work accession", p.IdentityKey)
	}
	if p.ExternalURL != "https://openalex.org/W4242424242" {
		t.Errorf("ExternalURL = %q", p.ExternalURL)
	}
}

func TestIdentityStableAcrossSources(t *testing.T) {
	// The same publication surfaces on bioRxiv and later in PubMed;
	// both must key to the same identity.
	pub, _ := ForSource("pubmed")
	pre, _ := ForSource("medrxiv")

	a, err := pub.Normalize(sources.RawRecord{
		NativeID: "34567890",
		DOI:      "https://doi.org/10.1101/2026.03.01.123456",
		Title:    "The published version",
		RawDate:  "2026-03-10",
	}, runDate)
	if err != nil {
		t.Fatalf("pubmed Normalize: %v", err)
	}

	b, err := pre.Normalize(sources.RawRecord{
		DOI:     "10.1101/2026.03.01.123456",
		Title:   "The preprint version",
		RawDate: "2026-03-01",
	}, runDate)
	if err != nil {
		t.Fatalf("medrxiv Normalize: %v", err)
	}

	if a.IdentityKey != b.IdentityKey {
		t.Errorf("identity keys differ across sources: %q vs %q", a.IdentityKey, b.IdentityKey)
	}
}

func TestNamespacesNeverCollide(t *testing.T) {
	// A PMID and a textually similar non-DOI string must live in
	// separate namespaces.
	pub, _ := ForSource("pubmed")

	withPMID, err := pub.Normalize(sources.RawRecord{
		NativeID: "12345",
		Title:    "12345",
		RawDate:  "2026-01-01",
	}, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	withFingerprint, err := pub.Normalize(sources.RawRecord{
		Title:   "12345",
		Authors: []string{"Jane Doe"},
		RawDate: "2026-01-01",
	}, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if withPMID.IdentityKey == withFingerprint.IdentityKey {
		t.Errorf("accession and fingerprint collide on %q", withPMID.IdentityKey)
	}
}

func TestFingerprintFallback(t *testing.T) {
	n, _ := ForSource("openalex")

	base := sources.RawRecord{
		Title:   "An unidentified manuscript",
		Authors: []string{"Jane Doe"},
		RawDate: "2026-02-01",
	}

	p1, err := n.Normalize(base, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// Identical normalized title+author+date must produce the same key.
	same := base
	same.Title = "  An  unidentified \t manuscript "
	p2, err := n.Normalize(same, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p1.IdentityKey != p2.IdentityKey {
		t.Errorf("identical content fingerprints differ: %q vs %q", p1.IdentityKey, p2.IdentityKey)
	}

	// A different title must not collide.
	other := base
	other.Title = "A different manuscript"
	p3, err := n.Normalize(other, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p1.IdentityKey == p3.IdentityKey {
		t.Errorf("different titles collide on %q", p1.IdentityKey)
	}

	// A different date must not collide either.
	shifted := base
	shifted.RawDate = "2026-02-02"
	p4, err := n.Normalize(shifted, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p1.IdentityKey == p4.IdentityKey {
		t.Errorf("different dates collide on %q", p1.IdentityKey)
	}
}

func TestDateFallback(t *testing.T) {
	n, _ := ForSource("pubmed")

	p, err := n.Normalize(sources.RawRecord{
		NativeID: "34567890",
		Title:    "Undated record",
		RawDate:  "Spring 2026",
	}, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if !p.DateEstimated {
		t.Error("DateEstimated = false for an unparseable date")
	}
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !p.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want run date %v", p.PublishedAt, want)
	}
}

func TestEmptyTitleKeepsDateInFingerprint(t *testing.T) {
	n, _ := ForSource("openalex")

	a, err := n.Normalize(sources.RawRecord{
		Authors: []string{"Jane Doe"},
		RawDate: "2026-02-01",
	}, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if a.Title != "" {
		t.Errorf("Title = %q, want empty", a.Title)
	}

	b, err := n.Normalize(sources.RawRecord{
		Authors: []string{"Jane Doe"},
		RawDate: "2026-02-02",
	}, runDate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// The date keeps otherwise-identical empty-title records apart.
	if a.IdentityKey == b.IdentityKey {
		t.Errorf("empty-title records on different dates collide on %q", a.IdentityKey)
	}
}

func TestIrrecoverableRecord(t *testing.T) {
	n, _ := ForSource("openalex")

	_, err := n.Normalize(sources.RawRecord{RawDate: "2026-02-01"}, runDate)
	if err == nil {
		t.Error("Normalize with no identifier, title, or authors, want error")
	}
}
