// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// doiPattern matches bare DOIs: "10.1101/2026.01.15.123456".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// pmidPattern matches PubMed accession numbers.
var pmidPattern = regexp.MustCompile(`^\d+$`)

// NormalizeDOI canonicalizes a DOI: trimmed, lowercased, resolver
// prefixes stripped. Returns "" when the input is not DOI-shaped, so
// callers fall through to the next identifier.
func NormalizeDOI(raw string) string {
	doi := strings.ToLower(strings.TrimSpace(raw))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	if !doiPattern.MatchString(doi) {
		return ""
	}
	return doi
}

// Fingerprint derives the fallback identity key for records without a
// persistent identifier: a truncated SHA-256 over the lowercased
// title, first-author surname, and publication date. The date
// component is always present (the date fallback guarantees it), so an
// empty title never hashes alone.
func Fingerprint(title, surname string, published time.Time) string {
	input := strings.ToLower(collapse(title)) + "|" +
		strings.ToLower(collapse(surname)) + "|" +
		published.Format("2006-01-02")
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("sha:%x", sum[:8])
}

// firstAuthorSurname extracts the surname of the lead author. Handles
// both name orders the sources emit: "Doe, J." takes the part before
// the comma, "Jane Doe" takes the last token.
func firstAuthorSurname(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	name := authors[0]
	if i := strings.IndexByte(name, ','); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
