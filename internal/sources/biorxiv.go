// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

// biorxivAPIBase is the bioRxiv/medRxiv details endpoint. Declared as a
// var so tests can substitute an httptest server.
var biorxivAPIBase = "https://api.biorxiv.org/details"

const (
	// biorxivPageSize is the fixed block size the details API pages in.
	biorxivPageSize = 100

	// biorxivMaxPages bounds the cursor walk in case the API keeps
	// returning full blocks for a window.
	biorxivMaxPages = 50
)

// BiorxivClient queries the bioRxiv details API, which bioRxiv and
// medRxiv share behind a server path segment. The API lists everything
// posted in a date window with no query parameter, so the client
// matches the query against title and abstract itself. Records without
// a DOI are dropped: the API carries no other stable identifier or
// link target.
type BiorxivClient struct {
	server    string
	client    *http.Client
	userAgent string
}

// NewBiorxivClient builds a client for one server segment ("biorxiv"
// or "medrxiv").
func NewBiorxivClient(server string, cfg types.SourcesConfig) *BiorxivClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BiorxivClient{
		server:    server,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

// Name returns the source identifier.
func (c *BiorxivClient) Name() string { return c.server }

// Fetch walks the window cursor by cursor and returns the records
// whose title or abstract matches the query, case-insensitively.
func (c *BiorxivClient) Fetch(ctx context.Context, query string, window Window) ([]RawRecord, error) {
	needle := strings.ToLower(query)

	var records []RawRecord
	for page := 0; page < biorxivMaxPages; page++ {
		entries, err := c.fetchPage(ctx, window, page*biorxivPageSize)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			doi := strings.TrimSpace(e.DOI)
			if doi == "" {
				continue
			}

			searchable := strings.ToLower(e.Title + " " + e.Abstract)
			if !strings.Contains(searchable, needle) {
				continue
			}

			records = append(records, RawRecord{
				DOI:      doi,
				Title:    e.Title,
				Abstract: e.Abstract,
				Journal:  c.server + " (preprint)",
				Authors:  splitAuthors(e.Authors),
				RawDate:  e.Date,
				URL:      "https://doi.org/" + doi,
			})
		}

		if len(entries) < biorxivPageSize {
			break
		}
	}
	return records, nil
}

// fetchPage retrieves one cursor block of the window listing.
func (c *BiorxivClient) fetchPage(ctx context.Context, window Window, cursor int) ([]biorxivEntry, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/%s/%d",
		biorxivAPIBase, c.server,
		window.From.Format("2006-01-02"), window.To.Format("2006-01-02"),
		cursor)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s API request: %w", c.server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API returned HTTP %d", c.server, resp.StatusCode)
	}

	var br biorxivResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", c.server, err)
	}
	return br.Collection, nil
}

// splitAuthors breaks the API's single semicolon-delimited author
// string into one name per element.
func splitAuthors(raw string) []string {
	var authors []string
	for _, a := range strings.Split(raw, ";") {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}

// Details API JSON structures.
type biorxivResponse struct {
	Collection []biorxivEntry `json:"collection"`
}

type biorxivEntry struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Abstract string `json:"abstract"`
	Category string `json:"category"`
}
