// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexClient queries the OpenAlex Works API. OpenAlex is
// DOI-centric, which makes it a good cross-check source: records it
// shares with PubMed or the preprint servers deduplicate on the DOI.
type OpenAlexClient struct {
	client     *http.Client
	email      string
	maxResults int
	userAgent  string
}

// NewOpenAlexClient builds a client from the sources configuration.
func NewOpenAlexClient(cfg types.SourcesConfig) *OpenAlexClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxResults := cfg.OpenAlex.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	if maxResults > 200 {
		maxResults = 200
	}
	return &OpenAlexClient{
		client:     &http.Client{Timeout: timeout},
		email:      cfg.OpenAlex.Email,
		maxResults: maxResults,
		userAgent:  cfg.UserAgent,
	}
}

// Name returns the source identifier.
func (c *OpenAlexClient) Name() string { return "openalex" }

// Fetch searches works matching query restricted to publication dates
// inside the window.
func (c *OpenAlexClient) Fetch(ctx context.Context, query string, window Window) ([]RawRecord, error) {
	params := url.Values{
		"search":   {query},
		"per_page": {fmt.Sprintf("%d", c.maxResults)},
		"page":     {"1"},
	}

	filters := []string{
		"from_publication_date:" + window.From.Format("2006-01-02"),
		"to_publication_date:" + window.To.Format("2006-01-02"),
	}
	params.Set("filter", strings.Join(filters, ","))

	if c.email != "" {
		params.Set("mailto", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var records []RawRecord
	for _, work := range oar.Results {
		r := RawRecord{
			NativeID: work.ID,
			Title:    work.Title,
			Abstract: reconstructAbstract(work.AbstractInvertedIndex),
			Journal:  work.PrimaryLocation.Source.DisplayName,
			RawDate:  work.PublicationDate,
		}

		if r.RawDate == "" && work.PublicationYear > 0 {
			r.RawDate = fmt.Sprintf("%d-01-01", work.PublicationYear)
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				r.Authors = append(r.Authors, authorship.Author.DisplayName)
			}
		}

		// OpenAlex reports DOIs as resolver URLs; keep the bare DOI.
		if work.DOI != "" {
			doi := strings.TrimPrefix(work.DOI, "https://doi.org/")
			r.DOI = doi
			r.URL = "https://doi.org/" + doi
		} else {
			r.URL = work.ID
		}

		records = append(records, r)
	}
	return records, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back
// to plain text. The inverted index maps each word to the positions
// where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
