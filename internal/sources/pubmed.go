// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/litwatch/internal/httputil"
	"github.com/pdiddy/litwatch/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedSearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// efetchBatchSize bounds PMIDs per efetch request.
const efetchBatchSize = 20

// PubMedClient queries NCBI E-utilities in two phases: esearch for the
// PMIDs published inside the window, efetch for article detail in
// batches. All requests pass through a shared rate limiter; NCBI allows
// 3 req/s anonymously and 10 req/s with an API key.
type PubMedClient struct {
	client     *http.Client
	limiter    *rate.Limiter
	apiKey     string
	maxResults int
	userAgent  string
}

// NewPubMedClient builds a client from the sources configuration.
func NewPubMedClient(cfg types.SourcesConfig) *PubMedClient {
	rps := rate.Limit(3)
	if cfg.PubMed.APIKey != "" {
		rps = rate.Limit(10)
	}
	maxResults := cfg.PubMed.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PubMedClient{
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rps, 1),
		apiKey:     cfg.PubMed.APIKey,
		maxResults: maxResults,
		userAgent:  cfg.UserAgent,
	}
}

// Name returns the source identifier.
func (c *PubMedClient) Name() string { return "pubmed" }

// Fetch searches the window for query, then pulls article details for
// the matching PMIDs.
func (c *PubMedClient) Fetch(ctx context.Context, query string, window Window) ([]RawRecord, error) {
	pmids, err := c.search(ctx, query, window)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	var records []RawRecord
	for start := 0; start < len(pmids); start += efetchBatchSize {
		end := start + efetchBatchSize
		if end > len(pmids) {
			end = len(pmids)
		}
		batch, err := c.fetchDetails(ctx, pmids[start:end])
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

// search runs esearch and returns the PMID id list.
func (c *PubMedClient) search(ctx context.Context, query string, window Window) ([]string, error) {
	params := url.Values{
		"db":       {"pubmed"},
		"term":     {query},
		"retmax":   {fmt.Sprintf("%d", c.maxResults)},
		"sort":     {"date"},
		"datetype": {"pdat"},
		"mindate":  {window.From.Format("2006/01/02")},
		"maxdate":  {window.To.Format("2006/01/02")},
		"retmode":  {"json"},
	}

	resp, err := c.get(ctx, pubmedSearchBase, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr pubmedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	return sr.Result.IDList, nil
}

// fetchDetails runs efetch for one PMID batch and decodes the article set.
func (c *PubMedClient) fetchDetails(ctx context.Context, pmids []string) ([]RawRecord, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}

	resp, err := c.get(ctx, pubmedFetchBase, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	var records []RawRecord
	for _, article := range set.Articles {
		pmid := article.Citation.PMID
		if pmid == "" {
			continue
		}

		r := RawRecord{
			NativeID: pmid,
			Title:    article.Citation.Article.Title,
			Journal:  article.Citation.Article.Journal,
			RawDate:  article.Citation.date(),
			URL:      "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		}

		for _, a := range article.Citation.Article.Authors {
			if a.LastName == "" {
				continue
			}
			r.Authors = append(r.Authors, strings.TrimSpace(a.ForeName+" "+a.LastName))
		}

		// Structured abstracts arrive in labeled sections; keep the
		// labels so the text reads whole.
		var parts []string
		for _, abs := range article.Citation.Article.Abstract {
			text := strings.TrimSpace(abs.Text)
			if text == "" {
				continue
			}
			if abs.Label != "" {
				parts = append(parts, abs.Label+": "+text)
			} else {
				parts = append(parts, text)
			}
		}
		r.Abstract = strings.Join(parts, " ")

		for _, id := range article.IDs {
			if id.IDType == "doi" {
				r.DOI = strings.TrimSpace(id.Value)
				break
			}
		}

		records = append(records, r)
	}
	return records, nil
}

// get issues one rate-limited E-utilities request with 429 retry.
func (c *PubMedClient) get(ctx context.Context, base string, params url.Values) (*http.Response, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 3)
	if err != nil {
		return nil, fmt.Errorf("PubMed API request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// esearch JSON structures.
type pubmedSearchResponse struct {
	Result pubmedSearchResult `json:"esearchresult"`
}

type pubmedSearchResult struct {
	IDList []string `json:"idlist"`
}

// efetch XML structures.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation pubmedCitation    `xml:"MedlineCitation"`
	IDs      []pubmedArticleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedCitation struct {
	PMID      string            `xml:"PMID"`
	Article   pubmedArticleData `xml:"Article"`
	Completed *pubmedDate       `xml:"DateCompleted"`
	Revised   *pubmedDate       `xml:"DateRevised"`
}

// date assembles an ISO date from DateCompleted, falling back to
// DateRevised, the order the MEDLINE record maintains them.
func (c pubmedCitation) date() string {
	d := c.Completed
	if d == nil || d.Year == "" {
		d = c.Revised
	}
	if d == nil || d.Year == "" {
		return ""
	}
	return d.Year + "-" + pad2(d.Month) + "-" + pad2(d.Day)
}

type pubmedArticleData struct {
	Title    string               `xml:"ArticleTitle"`
	Journal  string               `xml:"Journal>Title"`
	Abstract []pubmedAbstractText `xml:"Abstract>AbstractText"`
	Authors  []pubmedAuthor       `xml:"AuthorList>Author"`
}

type pubmedAbstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// pad2 left-pads a numeric date part to two digits; empty becomes "01".
func pad2(s string) string {
	switch len(s) {
	case 0:
		return "01"
	case 1:
		return "0" + s
	default:
		return s
	}
}
