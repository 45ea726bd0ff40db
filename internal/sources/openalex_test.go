// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// --- Mock Works API server ---

const sampleOpenAlexJSON = `{
  "meta": {"count": 2, "per_page": 20, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W4391234567",
      "title": "Neoantigen vaccine trials in solid tumors",
      "doi": "https://doi.org/10.1038/s41586-026-04321-0",
      "publication_date": "2026-03-12",
      "publication_year": 2026,
      "authorships": [
        {"author": {"id": "https://openalex.org/A1", "display_name": "Priya Natarajan"}},
        {"author": {"id": "https://openalex.org/A2", "display_name": "Luis Herrera"}}
      ],
      "abstract_inverted_index": {
        "Neoantigen": [0], "vaccines": [1], "elicit": [2],
        "T": [3, 5], "cell": [4], "responses": [6]
      },
      "primary_location": {"source": {"display_name": "Nature"}}
    },
    {
      "id": "https://openalex.org/W4391234568",
      "title": "A conference abstract without a registered DOI",
      "publication_year": 2026,
      "authorships": [],
      "primary_location": {"source": {"display_name": ""}}
    }
  ]
}`

// openAlexServer records the query parameters of every Works call.
type openAlexServer struct {
	ts *httptest.Server

	mu      sync.Mutex
	queries []url.Values
}

func newOpenAlexServer(t *testing.T, body string) *openAlexServer {
	srv := &openAlexServer{}
	srv.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		srv.queries = append(srv.queries, r.URL.Query())
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.ts.Close)

	old := openAlexAPIBase
	openAlexAPIBase = srv.ts.URL
	t.Cleanup(func() { openAlexAPIBase = old })

	return srv
}

// --- OpenAlexClient.Fetch ---

func TestOpenAlexFetch(t *testing.T) {
	srv := newOpenAlexServer(t, sampleOpenAlexJSON)

	c := NewOpenAlexClient(testSourcesCfg())
	records, err := c.Fetch(context.Background(), "neoantigen vaccine", testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(srv.queries) != 1 {
		t.Fatalf("requests = %d, want 1", len(srv.queries))
	}
	q := srv.queries[0]
	if got := q.Get("search"); got != "neoantigen vaccine" {
		t.Errorf("search = %q, want the query", got)
	}
	if got := q.Get("per_page"); got != "20" {
		t.Errorf("per_page = %q, want 20", got)
	}
	if got := q.Get("page"); got != "1" {
		t.Errorf("page = %q, want 1", got)
	}
	wantFilter := "from_publication_date:2026-03-10,to_publication_date:2026-03-14"
	if got := q.Get("filter"); got != wantFilter {
		t.Errorf("filter = %q, want %q", got, wantFilter)
	}
	if q.Has("mailto") {
		t.Errorf("mailto sent without a configured email")
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r0 := records[0]
	if r0.NativeID != "https://openalex.org/W4391234567" {
		t.Errorf("NativeID = %q", r0.NativeID)
	}
	// The resolver prefix is stripped from the DOI but kept in the URL.
	if r0.DOI != "10.1038/s41586-026-04321-0" {
		t.Errorf("DOI = %q, want the bare DOI", r0.DOI)
	}
	if r0.URL != "https://doi.org/10.1038/s41586-026-04321-0" {
		t.Errorf("URL = %q", r0.URL)
	}
	if r0.Journal != "Nature" {
		t.Errorf("Journal = %q, want Nature", r0.Journal)
	}
	if r0.RawDate != "2026-03-12" {
		t.Errorf("RawDate = %q, want 2026-03-12", r0.RawDate)
	}
	wantAuthors := []string{"Priya Natarajan", "Luis Herrera"}
	if !reflect.DeepEqual(r0.Authors, wantAuthors) {
		t.Errorf("Authors = %v, want %v", r0.Authors, wantAuthors)
	}
	if want := "Neoantigen vaccines elicit T cell T responses"; r0.Abstract != want {
		t.Errorf("Abstract = %q, want %q", r0.Abstract, want)
	}

	r1 := records[1]
	if r1.DOI != "" {
		t.Errorf("DOI = %q, want empty", r1.DOI)
	}
	// Without a DOI the OpenAlex work URL is the only stable link.
	if r1.URL != "https://openalex.org/W4391234568" {
		t.Errorf("URL = %q, want the work id", r1.URL)
	}
	// Year-only works date to January 1st.
	if r1.RawDate != "2026-01-01" {
		t.Errorf("RawDate = %q, want 2026-01-01", r1.RawDate)
	}
}

func TestOpenAlexFetchPolitePool(t *testing.T) {
	srv := newOpenAlexServer(t, `{"meta": {}, "results": []}`)

	cfg := testSourcesCfg()
	cfg.OpenAlex.Email = "lab@example.org"
	c := NewOpenAlexClient(cfg)
	if _, err := c.Fetch(context.Background(), "query", testWindow()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := srv.queries[0].Get("mailto"); got != "lab@example.org" {
		t.Errorf("mailto = %q, want lab@example.org", got)
	}
}

func TestOpenAlexFetchClampsPerPage(t *testing.T) {
	srv := newOpenAlexServer(t, `{"meta": {}, "results": []}`)

	cfg := testSourcesCfg()
	cfg.OpenAlex.MaxResults = 500
	c := NewOpenAlexClient(cfg)
	if _, err := c.Fetch(context.Background(), "query", testWindow()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The Works API caps per_page at 200.
	if got := srv.queries[0].Get("per_page"); got != "200" {
		t.Errorf("per_page = %q, want 200", got)
	}
}

func TestOpenAlexFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(ts.Close)

	old := openAlexAPIBase
	openAlexAPIBase = ts.URL
	t.Cleanup(func() { openAlexAPIBase = old })

	c := NewOpenAlexClient(testSourcesCfg())
	_, err := c.Fetch(context.Background(), "query", testWindow())
	if err == nil || !strings.Contains(err.Error(), "OpenAlex API returned HTTP 403") {
		t.Errorf("err = %v, want OpenAlex HTTP 403 error", err)
	}
}

// --- reconstructAbstract ---

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name string
		in   map[string][]int
		want string
	}{
		{"empty", nil, ""},
		{"single word", map[string][]int{"Immunogenicity": {0}}, "Immunogenicity"},
		{
			"repeated word",
			map[string][]int{"the": {0, 3}, "stronger": {1}, "response,": {2}, "better": {4}},
			"the stronger response, the better",
		},
	}
	for _, tt := range tests {
		if got := reconstructAbstract(tt.in); got != tt.want {
			t.Errorf("%s: reconstructAbstract = %q, want %q", tt.name, got, tt.want)
		}
	}
}
