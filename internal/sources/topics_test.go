// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestTopicsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	in := Topics{Queries: map[string][]string{
		"pubmed":  {"neoantigen vaccine", "neoepitope vaccine"},
		"biorxiv": {"tumor mutanome"},
	}}

	if err := WriteTopics(path, in); err != nil {
		t.Fatalf("WriteTopics: %v", err)
	}
	out, err := ReadTopics(path)
	if err != nil {
		t.Fatalf("ReadTopics: %v", err)
	}

	if !reflect.DeepEqual(out.Queries, in.Queries) {
		t.Errorf("Queries = %v, want %v", out.Queries, in.Queries)
	}
}

func TestReadTopicsMissingFile(t *testing.T) {
	_, err := ReadTopics(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestReadTopicsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("queries: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadTopics(path)
	if err == nil || !strings.Contains(err.Error(), "parsing topics file") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestTopicsForSource(t *testing.T) {
	topics := Topics{Queries: map[string][]string{
		"pubmed": {"neoantigen vaccine"},
	}}

	if got := topics.ForSource("pubmed"); len(got) != 1 {
		t.Errorf("ForSource(pubmed) = %v, want one query", got)
	}
	if got := topics.ForSource("openalex"); got != nil {
		t.Errorf("ForSource(openalex) = %v, want nil", got)
	}
}

func TestTopicsSourceNames(t *testing.T) {
	topics := Topics{Queries: map[string][]string{
		"pubmed":  {"a"},
		"medrxiv": {"b"},
		"biorxiv": {"c"},
	}}

	want := []string{"biorxiv", "medrxiv", "pubmed"}
	if got := topics.SourceNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SourceNames() = %v, want %v", got, want)
	}
}
