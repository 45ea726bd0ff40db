// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"
)

// Topics is the on-disk search corpus: the query strings issued to
// each source per run. The operator edits this file to tune tracking
// scope without touching configuration.
type Topics struct {
	// Queries maps a source name to its query strings.
	Queries map[string][]string `yaml:"queries"`
}

// ReadTopics loads the topics file from disk.
func ReadTopics(path string) (Topics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topics{}, fmt.Errorf("reading topics file: %w", err)
	}
	var t Topics
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Topics{}, fmt.Errorf("parsing topics file: %w", err)
	}
	return t, nil
}

// WriteTopics saves the topics file, used to seed a starter corpus.
func WriteTopics(path string, t Topics) error {
	data, err := yaml.Marshal(&t)
	if err != nil {
		return fmt.Errorf("marshaling topics file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ForSource returns the query list configured for one source.
func (t Topics) ForSource(name string) []string {
	return t.Queries[name]
}

// SourceNames returns the configured source names in sorted order.
func (t Topics) SourceNames() []string {
	names := make([]string, 0, len(t.Queries))
	for name := range t.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
