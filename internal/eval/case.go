// Package eval measures retrieval quality against labeled query sets and
// records each evaluation as an immutable run on disk, so configuration
// changes can be compared against past runs instead of gut feeling.
package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Case is a single labeled evaluation query. ExpectedIDs lists every
// document considered a correct answer; an empty list marks the case as
// unjudged and excludes it from aggregate metrics.
type Case struct {
	Query       string   `yaml:"query" json:"query"`
	ExpectedIDs []string `yaml:"expected_ids" json:"expected_ids"`
	Category    string   `yaml:"category,omitempty" json:"category,omitempty"`
	Difficulty  string   `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
}

// LoadCases reads a labeled query set from a YAML file.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases file: %w", err)
	}

	var doc struct {
		Cases []Case `yaml:"cases"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cases file: %w", err)
	}
	if len(doc.Cases) == 0 {
		return nil, fmt.Errorf("cases file %s contains no cases", path)
	}
	for i, c := range doc.Cases {
		if c.Query == "" {
			return nil, fmt.Errorf("case %d has an empty query", i)
		}
	}
	return doc.Cases, nil
}
