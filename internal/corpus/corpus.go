// Package corpus loads document sets from JSON files for indexing.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/swali-ai/retrieval/internal/domain/document"
)

// Entry is the on-disk document format.
type Entry struct {
	ID    string            `json:"id"`
	Title string            `json:"title,omitempty"`
	Text  string            `json:"text"`
	Meta  map[string]string `json:"meta,omitempty"`
	Tags  []string          `json:"tags,omitempty"`
}

// Load reads a JSON corpus file: either a top-level array of entries or an
// object with a "documents" array.
func Load(path string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapped struct {
			Documents []Entry `json:"documents"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse corpus file: %w", err)
		}
		entries = wrapped.Documents
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no documents", path)
	}

	docs := make([]document.Document, len(entries))
	for i, e := range entries {
		doc, err := document.New(e.ID, e.Title, e.Text, e.Meta, e.Tags)
		if err != nil {
			return nil, fmt.Errorf("document %d (%q): %w", i, e.ID, err)
		}
		docs[i] = doc
	}
	return docs, nil
}
