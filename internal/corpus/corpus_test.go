package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Array(t *testing.T) {
	path := writeFile(t, "corpus.json", `[
		{"id": "doc-1", "title": "Goroutine leaks", "text": "A goroutine leak happens when...", "meta": {"source": "go-faq"}, "tags": ["concurrency"]},
		{"id": "doc-2", "text": "Maps are not safe for concurrent use."}
	]`)

	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Load() returned %d documents, want 2", len(docs))
	}
	if docs[0].ID() != "doc-1" {
		t.Errorf("docs[0].ID() = %q, want doc-1", docs[0].ID())
	}
	if docs[0].Meta()["source"] != "go-faq" {
		t.Errorf("docs[0].Meta()[source] = %q, want go-faq", docs[0].Meta()["source"])
	}
	if docs[1].Title() != "" {
		t.Errorf("docs[1].Title() = %q, want empty", docs[1].Title())
	}
}

func TestLoad_WrappedObject(t *testing.T) {
	path := writeFile(t, "corpus.json", `{"documents": [{"id": "doc-1", "text": "hello"}]}`)

	docs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "doc-1" {
		t.Fatalf("Load() = %v, want one document doc-1", docs)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"not json", "nope", "parse corpus file"},
		{"empty array", "[]", "contains no documents"},
		{"invalid document", `[{"id": "", "text": "x"}]`, "document 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "corpus.json", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
