package eval

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCasesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cases file: %v", err)
	}
	return path
}

func TestLoadCases(t *testing.T) {
	path := writeCasesFile(t, `
cases:
  - query: "how do I find goroutine leaks"
    expected_ids: ["doc-leaks", "doc-pprof"]
    category: "debugging"
    difficulty: "medium"
  - query: "uncharted question"
`)

	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("loaded %d cases, want 2", len(cases))
	}
	if cases[0].Category != "debugging" || len(cases[0].ExpectedIDs) != 2 {
		t.Errorf("first case parsed wrong: %+v", cases[0])
	}
	if len(cases[1].ExpectedIDs) != 0 {
		t.Errorf("second case should be unjudged, got %+v", cases[1].ExpectedIDs)
	}
}

func TestLoadCases_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCases(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("no cases", func(t *testing.T) {
		path := writeCasesFile(t, "cases: []\n")
		if _, err := LoadCases(path); err == nil {
			t.Error("expected error for empty case list")
		}
	})

	t.Run("empty query", func(t *testing.T) {
		path := writeCasesFile(t, "cases:\n  - expected_ids: [\"a\"]\n")
		if _, err := LoadCases(path); err == nil {
			t.Error("expected error for case without query")
		}
	})
}
