package document

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	doc, err := New("nc_1", "Two Sum",
		"Given an array of integers, return indices of the two numbers that add up to target.",
		map[string]string{"difficulty": "easy", "type": "leetcode_problem"},
		[]string{"arrays", "hash-map"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "nc_1" {
		t.Errorf("ID = %q, want nc_1", doc.ID())
	}
	if doc.Meta()["difficulty"] != "easy" {
		t.Errorf("meta difficulty = %q, want easy", doc.Meta()["difficulty"])
	}
	if !doc.HasTag("hash-map") {
		t.Error("expected tag hash-map")
	}
	if doc.HasTag("graphs") {
		t.Error("unexpected tag graphs")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		text  string
	}{
		{"empty id", "", "text"},
		{"empty text", "nc_1", ""},
		{"bad id chars", "nc 1!", "text"},
		{"id too long", strings.Repeat("a", 257), "text"},
		{"text too large", "nc_1", strings.Repeat("x", MaxTextSize+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, "title", tc.text, nil, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	withTitle, err := New("nc_1", "Two Sum", "Given an array of integers...", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := withTitle.EmbeddingText(); got != "Two Sum\n\nGiven an array of integers..." {
		t.Errorf("EmbeddingText() = %q", got)
	}

	noTitle, err := New("nc_2", "", "body only", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := noTitle.EmbeddingText(); got != "body only" {
		t.Errorf("EmbeddingText() = %q, want body only", got)
	}
}

func TestNew_ClonesMetadata(t *testing.T) {
	meta := map[string]string{"difficulty": "easy"}
	tags := []string{"arrays"}

	doc, err := New("nc_1", "Two Sum", "body", meta, tags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta["difficulty"] = "hard"
	tags[0] = "graphs"

	if doc.Meta()["difficulty"] != "easy" {
		t.Error("meta was not cloned")
	}
	if doc.Tags()[0] != "arrays" {
		t.Error("tags were not cloned")
	}
}
