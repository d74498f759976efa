package document

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxTextSize is the maximum document text size in bytes.
const MaxTextSize = 163840 // 160KB

// Document is an indexed corpus record (immutable value object).
// IDs are stable across reindexing; re-upserting an ID overwrites the record.
type Document struct {
	id    string
	title string
	text  string
	meta  map[string]string
	tags  []string
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Text: non-empty, max 160KB.
// Meta holds scalar metadata (difficulty, type, source, pattern); tags is the
// open label sequence. Neither participates in scoring.
func New(id, title, text string, meta map[string]string, tags []string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if text == "" {
		return Document{}, fmt.Errorf("text is required")
	}
	if len(text) > MaxTextSize {
		return Document{}, fmt.Errorf("text too large (max %d bytes)", MaxTextSize)
	}

	return Document{
		id:    id,
		title: title,
		text:  text,
		meta:  cloneMeta(meta),
		tags:  cloneTags(tags),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, title, text string, meta map[string]string, tags []string) Document {
	return Document{id: id, title: title, text: text, meta: meta, tags: tags}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the short display title.
func (d *Document) Title() string { return d.title }

// Text returns the retrievable body text.
func (d *Document) Text() string { return d.text }

// Meta returns the scalar metadata fields.
func (d *Document) Meta() map[string]string { return d.meta }

// Tags returns the label sequence.
func (d *Document) Tags() []string { return d.tags }

// EmbeddingText returns the text submitted for vectorization. The title is
// prefixed when present so short bodies still carry their topic.
func (d *Document) EmbeddingText() string {
	if d.title == "" {
		return d.text
	}
	return d.title + "\n\n" + d.text
}

// HasTag reports whether the document carries the given label.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneTags(t []string) []string {
	if t == nil {
		return nil
	}
	c := make([]string, len(t))
	copy(c, t)
	return c
}
