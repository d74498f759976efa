package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/domain/document"
	"github.com/swali-ai/retrieval/internal/domain/search/filter"
	"github.com/swali-ai/retrieval/internal/index"
)

// Compile-time check: Store implements index.Index.
var _ index.Index = (*Store)(nil)

// Hash fields per document. Filterable metadata keys are mirrored into
// their own TAG fields; the full metadata map travels as JSON.
const (
	fieldID     = "id"
	fieldTitle  = "title"
	fieldText   = "text"
	fieldMeta   = "meta"
	fieldTags   = "tags"
	fieldVector = "vector"
)

const scoreField = "__vector_score"

// Upsert inserts or overwrites a document under the model namespace.
func (s *Store) Upsert(ctx context.Context, doc document.Document, embedding []float32, model string) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required for document %q", doc.ID())
	}
	if err := s.ensureIndex(ctx, model, len(embedding)); err != nil {
		return err
	}

	fields, err := docFields(doc, embedding)
	if err != nil {
		return err
	}

	cmd := s.b().Hset().Key(s.docKey(model, doc.ID())).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("%w: upsert %q: %v", domain.ErrIndexUnavailable, doc.ID(), err)
	}
	return nil
}

// UpsertBatch bulk-indexes documents in a single DoMulti round-trip.
func (s *Store) UpsertBatch(ctx context.Context, docs []document.Document, embeddings [][]float32, model string) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("documents and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("embedding is required for document %q", docs[i].ID())
		}
	}
	if err := s.ensureIndex(ctx, model, len(embeddings[0])); err != nil {
		return err
	}

	cmds := make([]rueidis.Completed, len(docs))
	for i := range docs {
		fields, err := docFields(docs[i], embeddings[i])
		if err != nil {
			return err
		}
		cmd := s.b().Hset().Key(s.docKey(model, docs[i].ID())).FieldValue()
		for k, v := range fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("%w: upsert %q: %v", domain.ErrIndexUnavailable, docs[i].ID(), err)
		}
	}
	return nil
}

// Search runs a KNN query via FT.SEARCH and returns up to n hits ordered by
// non-decreasing cosine distance. A namespace without an index yields an
// empty result.
func (s *Store) Search(ctx context.Context, embedding []float32, n int, f filter.Expression, model string) ([]index.Hit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is required")
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", n, fieldVector)
	queryStr := "*=>" + knnPart
	if filterStr := buildFilter(f); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{
		s.indexName(model), queryStr,
		"RETURN", "6", fieldID, fieldTitle, fieldText, fieldMeta, fieldTags, scoreField,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(n),
		"PARAMS", "2", "BLOB", vectorToBytes(embedding),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return []index.Hit{}, nil
		}
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndexUnavailable, err)
	}

	return parseKNNResult(raw)
}

// GetAll exports every record in the model namespace, ordered by document id.
func (s *Store) GetAll(ctx context.Context, model string) ([]index.Record, error) {
	keys, err := s.scan(ctx, s.docKey(model, "*"))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []index.Record{}, nil
	}
	sort.Strings(keys)

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	records := make([]index.Record, 0, len(results))
	for i, res := range results {
		fields, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("%w: hgetall %s: %v", domain.ErrIndexUnavailable, keys[i], err)
		}
		if len(fields) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		doc, err := docFromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", keys[i], err)
		}
		records = append(records, index.Record{
			Document:  doc,
			Embedding: bytesToVector(fields[fieldVector]),
		})
	}
	return records, nil
}

// Count returns document count via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.indexName(model), "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count: %v", domain.ErrIndexUnavailable, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// ensureIndex creates the per-model FT index on first write. Dimensions come
// from the first embedding seen for the model.
func (s *Store) ensureIndex(ctx context.Context, model string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created[model] {
		return nil
	}

	args := []string{
		s.indexName(model),
		"ON", "HASH",
		"PREFIX", "1", s.docKey(model, ""),
		"SCHEMA",
	}
	metaKeys := make([]string, 0, len(filter.KnownKeys))
	for key := range filter.KnownKeys {
		metaKeys = append(metaKeys, key)
	}
	sort.Strings(metaKeys) // map order is random; keep the schema stable
	for _, key := range metaKeys {
		args = append(args, key, "TAG")
	}
	args = append(args, fieldTags, "TAG", "SEPARATOR", ",")

	vectorAttrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
	}
	if s.hnswM > 0 {
		vectorAttrs = append(vectorAttrs, "M", strconv.Itoa(s.hnswM))
	}
	if s.hnswEF > 0 {
		vectorAttrs = append(vectorAttrs, "EF_CONSTRUCTION", strconv.Itoa(s.hnswEF))
	}
	args = append(args, fieldVector, "VECTOR", "HNSW", strconv.Itoa(len(vectorAttrs)))
	args = append(args, vectorAttrs...)

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "index already exists") {
		return fmt.Errorf("%w: create index for model %q: %v", domain.ErrIndexUnavailable, model, err)
	}
	s.created[model] = true
	return nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrIndexUnavailable, err)
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

func (s *Store) docKey(model, id string) string {
	return s.prefix + "doc:" + model + ":" + id
}

func (s *Store) indexName(model string) string {
	return s.prefix + "idx:" + model
}

func docFields(doc document.Document, embedding []float32) (map[string]string, error) {
	metaJSON, err := json.Marshal(doc.Meta())
	if err != nil {
		return nil, fmt.Errorf("encode meta for %q: %w", doc.ID(), err)
	}

	fields := map[string]string{
		fieldID:     doc.ID(),
		fieldTitle:  doc.Title(),
		fieldText:   doc.Text(),
		fieldMeta:   string(metaJSON),
		fieldTags:   strings.Join(doc.Tags(), ","),
		fieldVector: vectorToBytes(embedding),
	}
	for key := range filter.KnownKeys {
		if v, ok := doc.Meta()[key]; ok {
			fields[key] = v
		}
	}
	return fields, nil
}

func docFromFields(fields map[string]string) (document.Document, error) {
	meta := map[string]string{}
	if raw := fields[fieldMeta]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return document.Document{}, fmt.Errorf("decode meta: %w", err)
		}
	}

	var tags []string
	if raw := fields[fieldTags]; raw != "" {
		tags = strings.Split(raw, ",")
	}

	return document.Reconstruct(fields[fieldID], fields[fieldTitle], fields[fieldText], meta, tags), nil
}
