// Package rank scores and re-orders retrieval candidates by blending a
// semantic (vector distance) signal with a lexical (term overlap) signal.
package rank

import (
	"fmt"
	"sort"

	"github.com/swali-ai/retrieval/internal/domain"
	"github.com/swali-ai/retrieval/internal/domain/document"
)

// Default blend keeps semantic search dominant.
const (
	DefaultSemanticWeight = 0.7
	DefaultLexicalWeight  = 0.3
)

// Weights configure the hybrid score blend.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights returns the semantic-dominant default blend.
func DefaultWeights() Weights {
	return Weights{Semantic: DefaultSemanticWeight, Lexical: DefaultLexicalWeight}
}

// Validate rejects negative or all-zero weights.
func (w Weights) Validate() error {
	if w.Semantic < 0 || w.Lexical < 0 {
		return fmt.Errorf("%w: weights must be non-negative (semantic=%v lexical=%v)",
			domain.ErrInvalidConfiguration, w.Semantic, w.Lexical)
	}
	if w.Semantic == 0 && w.Lexical == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", domain.ErrInvalidConfiguration)
	}
	return nil
}

// Candidate is a transient scored document produced during a single
// retrieval call. Distance is the raw index distance (lower is better);
// Combined is the hybrid score (higher is better). Rank is the 0-based
// position in the original semantic ordering.
type Candidate struct {
	Document document.Document
	Distance float64
	Lexical  float64
	Combined float64
	Rank     int
}

// Rerank re-orders candidates by the blended score. The candidate set is
// never grown, shrunk, or filtered; only the order changes.
//
// Distances are normalized to similarities via min-max over the candidate
// set so weights stay comparable across queries with different distance
// scales. Sets with fewer than 2 candidates, or with zero distance spread,
// get uniform similarity 1.
func Rerank(query string, candidates []Candidate, w Weights) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	reranked := make([]Candidate, len(candidates))
	copy(reranked, candidates)

	minD, maxD := reranked[0].Distance, reranked[0].Distance
	for _, c := range reranked[1:] {
		if c.Distance < minD {
			minD = c.Distance
		}
		if c.Distance > maxD {
			maxD = c.Distance
		}
	}
	spread := maxD - minD

	for i := range reranked {
		c := &reranked[i]

		similarity := 1.0
		if len(reranked) > 1 && spread > 0 {
			similarity = (maxD - c.Distance) / spread
		}

		c.Lexical = LexicalScore(query, c.Document.Title(), c.Document.Text())
		c.Combined = w.Semantic*similarity + w.Lexical*c.Lexical
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		a, b := &reranked[i], &reranked[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Document.ID() < b.Document.ID()
	})

	return reranked
}
