package domain

import "errors"

var (
	// ErrModelUnavailable signals that a requested embedding model is not
	// configured or could not be constructed.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrEmbeddingFailure signals a failed embedding computation.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrIndexUnavailable signals that the vector index is unreachable.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrInvalidConfiguration signals rejected retrieval parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
)
