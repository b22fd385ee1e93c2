package service

import "errors"

// Sentinel errors returned by the RAG service.
var (
	ErrNotImplemented = errors.New("rag service: not implemented")
	// ErrNoGenerator is returned by Ask when the service was constructed
	// without a generate.Client (WithGenerator).
	ErrNoGenerator = errors.New("rag service: no answer-generation backend configured")
)
