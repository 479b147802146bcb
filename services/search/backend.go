// Package search wraps the document indexes the insights retriever queries.
//
// Backends return raw records in backend order. Interpreting record fields
// is the retriever's job; nothing outside retrieval sees a Record.
package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dupatihari/azure-rag-demo/config"
	"go.uber.org/zap"
)

// MatchAll is the query that returns every document in the index.
const MatchAll = "*"

// Record is one raw search hit keyed by index field name.
type Record map[string]any

// Backend executes a single search request.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, top int) ([]Record, error)
}

// Factory builds a Backend for one request.
type Factory func(ctx context.Context) (Backend, error)

// NewFactory returns a Factory for the configured backend.
// Each call constructs a fresh client; nothing is pooled across requests.
func NewFactory(cfg config.SearchConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Backend {
	case config.SearchBackendAzure, "":
		return func(ctx context.Context) (Backend, error) {
			return NewAzureBackend(cfg, &http.Client{Timeout: cfg.Timeout}, logger), nil
		}, nil
	case config.SearchBackendWeaviate:
		return func(ctx context.Context) (Backend, error) {
			return NewWeaviateBackend(cfg, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported search backend %q", cfg.Backend)
	}
}
