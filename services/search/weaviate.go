package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

// WeaviateBackend queries a Weaviate class with BM25 keyword search.
// Weaviate reserves "id", so the object UUID is surfaced under the id field.
type WeaviateBackend struct {
	client    *weaviate.Client
	className string
	fields    []string
	idField   string
	logger    *zap.Logger
}

// NewWeaviateBackend creates a Weaviate client for cfg.Endpoint
func NewWeaviateBackend(cfg config.SearchConfig, logger *zap.Logger) (*WeaviateBackend, error) {
	scheme := "http"
	if strings.HasPrefix(cfg.Endpoint, "https://") {
		scheme = "https"
	}
	host := strings.TrimSuffix(strings.TrimPrefix(cfg.Endpoint, scheme+"://"), "/")

	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.Timeout > 0 {
		wcfg.ConnectionClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	fields := []string{}
	seen := map[string]bool{}
	for _, f := range []string{cfg.TitleField, cfg.ContentField, cfg.SourceField, cfg.IDField} {
		if f == "" || f == "id" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}

	return &WeaviateBackend{
		client:    client,
		className: cfg.Index,
		fields:    fields,
		idField:   cfg.IDField,
		logger:    logger,
	}, nil
}

// Name returns the backend name
func (b *WeaviateBackend) Name() string {
	return "weaviate"
}

// Search runs a BM25 query, or an unranked listing for the match-all query
func (b *WeaviateBackend) Search(ctx context.Context, query string, top int) ([]Record, error) {
	fields := make([]graphql.Field, 0, len(b.fields)+1)
	for _, f := range b.fields {
		fields = append(fields, graphql.Field{Name: f})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}})

	getBuilder := b.client.GraphQL().Get().
		WithClassName(b.className).
		WithFields(fields...).
		WithLimit(top)

	if q := strings.TrimSpace(query); q != "" && q != MatchAll {
		bm25 := b.client.GraphQL().Bm25ArgBuilder().WithQuery(q)
		getBuilder = getBuilder.WithBM25(bm25)
	}

	start := time.Now()
	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, graphQLError(result.Errors)
	}

	var records []Record
	get, _ := result.Data["Get"].(map[string]interface{})
	items, _ := get[b.className].([]interface{})
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rec := Record{}
		for k, v := range obj {
			if k == "_additional" {
				continue
			}
			rec[k] = v
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok && b.idField != "" {
			if _, set := rec[b.idField]; !set {
				rec[b.idField] = additional["id"]
			}
		}
		records = append(records, rec)
	}

	b.logger.Debug("weaviate search completed",
		zap.String("class", b.className),
		zap.Int("hits", len(records)),
		zap.Duration("latency", time.Since(start)))

	return records, nil
}

func graphQLError(errs []*models.GraphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil && e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return fmt.Errorf("weaviate query failed: %s", strings.Join(msgs, "; "))
}
