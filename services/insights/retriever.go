package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/internal/observability"
	"github.com/dupatihari/azure-rag-demo/services"
	"github.com/dupatihari/azure-rag-demo/services/search"
	"github.com/dupatihari/azure-rag-demo/services/storage"
	"go.uber.org/zap"
)

// DefaultTopK bounds retrieval when the caller does not
const DefaultTopK = 5

// FieldMapping names the index fields a Document is built from.
// Source defaults to the Title field.
type FieldMapping struct {
	Title   string
	ID      string
	Content string
	Source  string
}

// FieldMappingFrom reads the field names from search configuration
func FieldMappingFrom(cfg config.SearchConfig) FieldMapping {
	return FieldMapping{
		Title:   cfg.TitleField,
		ID:      cfg.IDField,
		Content: cfg.ContentField,
		Source:  cfg.SourceField,
	}
}

// Retriever queries the document index and shapes hits into Documents
type Retriever struct {
	backends search.Factory
	fields   FieldMapping
	resolver storage.URLResolver
	logger   *zap.Logger
}

// NewRetriever creates a retriever. resolver may be nil, in which case
// every Document has an empty URL.
func NewRetriever(backends search.Factory, fields FieldMapping, resolver storage.URLResolver, logger *zap.Logger) *Retriever {
	if fields.Title == "" {
		fields.Title = "name"
	}
	if fields.ID == "" {
		fields.ID = "id"
	}
	if fields.Content == "" {
		fields.Content = "content"
	}
	if fields.Source == "" {
		fields.Source = fields.Title
	}
	return &Retriever{
		backends: backends,
		fields:   fields,
		resolver: resolver,
		logger:   logger,
	}
}

// Retrieve runs one search and returns the hits in backend order.
// A blank query matches every document.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	logger := observability.ForRequest(ctx, r.logger)

	if strings.TrimSpace(query) == "" {
		query = search.MatchAll
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	backend, err := r.backends(ctx)
	if err != nil {
		return nil, services.WrapRetrieval("failed to create search client", err)
	}

	records, err := backend.Search(ctx, query, topK)
	if err != nil {
		logger.Error("search request failed",
			zap.String("backend", backend.Name()),
			zap.Error(err))
		return nil, services.WrapRetrieval("search request failed", err)
	}

	docs := make([]Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, r.toDocument(ctx, logger, record))
	}

	logger.Debug("retrieved documents",
		zap.String("backend", backend.Name()),
		zap.Int("top", topK),
		zap.Int("count", len(docs)))

	return docs, nil
}

func (r *Retriever) toDocument(ctx context.Context, logger *zap.Logger, record search.Record) Document {
	title := field(record, r.fields.Title)
	if title == "" {
		title = field(record, r.fields.ID)
	}

	doc := Document{
		Title:   title,
		Content: field(record, r.fields.Content),
		Source:  field(record, r.fields.Source),
	}

	if r.resolver != nil && doc.Source != "" {
		url, err := r.resolver.Resolve(ctx, doc.Source)
		if err != nil {
			logger.Warn("failed to resolve document url",
				zap.String("source", doc.Source),
				zap.Error(err))
		} else {
			doc.URL = url
		}
	}

	return doc
}

// field returns record[key] as a string; absent and null values are empty
func field(record search.Record, key string) string {
	v, ok := record[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
