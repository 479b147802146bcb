package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"go.uber.org/zap"
)

// AzureBackend queries an Azure AI Search index over its REST API
type AzureBackend struct {
	endpoint   string
	index      string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	logger     *zap.Logger
}

type azureSearchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
}

type azureSearchResponse struct {
	Value []Record `json:"value"`
}

type azureErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAzureBackend creates a new Azure AI Search backend
func NewAzureBackend(cfg config.SearchConfig, httpClient *http.Client, logger *zap.Logger) *AzureBackend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AzureBackend{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		index:      cfg.Index,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the backend name
func (b *AzureBackend) Name() string {
	return "azure-search"
}

// Search posts a simple full-text query and returns the hits in ranking order
func (b *AzureBackend) Search(ctx context.Context, query string, top int) ([]Record, error) {
	reqBody, err := json.Marshal(azureSearchRequest{Search: query, Top: top})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.searchURL(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", b.apiKey)

	start := time.Now()
	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, b.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var resp azureSearchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	b.logger.Debug("azure search completed",
		zap.String("index", b.index),
		zap.Int("hits", len(resp.Value)),
		zap.Duration("latency", time.Since(start)))

	return resp.Value, nil
}

func (b *AzureBackend) searchURL() string {
	q := url.Values{}
	q.Set("api-version", b.apiVersion)
	return fmt.Sprintf("%s/indexes/%s/docs/search?%s", b.endpoint, url.PathEscape(b.index), q.Encode())
}

func (b *AzureBackend) handleErrorResponse(statusCode int, body []byte) error {
	var errResp azureErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("search returned status %d (%s): %s", statusCode, errResp.Error.Code, errResp.Error.Message)
	}
	return fmt.Errorf("search returned status %d: %s", statusCode, strings.TrimSpace(string(body)))
}
