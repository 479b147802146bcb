package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response is echoed back
const maxErrorBody = 512

// InsightsFetcher returns the insights endpoint's JSON body for a question
type InsightsFetcher interface {
	FetchInsights(ctx context.Context, question string) (string, error)
}

// InsightsClient calls the insights HTTP endpoint
type InsightsClient struct {
	functionURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewInsightsClient creates a client for functionURL
func NewInsightsClient(functionURL string, timeout time.Duration, logger *zap.Logger) *InsightsClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InsightsClient{
		functionURL: functionURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// FetchInsights performs one GET with q=question and returns the body verbatim
func (c *InsightsClient) FetchInsights(ctx context.Context, question string) (string, error) {
	u, err := url.Parse(c.functionURL)
	if err != nil {
		return "", fmt.Errorf("invalid insights url: %w", err)
	}
	q := u.Query()
	q.Set("q", question)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create insights request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("insights request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read insights response: %w", err)
	}

	c.logger.Debug("insights endpoint responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", fmt.Errorf("insights endpoint returned status %d: %s", resp.StatusCode, snippet)
	}

	return string(body), nil
}
