package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/services/providers"
	"google.golang.org/genai"
)

// Adapter implements the Provider interface on the Gemini API.
// System messages become the system instruction; the rest are sent as contents.
type Adapter struct {
	client *genai.Client
}

// New creates a Gemini adapter. A non-empty Endpoint overrides the API base URL.
func New(ctx context.Context, cfg config.CompletionConfig) (providers.Provider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.Endpoint, "/") + "/"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Adapter{client: client}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return config.ProviderGemini
}

// ChatCompletion performs a single generateContent call
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var system []string
	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, msg.Content)
		case providers.RoleAssistant:
			contents = append(contents, &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{genai.NewPartFromText(msg.Content)}})
		default:
			contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{genai.NewPartFromText(msg.Content)}})
		}
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(strings.Join(system, "\n\n"))}}
	}

	resp, err := a.client.Models.GenerateContent(ctx, req.Model, contents, genCfg)
	if err != nil {
		return nil, a.convertError(err)
	}

	return a.convertToUnifiedResponse(req.Model, resp, time.Since(startTime)), nil
}

func (a *Adapter) convertToUnifiedResponse(model string, resp *genai.GenerateContentResponse, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		ID:       resp.ResponseID,
		Model:    model,
		Provider: a.Name(),
		Latency:  latency,
	}

	for i, cand := range resp.Candidates {
		var text strings.Builder
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part != nil {
					text.WriteString(part.Text)
				}
			}
		}
		out.Choices = append(out.Choices, providers.Choice{
			Index:        i,
			Message:      providers.Message{Role: providers.RoleAssistant, Content: text.String()},
			FinishReason: strings.ToLower(string(cand.FinishReason)),
		})
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}

func (a *Adapter) convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return a.apiError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return a.apiError(*apiErrPtr, err)
	}
	return providers.NewProviderError(a.Name(), "HTTP_ERROR", "generate content request failed", 0, true, err)
}

func (a *Adapter) apiError(apiErr genai.APIError, cause error) error {
	return providers.NewProviderError(a.Name(), apiErr.Status,
		fmt.Sprintf("generate content failed with status %d: %s", apiErr.Code, apiErr.Message),
		apiErr.Code, providers.RetryableStatus(apiErr.Code), cause)
}
