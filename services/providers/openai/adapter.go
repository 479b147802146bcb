package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dupatihari/azure-rag-demo/config"
	"github.com/dupatihari/azure-rag-demo/services/providers"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements the Provider interface for OpenAI and Azure OpenAI
type OpenAIAdapter struct {
	name   string
	client *goopenai.Client
}

// NewAzure creates an adapter for an Azure OpenAI deployment.
// The configured model is used verbatim as the deployment name.
func NewAzure(ctx context.Context, cfg config.CompletionConfig) (providers.Provider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("azure openai endpoint is required")
	}

	clientCfg := goopenai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	clientCfg.AzureModelMapperFunc = func(model string) string { return model }
	clientCfg.HTTPClient = httpClient(cfg.Timeout)

	return &OpenAIAdapter{
		name:   config.ProviderAzureOpenAI,
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

// New creates an adapter for the OpenAI API or any compatible endpoint
func New(ctx context.Context, cfg config.CompletionConfig) (providers.Provider, error) {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	clientCfg.HTTPClient = httpClient(cfg.Timeout)

	return &OpenAIAdapter{
		name:   config.ProviderOpenAI,
		client: goopenai.NewClientWithConfig(clientCfg),
	}, nil
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// ChatCompletion performs a chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(req))
	if err != nil {
		return nil, a.convertError(err)
	}

	return a.convertToUnifiedResponse(&resp, time.Since(startTime)), nil
}

func (a *OpenAIAdapter) buildRequest(req *providers.ChatRequest) goopenai.ChatCompletionRequest {
	messages := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		}
	}

	return goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		User:        req.User,
	}
}

func (a *OpenAIAdapter) convertToUnifiedResponse(resp *goopenai.ChatCompletionResponse, latency time.Duration) *providers.ChatResponse {
	choices := make([]providers.Choice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
			},
			FinishReason: string(choice.FinishReason),
		}
	}

	return &providers.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Provider: a.name,
		Latency:  latency,
	}
}

// convertError maps go-openai errors onto ProviderError
func (a *OpenAIAdapter) convertError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code := "API_ERROR"
		if c, ok := apiErr.Code.(string); ok && c != "" {
			code = strings.ToUpper(c)
		}
		return providers.NewProviderError(a.name, code,
			fmt.Sprintf("chat completion failed with status %d: %s", apiErr.HTTPStatusCode, apiErr.Message),
			apiErr.HTTPStatusCode, providers.RetryableStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewProviderError(a.name, "REQUEST_ERROR",
			fmt.Sprintf("chat completion failed with status %d", reqErr.HTTPStatusCode),
			reqErr.HTTPStatusCode, providers.RetryableStatus(reqErr.HTTPStatusCode), err)
	}

	return providers.NewProviderError(a.name, "HTTP_ERROR", "chat completion request failed", 0, true, err)
}
