package insights

import (
	"context"

	"github.com/dupatihari/azure-rag-demo/internal/observability"
	"github.com/dupatihari/azure-rag-demo/services"
	"github.com/dupatihari/azure-rag-demo/services/providers"
	"go.uber.org/zap"
)

// Temperature is kept low for literal extraction from sources
const Temperature = 0.2

// emptyCompletion stands in for a reply with no content
const emptyCompletion = "{}"

// Invoker sends a composed prompt to the completion provider
type Invoker struct {
	providers providers.Factory
	model     string
	logger    *zap.Logger
}

// NewInvoker creates an invoker for model
func NewInvoker(factory providers.Factory, model string, logger *zap.Logger) *Invoker {
	return &Invoker{
		providers: factory,
		model:     model,
		logger:    logger,
	}
}

// Invoke makes a single completion request and returns the first choice's text
func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	raw, _, err := i.invoke(ctx, prompt)
	return raw, err
}

func (i *Invoker) invoke(ctx context.Context, prompt string) (string, *providers.ChatResponse, error) {
	logger := observability.ForRequest(ctx, i.logger)

	provider, err := i.providers(ctx)
	if err != nil {
		return "", nil, services.WrapCompletion("failed to create completion client", err)
	}

	resp, err := provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model: i.model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: SystemInstruction},
			{Role: providers.RoleUser, Content: prompt},
		},
		Temperature: Temperature,
	})
	if err != nil {
		logger.Error("completion request failed",
			zap.String("provider", provider.Name()),
			zap.String("model", i.model),
			zap.Bool("retryable", providers.IsRetryable(err)),
			zap.Error(err))
		return "", nil, services.WrapCompletion("completion request failed", err)
	}
	if resp == nil {
		logger.Warn("completion returned no response", zap.String("provider", provider.Name()))
		return emptyCompletion, &providers.ChatResponse{Provider: provider.Name()}, nil
	}

	logger.Debug("completion received",
		zap.String("provider", resp.Provider),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", resp.Latency))

	content := resp.FirstContent()
	if content == "" {
		return emptyCompletion, resp, nil
	}
	return content, resp, nil
}
