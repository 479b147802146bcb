// Package insights answers campaign questions from indexed documents.
//
// A request runs retrieval, prompt composition, one completion call and
// reconciliation in sequence. Any stage failure aborts the request; a
// completion that is not valid answer JSON is not a failure.
package insights

import (
	"context"
	"time"

	"github.com/dupatihari/azure-rag-demo/internal/observability"
	"github.com/dupatihari/azure-rag-demo/internal/prompt"
	"github.com/dupatihari/azure-rag-demo/models"
	"github.com/dupatihari/azure-rag-demo/services"
	"go.uber.org/zap"
)

// Auditor receives one record per pipeline run
type Auditor interface {
	LogInsight(record *models.InsightAudit) error
}

// Pipeline orchestrates a single insights request
type Pipeline struct {
	retriever *Retriever
	invoker   *Invoker
	auditor   Auditor
	topK      int
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithAuditor records every run through a
func WithAuditor(a Auditor) Option {
	return func(p *Pipeline) { p.auditor = a }
}

// WithTopK overrides the number of documents retrieved
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithTimeout bounds a whole run. Zero leaves the caller's deadline in charge.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// NewPipeline creates a pipeline over retriever and invoker
func NewPipeline(retriever *Retriever, invoker *Invoker, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever: retriever,
		invoker:   invoker,
		topK:      DefaultTopK,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetInsights answers question. It returns either a complete envelope or an error.
func (p *Pipeline) GetInsights(ctx context.Context, question string) (*AnswerEnvelope, error) {
	start := time.Now()
	logger := observability.ForRequest(ctx, p.logger)
	record := models.NewInsightAudit(observability.RequestID(ctx), question)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger.Info("starting insights pipeline", zap.Int("top_k", p.topK))

	env, err := p.run(ctx, question, record)
	record.Finish(start)
	if err != nil {
		errType := services.GetErrorType(err)
		if errType == "" {
			errType = services.ErrorTypeInternal
		}
		record.MarkFailed(string(errType), err.Error())
		logger.Error("insights pipeline failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
	} else {
		logger.Info("insights pipeline completed",
			zap.Int("citations", len(env.Citations)),
			zap.Bool("degraded", record.Degraded),
			zap.Duration("duration", time.Since(start)))
	}
	p.audit(logger, record)

	return env, err
}

func (p *Pipeline) run(ctx context.Context, question string, record *models.InsightAudit) (*AnswerEnvelope, error) {
	docs, err := p.retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		return nil, err
	}
	record.DocumentCount = len(docs)
	p.screen(ctx, question, docs)

	raw, resp, err := p.invoker.invoke(ctx, Compose(question, docs))
	if err != nil {
		return nil, err
	}
	record.WithCompletion(resp.Provider, p.invoker.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	completion := Interpret(raw)
	record.Degraded = completion.Degraded()
	if completion.Degraded() {
		observability.ForRequest(ctx, p.logger).Warn("completion was not valid answer JSON",
			zap.Int("length", len(raw)))
	}

	return &AnswerEnvelope{
		Question:  question,
		Rag:       completion.Answer(),
		Citations: Citations(docs),
	}, nil
}

// screen logs instruction-like text headed for the prompt. It never blocks a run.
func (p *Pipeline) screen(ctx context.Context, question string, docs []Document) {
	logger := observability.ForRequest(ctx, p.logger)
	if findings := prompt.Scan(question); len(findings) > 0 {
		logger.Warn("question contains instruction-like text",
			zap.Strings("categories", prompt.Categories(findings)))
	}
	for i, doc := range docs {
		if findings := prompt.Scan(doc.Content); len(findings) > 0 {
			logger.Warn("retrieved document contains instruction-like text",
				zap.Int("index", i+1),
				zap.String("source", doc.Source),
				zap.Strings("categories", prompt.Categories(findings)))
		}
	}
}

func (p *Pipeline) audit(logger *zap.Logger, record *models.InsightAudit) {
	if p.auditor == nil {
		return
	}
	if err := p.auditor.LogInsight(record); err != nil {
		logger.Warn("failed to queue audit record", zap.Error(err))
	}
}
