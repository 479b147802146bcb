package handlers

import (
	"context"
	"net/http"

	"github.com/dupatihari/azure-rag-demo/internal/observability"
	"github.com/dupatihari/azure-rag-demo/services"
	"github.com/dupatihari/azure-rag-demo/services/insights"
	"github.com/dupatihari/azure-rag-demo/utils"
	"go.uber.org/zap"
)

// InsightsService answers a campaign question
type InsightsService interface {
	GetInsights(ctx context.Context, question string) (*insights.AnswerEnvelope, error)
}

// InsightsHandler serves the insights endpoint
type InsightsHandler struct {
	service         InsightsService
	defaultQuestion string
	logger          *zap.Logger
}

// NewInsightsHandler creates a handler. An empty defaultQuestion makes q mandatory.
func NewInsightsHandler(service InsightsService, defaultQuestion string, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{
		service:         service,
		defaultQuestion: defaultQuestion,
		logger:          logger,
	}
}

// HandleGetInsights handles GET /api/getcampaigninsights?q=
func (h *InsightsHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	logger := observability.ForRequest(r.Context(), h.logger)

	query := utils.InsightsQuery{Question: r.URL.Query().Get("q")}
	if query.Question == "" && h.defaultQuestion != "" {
		logger.Debug("using default question")
		query.Question = h.defaultQuestion
	}
	if query.Question == "" {
		_ = utils.WriteBadRequest(w, services.ErrQuestionRequired.Message, nil)
		return
	}
	if err := utils.ValidateStruct(query); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	envelope, err := h.service.GetInsights(r.Context(), query.Question)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, envelope); err != nil {
		logger.Error("failed to write insights response", zap.Error(err))
	}
}
