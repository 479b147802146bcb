package handlers

import (
	"net/http"
	"strconv"

	"github.com/dupatihari/azure-rag-demo/models"
	"github.com/dupatihari/azure-rag-demo/repositories"
	"github.com/dupatihari/azure-rag-demo/utils"
	"go.uber.org/zap"
)

const maxAuditPage = 200

// AuditHandler exposes recent insight audit records
type AuditHandler struct {
	repo   repositories.InsightAuditRepository
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(repo repositories.InsightAuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{repo: repo, logger: logger}
}

// AuditListResponse is the body of GET /api/v1/audit
type AuditListResponse struct {
	Records   []*models.InsightAudit `json:"records"`
	Succeeded int64                  `json:"succeeded"`
	Failed    int64                  `json:"failed"`
}

// HandleList handles GET /api/v1/audit?limit=
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditPage {
			_ = utils.WriteBadRequest(w, "limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}

	ctx := r.Context()
	records, err := h.repo.ListRecent(ctx, limit)
	if err != nil {
		h.logger.Error("failed to list audit records", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "failed to list audit records")
		return
	}
	if records == nil {
		records = []*models.InsightAudit{}
	}

	succeeded, err := h.repo.CountByStatus(ctx, models.InsightStatusSucceeded)
	if err != nil {
		h.logger.Error("failed to count audit records", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "failed to count audit records")
		return
	}
	failed, err := h.repo.CountByStatus(ctx, models.InsightStatusFailed)
	if err != nil {
		h.logger.Error("failed to count audit records", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "failed to count audit records")
		return
	}

	_ = utils.WriteOK(w, AuditListResponse{Records: records, Succeeded: succeeded, Failed: failed})
}
