package postgres

import (
	"context"
	"fmt"

	"github.com/dupatihari/azure-rag-demo/models"
	"github.com/dupatihari/azure-rag-demo/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements repositories.InsightAuditRepository
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.InsightAuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

const auditColumns = `id, request_id, question, status, document_count, degraded,
		provider, model, prompt_tokens, completion_tokens, latency_ms,
		error_type, error_message, timestamp`

// Insert inserts a new audit record
func (r *AuditRepository) Insert(ctx context.Context, a *models.InsightAudit) error {
	query := `INSERT INTO insight_audit (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.RequestID,
		a.Question,
		a.Status,
		a.DocumentCount,
		a.Degraded,
		a.Provider,
		a.Model,
		a.PromptTokens,
		a.CompletionTokens,
		a.LatencyMs,
		a.ErrorType,
		a.ErrorMessage,
		a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert insight audit: %w", err)
	}

	r.logger.Debug("insight audit inserted", zap.String("id", a.ID.String()), zap.String("status", string(a.Status)))
	return nil
}

// ListRecent returns up to limit records, newest first
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.InsightAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + auditColumns + ` FROM insight_audit ORDER BY timestamp DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list insight audits: %w", err)
	}
	defer rows.Close()

	var out []*models.InsightAudit
	for rows.Next() {
		a := &models.InsightAudit{}
		if err := rows.Scan(
			&a.ID,
			&a.RequestID,
			&a.Question,
			&a.Status,
			&a.DocumentCount,
			&a.Degraded,
			&a.Provider,
			&a.Model,
			&a.PromptTokens,
			&a.CompletionTokens,
			&a.LatencyMs,
			&a.ErrorType,
			&a.ErrorMessage,
			&a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan insight audit: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insight audits: %w", err)
	}

	return out, nil
}

// CountByStatus counts records with status
func (r *AuditRepository) CountByStatus(ctx context.Context, status models.InsightStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insight_audit WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count insight audits: %w", err)
	}
	return count, nil
}
