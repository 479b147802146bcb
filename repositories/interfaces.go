package repositories

import (
	"context"

	"github.com/dupatihari/azure-rag-demo/models"
)

// InsightAuditRepository persists pipeline audit records
type InsightAuditRepository interface {
	// Insert stores a single record
	Insert(ctx context.Context, audit *models.InsightAudit) error

	// ListRecent returns the newest records first
	ListRecent(ctx context.Context, limit int) ([]*models.InsightAudit, error)

	// CountByStatus returns the number of records with the given status
	CountByStatus(ctx context.Context, status models.InsightStatus) (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	InsightAudits InsightAuditRepository
}
