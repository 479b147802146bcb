package models

import (
	"time"

	"github.com/google/uuid"
)

// InsightStatus is the outcome of one insights request
type InsightStatus string

const (
	InsightStatusSucceeded InsightStatus = "succeeded"
	InsightStatusFailed    InsightStatus = "failed"
)

// InsightAudit records one pipeline run
type InsightAudit struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	RequestID     string        `json:"request_id" db:"request_id"`
	Question      string        `json:"question" db:"question"`
	Status        InsightStatus `json:"status" db:"status"`
	DocumentCount int           `json:"document_count" db:"document_count"`
	Degraded      bool          `json:"degraded" db:"degraded"` // completion was not valid answer JSON
	Timestamp     time.Time     `json:"timestamp" db:"timestamp"`

	Provider         *string `json:"provider,omitempty" db:"provider"`
	Model            *string `json:"model,omitempty" db:"model"`
	PromptTokens     *int    `json:"prompt_tokens,omitempty" db:"prompt_tokens"`
	CompletionTokens *int    `json:"completion_tokens,omitempty" db:"completion_tokens"`
	LatencyMs        int     `json:"latency_ms" db:"latency_ms"`
	ErrorType        *string `json:"error_type,omitempty" db:"error_type"`
	ErrorMessage     *string `json:"error_message,omitempty" db:"error_message"`
}

// TableName returns the table name for the InsightAudit model
func (InsightAudit) TableName() string {
	return "insight_audit"
}

// NewInsightAudit starts a record for question
func NewInsightAudit(requestID, question string) *InsightAudit {
	return &InsightAudit{
		ID:        uuid.New(),
		RequestID: requestID,
		Question:  question,
		Status:    InsightStatusSucceeded,
		Timestamp: time.Now(),
	}
}

// WithCompletion records which provider answered and its token usage
func (a *InsightAudit) WithCompletion(provider, model string, promptTokens, completionTokens int) *InsightAudit {
	a.Provider = &provider
	a.Model = &model
	a.PromptTokens = &promptTokens
	a.CompletionTokens = &completionTokens
	return a
}

// MarkFailed sets the failure details
func (a *InsightAudit) MarkFailed(errType, message string) *InsightAudit {
	a.Status = InsightStatusFailed
	a.ErrorType = &errType
	a.ErrorMessage = &message
	return a
}

// Finish stamps the elapsed time since start
func (a *InsightAudit) Finish(start time.Time) *InsightAudit {
	a.LatencyMs = int(time.Since(start).Milliseconds())
	return a
}
