// Package observability provides structured logging for the insights
// service and its tool adapter.
//
// Loggers are zap-based. Request-scoped loggers carry the chi request ID
// as the "request_id" field.
package observability
