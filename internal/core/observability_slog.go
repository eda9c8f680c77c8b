package core

import (
	"context"
	"log/slog"
)

// SlogAuditRecorder writes one structured log record per audited operation.
type SlogAuditRecorder struct {
	logger *slog.Logger
}

// NewSlogAuditRecorder logs to logger, or to slog.Default when nil.
func NewSlogAuditRecorder(logger *slog.Logger) *SlogAuditRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditRecorder{logger: logger}
}

// Record implements AuditRecorder.
func (r *SlogAuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	level := slog.LevelInfo
	if entry.Status == AuditStatusError {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("operation", entry.Operation),
		slog.String("entity", string(entry.Entity)),
		slog.String("action", string(entry.Action)),
		slog.String("status", string(entry.Status)),
		slog.Duration("duration", entry.Duration),
		slog.Time("at", entry.Timestamp),
	}
	if entry.EntityID != "" {
		attrs = append(attrs, slog.String("entity_id", entry.EntityID))
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}
	r.logger.LogAttrs(ctx, level, "audit", attrs...)
}
