package exports

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry is one export lifecycle transition.
type AuditEntry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	ExportID   string            `json:"export_id"`
	Status     Status            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// SlogAuditLogger writes audit entries as structured log records.
type SlogAuditLogger struct {
	Logger *slog.Logger
}

// Record logs entry at info level, or warn for failures.
func (l SlogAuditLogger) Record(ctx context.Context, entry AuditEntry) {
	if l.Logger == nil {
		return
	}
	level := slog.LevelInfo
	if entry.Status == StatusFailed {
		level = slog.LevelWarn
	}
	attrs := []any{
		"audit_id", entry.ID,
		"action", entry.Action,
		"actor", entry.Actor,
		"export_id", entry.ExportID,
		"status", string(entry.Status),
	}
	if entry.Reason != "" {
		attrs = append(attrs, "reason", entry.Reason)
	}
	for k, v := range entry.Metadata {
		attrs = append(attrs, k, v)
	}
	l.Logger.Log(ctx, level, "export audit", attrs...)
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// MultiAudit fans entries out to several loggers.
type MultiAudit []AuditLogger

func (m MultiAudit) Record(ctx context.Context, entry AuditEntry) {
	for _, l := range m {
		if l != nil {
			l.Record(ctx, entry)
		}
	}
}
