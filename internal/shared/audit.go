package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessAuditLog represents a record stored in access_audit_logs.
type AccessAuditLog struct {
	UserID string
	Path   string
	Gates  []string
	At     time.Time
}

// AuditLogger writes denied navigations into access_audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AccessAuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Path == "" {
		return errors.New("audit log requires path")
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO access_audit_logs (user_id, path, gates, occurred_at) VALUES ($1, $2, $3, COALESCE($4, NOW()))`,
		log.UserID, log.Path, log.Gates, at)
	return err
}
