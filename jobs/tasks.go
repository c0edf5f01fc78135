package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/verdantrx/verdantrx/internal/access"
	"github.com/verdantrx/verdantrx/internal/auth"
	"github.com/verdantrx/verdantrx/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAccessAudit records a denied navigation in the audit trail.
	TaskTypeAccessAudit = "access:audit"
	// TaskTypeSessionPurge removes expired session rows.
	TaskTypeSessionPurge = "session:purge"
)

// AccessAuditPayload describes a denied navigation.
type AccessAuditPayload struct {
	UserID string    `json:"userId"`
	Path   string    `json:"path"`
	Gates  []string  `json:"gates"`
	At     time.Time `json:"at"`
}

// NewAccessAuditTask constructs an Asynq task.
func NewAccessAuditTask(payload AccessAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessAudit, data), nil
}

// NewSessionPurgeTask constructs the periodic purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionPurge, nil)
}

// NewAccessAuditHandler processes TaskTypeAccessAudit tasks.
func NewAccessAuditHandler(audit *shared.AuditLogger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AccessAuditPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := audit.Record(ctx, shared.AccessAuditLog{
			UserID: payload.UserID,
			Path:   payload.Path,
			Gates:  payload.Gates,
			At:     payload.At,
		}); err != nil {
			logger.Warn("record access audit", slog.Any("error", err))
			return err
		}
		return nil
	}
}

// NewSessionPurgeHandler processes TaskTypeSessionPurge tasks.
func NewSessionPurgeHandler(service *auth.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := service.PurgeExpiredSessions(ctx)
		if err != nil {
			logger.Warn("purge sessions", slog.Any("error", err))
			return err
		}
		if removed > 0 {
			logger.Info("purged sessions", slog.Int64("count", removed))
		}
		return nil
	}
}

// gateNames flattens a requirement into audit labels.
func gateNames(req access.Requirement) []string {
	var gates []string
	if req.AdminOnly {
		gates = append(gates, "admin")
	}
	if req.PharmacistOnly {
		gates = append(gates, "pharmacist")
	}
	if req.VerifiedPharmacistOnly {
		gates = append(gates, "verified-pharmacist")
	}
	return gates
}

// Recorder enqueues denial audits. It implements access.DenialRecorder.
type Recorder struct {
	client *Client
}

// NewRecorder constructs a Recorder backed by the jobs client.
func NewRecorder(client *Client) *Recorder {
	return &Recorder{client: client}
}

// RecordDenial enqueues an audit task for a denied navigation.
func (r *Recorder) RecordDenial(ctx context.Context, userID, path string, req access.Requirement) error {
	if r == nil || r.client == nil {
		return nil
	}
	_, err := r.client.EnqueueAccessAudit(ctx, AccessAuditPayload{
		UserID: userID,
		Path:   path,
		Gates:  gateNames(req),
		At:     time.Now().UTC(),
	})
	return err
}
