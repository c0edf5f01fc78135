package access

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/verdantrx/verdantrx/internal/observability"
	"github.com/verdantrx/verdantrx/internal/shared"
)

// DeniedMessage is the single user-facing denial text. Denials redirect
// silently apart from at most one toast per category per navigation.
const DeniedMessage = "You do not have permission to view that page."

// DenialRecorder receives denied navigations for the audit trail. Recording
// is best-effort: failures are logged, never surfaced.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, userID, path string, req Requirement) error
}

// Middleware guards HTTP routes with the resolver and route guard.
type Middleware struct {
	Resolver *Resolver
	Guard    *Guard
	Logger   *slog.Logger
	Metrics  *observability.AccessMetrics
	Recorder DenialRecorder

	// NotifyWindow and NotifyBurstLimit configure each session's toast
	// limiter; zero values fall back to the package defaults.
	NotifyWindow     time.Duration
	NotifyBurstLimit int

	mu       sync.Mutex
	sessions map[string]*guardSession
}

type guardSession struct {
	limiter  *NotificationLimiter
	lastUser string
	lastPath string
	lastSeen time.Time
}

// Protect wraps a handler with the route guard for the given requirement.
func (m *Middleware) Protect(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			var userID, sessionID string
			if sess != nil {
				userID = sess.User()
				sessionID = sess.ID
			}
			route := Route{Path: r.URL.Path, Requirement: req}

			var decision RoleDecision
			if userID != "" {
				decision = m.Resolver.Resolve(r.Context(), userID, req)
			}

			verdict := m.Guard.GuardRoute(userID, decision, route)
			switch verdict {
			case Render:
				next.ServeHTTP(w, r)
			case RenderLoading:
				// Neutral placeholder instead of a premature denial.
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<!DOCTYPE html><title>Loading</title><p>Checking your access…</p>"))
			case RedirectToDefault:
				m.denied(r.Context(), sess, sessionID, userID, route)
				target, _ := m.Guard.RedirectTarget(verdict)
				http.Redirect(w, r, target, http.StatusSeeOther)
			default:
				if target, ok := m.Guard.RedirectTarget(verdict); ok {
					http.Redirect(w, r, target, http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m *Middleware) denied(ctx context.Context, sess *shared.Session, sessionID, userID string, route Route) {
	m.Metrics.ObserveDenial()
	if m.Logger != nil {
		m.Logger.Info("navigation denied",
			slog.String("user_id", userID),
			slog.String("path", route.Path))
	}

	limiter := m.limiterFor(sessionID, userID, route.Path)
	if limiter.ShowOnce(CategoryAccessDenied, DeniedMessage) && sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: DeniedMessage})
	}

	if m.Recorder != nil {
		if err := m.Recorder.RecordDenial(ctx, userID, route.Path, route.Requirement); err != nil && m.Logger != nil {
			m.Logger.Warn("record denial", slog.Any("error", err))
		}
	}
}

// limiterFor returns the per-session limiter, resetting its denial category
// whenever the identity or route changed since the previous attempt.
func (m *Middleware) limiterFor(sessionID, userID, path string) *NotificationLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]*guardSession)
	}
	m.pruneLocked()

	gs, ok := m.sessions[sessionID]
	if !ok {
		gs = &guardSession{limiter: NewNotificationLimiter(nil, m.Metrics, m.NotifyWindow, m.NotifyBurstLimit)}
		m.sessions[sessionID] = gs
	}
	if gs.lastUser != userID || gs.lastPath != path {
		gs.limiter.Reset(CategoryAccessDenied)
	}
	gs.lastUser = userID
	gs.lastPath = path
	gs.lastSeen = time.Now()
	return gs.limiter
}

// pruneLocked drops guard sessions idle for over an hour so the map stays
// bounded. Callers hold m.mu.
func (m *Middleware) pruneLocked() {
	if len(m.sessions) < 1024 {
		return
	}
	cutoff := time.Now().Add(-time.Hour)
	for id, gs := range m.sessions {
		if gs.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}
