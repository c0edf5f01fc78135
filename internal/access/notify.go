package access

import (
	"sync"
	"time"

	"github.com/verdantrx/verdantrx/internal/observability"
)

const (
	// CategoryAccessDenied is the logical category for denial toasts.
	CategoryAccessDenied = "access-denied"

	// DefaultNotifyBurstWindow is the spacing under which repeated attempts
	// count towards the burst guard.
	DefaultNotifyBurstWindow = 2 * time.Second
	// DefaultNotifyBurstLimit is how many rapid attempts are tolerated before
	// the guard starts dropping them as a suspected loop.
	DefaultNotifyBurstLimit = 3
)

// NotificationSink receives messages that passed the limiter. In the web
// shell this flashes a toast; tests plug in a recorder.
type NotificationSink func(category, message string)

type notificationState struct {
	shown       bool
	lastAttempt time.Time
	burstCount  int
}

// NotificationLimiter deduplicates and throttles user-facing notifications
// per category. State is confined to one logical route-guard session and must
// be reset when the triggering identity or route changes.
type NotificationLimiter struct {
	mu         sync.Mutex
	states     map[string]*notificationState
	sink       NotificationSink
	metrics    *observability.AccessMetrics
	window     time.Duration
	burstLimit int
	now        func() time.Time
}

// NewNotificationLimiter constructs a limiter. sink and metrics may be nil;
// non-positive window/limit fall back to the defaults.
func NewNotificationLimiter(sink NotificationSink, metrics *observability.AccessMetrics, window time.Duration, burstLimit int) *NotificationLimiter {
	if window <= 0 {
		window = DefaultNotifyBurstWindow
	}
	if burstLimit <= 0 {
		burstLimit = DefaultNotifyBurstLimit
	}
	return &NotificationLimiter{
		states:     make(map[string]*notificationState),
		sink:       sink,
		metrics:    metrics,
		window:     window,
		burstLimit: burstLimit,
		now:        time.Now,
	}
}

// ShowOnce shows message for category unless it was already shown since the
// last Reset, or the burst guard considers the caller to be looping. The
// return value reports whether the message reached the sink.
func (l *NotificationLimiter) ShowOnce(category, message string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[category]
	if !ok {
		state = &notificationState{}
		l.states[category] = state
	}

	now := l.now()
	if !state.lastAttempt.IsZero() && now.Sub(state.lastAttempt) < l.window {
		state.burstCount++
	} else {
		state.burstCount = 0
	}
	state.lastAttempt = now

	if state.burstCount > l.burstLimit {
		// Rapid-fire attempts past the limit look like a render loop, not a
		// user action. Drop silently.
		l.metrics.ObserveNotification(observability.NotificationBurstDropped)
		return false
	}
	if state.shown {
		l.metrics.ObserveNotification(observability.NotificationDeduplicated)
		return false
	}

	state.shown = true
	if l.sink != nil {
		l.sink(category, message)
	}
	l.metrics.ObserveNotification(observability.NotificationShown)
	return true
}

// Reset clears the shown flag and burst counter for category. Call it when
// the triggering identity or route changes so stale suppression cannot hide
// a legitimate notification.
func (l *NotificationLimiter) Reset(category string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, category)
}
