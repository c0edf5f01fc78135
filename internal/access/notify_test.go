package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sinkRecorder struct {
	messages []string
}

func (s *sinkRecorder) sink(category, message string) {
	s.messages = append(s.messages, category+":"+message)
}

func TestShowOnceDeduplicates(t *testing.T) {
	recorder := &sinkRecorder{}
	limiter := NewNotificationLimiter(recorder.sink, nil, 0, 0)

	require.True(t, limiter.ShowOnce(CategoryAccessDenied, "X"))
	require.False(t, limiter.ShowOnce(CategoryAccessDenied, "X"))
	require.Len(t, recorder.messages, 1)

	// A different category has its own state.
	require.True(t, limiter.ShowOnce("session-expired", "Y"))
	require.Len(t, recorder.messages, 2)
}

func TestShowOnceResetClearsSuppression(t *testing.T) {
	recorder := &sinkRecorder{}
	limiter := NewNotificationLimiter(recorder.sink, nil, 0, 0)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.ShowOnce(CategoryAccessDenied, "X"))
	limiter.Reset(CategoryAccessDenied)

	// Space the attempt out of the burst window; only the shown flag matters.
	now = now.Add(3 * time.Second)
	require.True(t, limiter.ShowOnce(CategoryAccessDenied, "X"))
	require.Len(t, recorder.messages, 2)
}

func TestBurstGuardDropsRapidFire(t *testing.T) {
	recorder := &sinkRecorder{}
	limiter := NewNotificationLimiter(recorder.sink, nil, 2*time.Second, 3)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	// Five rapid-fire attempts 100ms apart. The first shows, the next three
	// are deduplicated, the fifth trips the burst guard.
	shown := 0
	for i := 0; i < 5; i++ {
		if limiter.ShowOnce(CategoryAccessDenied, "X") {
			shown++
		}
		now = now.Add(100 * time.Millisecond)
	}
	require.Equal(t, 1, shown)
	require.Len(t, recorder.messages, 1)

	// Even after a Reset, a looping caller stays suppressed inside the
	// window: Reset clears the counter but further rapid attempts rebuild it.
	limiter.Reset(CategoryAccessDenied)
	for i := 0; i < 6; i++ {
		limiter.ShowOnce(CategoryAccessDenied, "X")
		now = now.Add(50 * time.Millisecond)
	}
	// One message shown post-reset, the rest deduplicated or burst-dropped.
	require.Len(t, recorder.messages, 2)
}

func TestBurstWindowExpiryResetsCounter(t *testing.T) {
	limiter := NewNotificationLimiter(nil, nil, 2*time.Second, 3)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		limiter.ShowOnce(CategoryAccessDenied, "X")
		now = now.Add(100 * time.Millisecond)
	}
	state := limiter.states[CategoryAccessDenied]
	require.Greater(t, state.burstCount, 3)

	// A quiet spell longer than the window clears the counter.
	now = now.Add(5 * time.Second)
	limiter.ShowOnce(CategoryAccessDenied, "X")
	require.Equal(t, 0, state.burstCount)
}

func TestNotificationLimiterNilReceiver(t *testing.T) {
	var limiter *NotificationLimiter
	require.False(t, limiter.ShowOnce(CategoryAccessDenied, "X"))
	limiter.Reset(CategoryAccessDenied)
}
