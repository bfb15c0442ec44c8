package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeExpirer) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return len(f.calls), f.err
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestSubscriptionExpiryScheduler_RunOnce(t *testing.T) {
	expirer := &fakeExpirer{}
	s := NewSubscriptionExpiryScheduler(expirer, "")
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunOnce()
	expirer.err = errors.New("db down")
	s.RunOnce()

	require.Equal(t, 2, expirer.count())
	assert.Equal(t, fixed, expirer.calls[0])
	assert.Equal(t, defaultExpirySpec, s.spec)
}

func TestSubscriptionExpiryScheduler_InvalidSpec(t *testing.T) {
	s := NewSubscriptionExpiryScheduler(&fakeExpirer{}, "every hour")
	assert.Error(t, s.Start())
}

func TestSubscriptionExpiryScheduler_StartStop(t *testing.T) {
	expirer := &fakeExpirer{}
	s := NewSubscriptionExpiryScheduler(expirer, "@every 1s")
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return expirer.count() > 0 }, 3*time.Second, 10*time.Millisecond)
	s.Stop()
}
