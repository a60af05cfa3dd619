package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plazadatos/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsStore struct {
	mu          sync.Mutex
	statsCalls  int
	chartsCalls int
	sweeps      int
	closed      int64
	err         error
}

func (f *fakeStatsStore) DashboardStats(context.Context, time.Time) (database.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return database.DashboardStats{TotalResponses: f.statsCalls}, f.err
}

func (f *fakeStatsStore) DashboardCharts(context.Context, time.Time) (database.DashboardCharts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chartsCalls++
	return database.DashboardCharts{}, f.err
}

func (f *fakeStatsStore) CloseExpiredSurveys(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return f.closed, f.err
}

func (f *fakeStatsStore) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestStatsService_CachesUntilInvalidated(t *testing.T) {
	store := &fakeStatsStore{}
	svc := NewStatsService(store, time.Minute, logrus.New())
	ctx := context.Background()

	st, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalResponses)
	st, _ = svc.DashboardStats(ctx)
	assert.Equal(t, 1, st.TotalResponses)
	assert.Equal(t, 1, store.statsCalls)

	svc.Invalidate()
	st, _ = svc.DashboardStats(ctx)
	assert.Equal(t, 2, st.TotalResponses)

	_, _ = svc.DashboardCharts(ctx)
	_, _ = svc.DashboardCharts(ctx)
	assert.Equal(t, 1, store.chartsCalls)
}

func TestStatsService_ErrorsAreNotCached(t *testing.T) {
	store := &fakeStatsStore{err: errors.New("db down")}
	svc := NewStatsService(store, time.Minute, logrus.New())
	_, err := svc.DashboardStats(context.Background())
	assert.Error(t, err)
	store.err = nil
	_, err = svc.DashboardStats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, store.statsCalls)
}

func TestStatsService_SweepInvalidates(t *testing.T) {
	store := &fakeStatsStore{closed: 2}
	svc := NewStatsService(store, time.Minute, logrus.New())
	ctx := context.Background()
	_, _ = svc.DashboardStats(ctx)
	svc.SweepOnce(ctx)
	_, _ = svc.DashboardStats(ctx)
	assert.Equal(t, 2, store.statsCalls)
}

func TestStatsService_StartStops(t *testing.T) {
	store := &fakeStatsStore{}
	svc := NewStatsService(store, time.Minute, logrus.New())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return store.sweepCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.DeleteExpired())
}
