package service

import (
	"context"
	"time"

	"plazadatos/internal/database"

	"github.com/sirupsen/logrus"
)

type StatsProvider interface {
	DashboardStats(ctx context.Context) (database.DashboardStats, error)
	DashboardCharts(ctx context.Context) (database.DashboardCharts, error)
	Invalidate()
}

type statsStore interface {
	DashboardStats(ctx context.Context, now time.Time) (database.DashboardStats, error)
	DashboardCharts(ctx context.Context, now time.Time) (database.DashboardCharts, error)
	CloseExpiredSurveys(ctx context.Context, now time.Time) (int64, error)
}

const (
	statsKey  = "dashboard:stats"
	chartsKey = "dashboard:charts"
)

// StatsService caches dashboard aggregates and closes expired surveys in the background.
type StatsService struct {
	repo  statsStore
	cache *Cache
	log   *logrus.Logger
	now   func() time.Time
}

func NewStatsService(r statsStore, ttl time.Duration, log *logrus.Logger) *StatsService {
	return &StatsService{repo: r, cache: NewCache(ttl), log: log, now: time.Now}
}

func (s *StatsService) DashboardStats(ctx context.Context) (database.DashboardStats, error) {
	if v, ok := s.cache.Get(statsKey); ok {
		return v.(database.DashboardStats), nil
	}
	st, err := s.repo.DashboardStats(ctx, s.now())
	if err != nil {
		return st, err
	}
	s.cache.Set(statsKey, st)
	return st, nil
}

func (s *StatsService) DashboardCharts(ctx context.Context) (database.DashboardCharts, error) {
	if v, ok := s.cache.Get(chartsKey); ok {
		return v.(database.DashboardCharts), nil
	}
	ch, err := s.repo.DashboardCharts(ctx, s.now())
	if err != nil {
		return ch, err
	}
	s.cache.Set(chartsKey, ch)
	return ch, nil
}

// Invalidate is called after writes that change the aggregates.
func (s *StatsService) Invalidate() { s.cache.Flush() }

// SweepOnce closes surveys past their end date.
func (s *StatsService) SweepOnce(ctx context.Context) {
	n, err := s.repo.CloseExpiredSurveys(ctx, s.now())
	if err != nil {
		s.log.Warnf("close expired surveys failed: %v", err)
		return
	}
	if n > 0 {
		s.log.Infof("closed %d expired surveys", n)
		s.Invalidate()
	}
	s.cache.DeleteExpired()
}

func (s *StatsService) Start(ctx context.Context, interval time.Duration) {
	go func() {
		s.SweepOnce(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("survey sweeper stopping")
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}
