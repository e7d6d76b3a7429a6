package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mindx-labs/stemchat/internal/analytics"
)

const refreshLockKey = "stemchat:analytics:refresh:lock"

// Scheduler refreshes the cached analytics snapshot on a cron schedule so
// dashboard reads stay warm. A redis SetNX lock keeps multiple replicas
// from refreshing at once.
type Scheduler struct {
	Recorder analytics.Recorder
	Rdb      *redis.Client
	Cron     *cronexpr.Expression
	CacheTTL time.Duration
	Logger   *log.Logger
	Stop     chan struct{}
}

func NewScheduler(recorder analytics.Recorder, rdb *redis.Client, cronSpec string, cacheTTL time.Duration, logger *log.Logger) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Scheduler{
		Recorder: recorder,
		Rdb:      rdb,
		Cron:     expr,
		CacheTTL: cacheTTL,
		Logger:   logger,
		Stop:     make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() {
	go func() {
		for {
			next := s.Cron.Next(time.Now())
			if next.IsZero() {
				return
			}
			select {
			case <-s.Stop:
				return
			case <-time.After(time.Until(next)):
				s.refresh()
			}
		}
	}()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if s.Rdb != nil {
		ok, err := s.Rdb.SetNX(ctx, refreshLockKey, "1", time.Minute).Result()
		if err != nil {
			s.Logger.Printf("refresh lock: %v", err)
			return
		}
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, refreshLockKey)
	}

	snap, err := s.Recorder.Snapshot(ctx)
	if err != nil {
		s.Logger.Printf("refresh snapshot: %v", err)
		return
	}
	body, err := json.Marshal(snap)
	if err != nil {
		s.Logger.Printf("marshal snapshot: %v", err)
		return
	}
	if s.Rdb != nil {
		if err := s.Rdb.Set(ctx, snapshotCacheKey, body, s.CacheTTL).Err(); err != nil {
			s.Logger.Printf("cache snapshot: %v", err)
		}
	}
}
