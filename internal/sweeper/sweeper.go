// Package sweeper periodically evicts expired entries from the in-memory
// replay and rate-limit stores.
package sweeper

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/marcus-qen/botgate/internal/metrics"
)

// Prunable is a store that can drop entries expired as of now.
type Prunable interface {
	Prune(now time.Time) int
	Len() int
}

// Sweeper prunes registered stores on a cron schedule.
type Sweeper struct {
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	stores map[string]Prunable
	cron   *cron.Cron
}

// New creates a sweeper. Stores are added with Register.
func New(logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		logger: logger,
		now:    time.Now,
		stores: make(map[string]Prunable),
	}
}

// Register adds a named store. Registering a name twice replaces the store.
func (s *Sweeper) Register(name string, store Prunable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[name] = store
}

// Start schedules RunOnce. schedule is a standard cron expression or an
// @every descriptor. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("parse sweeper schedule %q: %w", schedule, err)
	}
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() { s.RunOnce() }))
	c.Start()
	s.cron = c

	s.logger.Info("sweeper started", zap.String("schedule", schedule), zap.Int("stores", len(s.stores)))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce prunes every store and returns evictions per store.
func (s *Sweeper) RunOnce() map[string]int {
	s.mu.Lock()
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	stores := make(map[string]Prunable, len(s.stores))
	for k, v := range s.stores {
		stores[k] = v
	}
	s.mu.Unlock()
	sort.Strings(names)

	now := s.now()
	result := make(map[string]int, len(names))
	for _, name := range names {
		store := stores[name]
		evicted := store.Prune(now)
		remaining := store.Len()
		result[name] = evicted
		metrics.RecordSweep(name, evicted, remaining)
		if evicted > 0 {
			s.logger.Debug("swept store",
				zap.String("store", name),
				zap.Int("evicted", evicted),
				zap.Int("remaining", remaining),
			)
		}
	}
	return result
}
