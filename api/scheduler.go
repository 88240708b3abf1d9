/*
scheduler.go - Overdue invoice sweeper

PURPOSE:
  Periodically flips Pending invoices past their due date to Overdue so the
  front desk sees aging debt without anyone opening each invoice. The sweep
  is one UPDATE statement and naturally idempotent; running it twice changes
  nothing.

USAGE:
  sweeper := NewOverdueScheduler(store, log)
  sweeper.Start()
  // ... on shutdown
  sweeper.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic-api/store/sqlite"
)

// OverdueScheduler runs the overdue sweep on a fixed interval.
type OverdueScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOverdueScheduler creates a sweeper with a one-hour default interval.
func NewOverdueScheduler(store *sqlite.Store, log zerolog.Logger) *OverdueScheduler {
	return &OverdueScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep. The first sweep runs immediately.
func (s *OverdueScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.log.Info().Dur("interval", s.CheckInterval).Msg("overdue sweeper started")
}

// Stop stops the sweeper and waits for an in-flight sweep to finish.
func (s *OverdueScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info().Msg("overdue sweeper stopped")
	}
}

func (s *OverdueScheduler) run() {
	defer s.wg.Done()

	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *OverdueScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	flipped, err := s.Store.MarkOverdueInvoices(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("overdue sweep failed")
		return
	}
	if flipped > 0 {
		s.log.Info().Int64("invoices", flipped).Msg("marked invoices overdue")
	}
}

// RunNow triggers an immediate sweep, for admin and tests.
func (s *OverdueScheduler) RunNow() {
	s.sweep()
}
