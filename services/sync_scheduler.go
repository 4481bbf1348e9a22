package services

import (
	"context"
	"time"

	"github.com/benson/survivor/logging"
)

// SyncScheduler runs the wiki roster sync on a fixed interval so
// placements keep up with episodes without an admin touching anything.
type SyncScheduler struct {
	sync     *RosterSyncService
	interval time.Duration
	ticker   *time.Ticker
	stopChan chan struct{}
	running  bool
	logger   *logging.Logger
}

func NewSyncScheduler(sync *RosterSyncService, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		sync:     sync,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logging.WithPrefix("SyncScheduler"),
	}
}

// Start begins periodic syncing, including one immediate run so a fresh
// deployment has rosters before the first tick.
func (s *SyncScheduler) Start() {
	if s.running {
		s.logger.Warn("Already running")
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.logger.Infof("Starting wiki sync every %v", s.interval)

	go s.runOnce()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				go s.runOnce()
			case <-s.stopChan:
				s.logger.Info("Stopping scheduled syncs")
				return
			}
		}
	}()
}

// Stop halts periodic syncing. A sync already in flight finishes.
func (s *SyncScheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stopChan)
}

// IsRunning reports whether the scheduler is active.
func (s *SyncScheduler) IsRunning() bool {
	return s.running
}

func (s *SyncScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	reports := s.sync.SyncAll(ctx)
	if len(reports) == 0 {
		s.logger.Debug("Sync pass touched no seasons")
	}
}
