package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/metrics"
	"github.com/benson/survivor/models"
)

// SeasonReader is the season access the standings service needs.
type SeasonReader interface {
	FindByID(ctx context.Context, id string) (*models.Season, error)
}

// ContestantReader is the roster access the standings service needs.
type ContestantReader interface {
	FindBySeason(ctx context.Context, seasonID string) ([]models.Contestant, error)
}

// EntryReader is the entry access the standings service needs.
type EntryReader interface {
	FindBySeason(ctx context.Context, seasonID string) ([]models.Entry, error)
}

// StandingsService serves computed standings pages from memory and
// recomputes them on demand. A page is cached per season until a write
// anywhere in that season (entry, placement, bonus, config) invalidates
// it; the next read recomputes from a fresh database snapshot.
type StandingsService struct {
	mu    sync.RWMutex
	pages map[string]*models.StandingsPage

	seasonRepo     SeasonReader
	contestantRepo ContestantReader
	entryRepo      EntryReader
	engine         *ScoringService
	logger         *logging.Logger
}

// ErrSeasonNotFound reports a standings request for a season ID that does
// not exist.
type ErrSeasonNotFound struct {
	SeasonID string
}

func (e *ErrSeasonNotFound) Error() string {
	return fmt.Sprintf("season %s not found", e.SeasonID)
}

func NewStandingsService(seasonRepo SeasonReader, contestantRepo ContestantReader, entryRepo EntryReader, engine *ScoringService) *StandingsService {
	return &StandingsService{
		pages:          make(map[string]*models.StandingsPage),
		seasonRepo:     seasonRepo,
		contestantRepo: contestantRepo,
		entryRepo:      entryRepo,
		engine:         engine,
		logger:         logging.WithPrefix("StandingsService"),
	}
}

// GetStandings returns the standings page for a season, serving the
// cached copy when one exists.
func (s *StandingsService) GetStandings(ctx context.Context, seasonID string) (*models.StandingsPage, error) {
	s.mu.RLock()
	page, ok := s.pages[seasonID]
	s.mu.RUnlock()
	if ok {
		metrics.RecordStandingsCacheHit()
		return page, nil
	}
	metrics.RecordStandingsCacheMiss()
	return s.Recompute(ctx, seasonID)
}

// Recompute rebuilds a season's standings from a fresh snapshot and
// replaces the cached page.
func (s *StandingsService) Recompute(ctx context.Context, seasonID string) (*models.StandingsPage, error) {
	season, err := s.seasonRepo.FindByID(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load season: %w", err)
	}
	if season == nil {
		return nil, &ErrSeasonNotFound{SeasonID: seasonID}
	}

	contestants, err := s.contestantRepo.FindBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contestants: %w", err)
	}

	entries, err := s.entryRepo.FindBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	start := time.Now()
	page := &models.StandingsPage{
		Season:     season,
		Standings:  s.engine.ComputeStandings(season, contestants, entries),
		ComputedAt: time.Now(),
	}

	s.mu.Lock()
	s.pages[seasonID] = page
	s.mu.Unlock()

	metrics.RecordStandingsRecompute(time.Since(start).Seconds())
	s.logger.Debugf("Recomputed standings for season %s: %d entries, %d contestants in %v",
		seasonID, len(entries), len(contestants), time.Since(start))
	return page, nil
}

// Invalidate drops a season's cached page. The next read recomputes.
func (s *StandingsService) Invalidate(seasonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, seasonID)
}

// InvalidateAll drops every cached page, used after a bulk import.
func (s *StandingsService) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = make(map[string]*models.StandingsPage)
}

// CacheStats reports what is currently held in memory, for the admin
// debug endpoint.
func (s *StandingsService) CacheStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seasons := make([]string, 0, len(s.pages))
	for key := range s.pages {
		seasons = append(seasons, key)
	}
	return map[string]interface{}{
		"cached_seasons": len(s.pages),
		"seasons":        seasons,
	}
}
