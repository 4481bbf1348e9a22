package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
)

var (
	ErrContestantNotFound = errors.New("contestant not found")
	ErrInvalidPlacement   = errors.New("invalid placement")
	ErrUnknownBonusKey    = errors.New("bonus key not in scoring config")
)

// ContestantStore is the roster persistence the contestant service needs.
type ContestantStore interface {
	FindBySeason(ctx context.Context, seasonID string) ([]models.Contestant, error)
	FindByName(ctx context.Context, seasonID, name string) (*models.Contestant, error)
	BulkUpsert(ctx context.Context, seasonID string, contestants []models.Contestant) error
	UpdatePlacement(ctx context.Context, seasonID, name string, placement *int) error
	IncrementBonus(ctx context.Context, seasonID, name, key string, n int) error
	DeleteByName(ctx context.Context, seasonID, name string) error
}

// ContestantService owns roster writes: placements as contestants are
// voted out and bonus event tallies as episodes air. Every write
// invalidates the season's cached standings.
type ContestantService struct {
	contestantRepo ContestantStore
	seasonRepo     SeasonReader
	standings      StandingsInvalidator
	logger         *logging.Logger
}

func NewContestantService(contestantRepo ContestantStore, seasonRepo SeasonReader, standings StandingsInvalidator) *ContestantService {
	return &ContestantService{
		contestantRepo: contestantRepo,
		seasonRepo:     seasonRepo,
		standings:      standings,
		logger:         logging.WithPrefix("ContestantService"),
	}
}

// GetRoster returns a season's contestants sorted by name.
func (s *ContestantService) GetRoster(ctx context.Context, seasonID string) ([]models.Contestant, error) {
	return s.contestantRepo.FindBySeason(ctx, seasonID)
}

// ReplaceRoster makes the given names the season's whole roster, used
// when an admin types the cast in by hand or prunes a bad sync row.
// Names already stored are left untouched so their placements and bonus
// tallies survive; new names are inserted; stored contestants no longer
// listed are removed. Matching is case-insensitive and the stored
// spelling wins, the same rule the wiki sync applies.
func (s *ContestantService) ReplaceRoster(ctx context.Context, seasonID string, names []string) error {
	season, err := s.requireSeason(ctx, seasonID)
	if err != nil {
		return err
	}
	existing, err := s.contestantRepo.FindBySeason(ctx, seasonID)
	if err != nil {
		return err
	}
	stored := make(map[string]bool, len(existing))
	for i := range existing {
		stored[strings.ToLower(existing[i].Name)] = true
	}

	var created []models.Contestant
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		lower := strings.ToLower(name)
		if name == "" || keep[lower] {
			continue
		}
		keep[lower] = true
		if !stored[lower] {
			created = append(created, models.Contestant{SeasonID: seasonID, Name: name})
		}
	}
	if len(keep) == 0 {
		return fmt.Errorf("%w: roster is empty", ErrInvalidSeason)
	}
	if len(keep) > season.ContestantCount {
		s.logger.Warnf("Season %s roster has %d names but config says %d contestants",
			seasonID, len(keep), season.ContestantCount)
	}

	if len(created) > 0 {
		if err := s.contestantRepo.BulkUpsert(ctx, seasonID, created); err != nil {
			return err
		}
	}
	removed := 0
	for i := range existing {
		if keep[strings.ToLower(existing[i].Name)] {
			continue
		}
		if err := s.contestantRepo.DeleteByName(ctx, seasonID, existing[i].Name); err != nil {
			return err
		}
		removed++
	}

	s.standings.Invalidate(seasonID)
	s.logger.Infof("Season %s roster replaced: %d names, %d added, %d removed",
		seasonID, len(keep), len(created), removed)
	return nil
}

// SetPlacement records where a contestant finished, or clears it when
// placement is nil. Placement must fit the season's scale.
func (s *ContestantService) SetPlacement(ctx context.Context, seasonID, name string, placement *int) error {
	season, err := s.requireSeason(ctx, seasonID)
	if err != nil {
		return err
	}
	if placement != nil && (*placement < 1 || *placement > season.ContestantCount) {
		return fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidPlacement, *placement, season.ContestantCount)
	}

	contestant, err := s.requireContestant(ctx, seasonID, name)
	if err != nil {
		return err
	}

	if err := s.contestantRepo.UpdatePlacement(ctx, seasonID, contestant.Name, placement); err != nil {
		return err
	}
	s.standings.Invalidate(seasonID)

	if placement != nil {
		s.logger.Infof("Season %s: %s placed %d", seasonID, contestant.Name, *placement)
	} else {
		s.logger.Infof("Season %s: cleared placement for %s", seasonID, contestant.Name)
	}
	return nil
}

// RecordBonus adjusts a contestant's tally for a configured bonus event.
// The key must exist in the season's scoring config so admin typos fail
// loudly instead of tallying an event worth nothing.
func (s *ContestantService) RecordBonus(ctx context.Context, seasonID, name, key string, delta int) error {
	season, err := s.requireSeason(ctx, seasonID)
	if err != nil {
		return err
	}
	if key == models.ScoringKeyWinnerBonus || key == models.ScoringKeyRunnerUpBonus {
		return fmt.Errorf("%w: %q is a reserved key, not an event", ErrUnknownBonusKey, key)
	}
	if _, ok := season.Scoring[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBonusKey, key)
	}
	if delta == 0 {
		return nil
	}

	contestant, err := s.requireContestant(ctx, seasonID, name)
	if err != nil {
		return err
	}

	if err := s.contestantRepo.IncrementBonus(ctx, seasonID, contestant.Name, key, delta); err != nil {
		return err
	}
	s.standings.Invalidate(seasonID)

	s.logger.Infof("Season %s: %s %s %+d", seasonID, contestant.Name, key, delta)
	return nil
}

func (s *ContestantService) requireSeason(ctx context.Context, seasonID string) (*models.Season, error) {
	season, err := s.seasonRepo.FindByID(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load season: %w", err)
	}
	if season == nil {
		return nil, &ErrSeasonNotFound{SeasonID: seasonID}
	}
	return season, nil
}

// requireContestant resolves a name case-insensitively so admin tools can
// be loose about capitalization.
func (s *ContestantService) requireContestant(ctx context.Context, seasonID, name string) (*models.Contestant, error) {
	name = strings.TrimSpace(name)
	contestant, err := s.contestantRepo.FindByName(ctx, seasonID, name)
	if err != nil {
		return nil, err
	}
	if contestant != nil {
		return contestant, nil
	}

	roster, err := s.contestantRepo.FindBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	for i := range roster {
		if strings.EqualFold(roster[i].Name, name) {
			return &roster[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q in season %s", ErrContestantNotFound, name, seasonID)
}
