package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
)

var ErrInvalidSeason = errors.New("invalid season config")

// Season IDs end up in URLs and mongo keys, so keep them to a slug.
var seasonIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,31}$`)

// SeasonStore is the season persistence the season service needs.
type SeasonStore interface {
	Upsert(ctx context.Context, season *models.Season) error
	FindByID(ctx context.Context, id string) (*models.Season, error)
	FindAll(ctx context.Context) ([]models.Season, error)
	Delete(ctx context.Context, id string) error
}

// SeasonCascade is what a season deletion has to clean up alongside the
// season document itself.
type SeasonCascade interface {
	DeleteBySeason(ctx context.Context, seasonID string) error
}

// SeasonService owns season configuration. Every write invalidates the
// season's cached standings because the scoring config is engine input.
type SeasonService struct {
	seasonRepo     SeasonStore
	contestantRepo SeasonCascade
	entryRepo      SeasonCascade
	standings      StandingsInvalidator
	logger         *logging.Logger
}

func NewSeasonService(seasonRepo SeasonStore, contestantRepo, entryRepo SeasonCascade, standings StandingsInvalidator) *SeasonService {
	return &SeasonService{
		seasonRepo:     seasonRepo,
		contestantRepo: contestantRepo,
		entryRepo:      entryRepo,
		standings:      standings,
		logger:         logging.WithPrefix("SeasonService"),
	}
}

// SaveSeason validates and stores a season config, creating or replacing.
func (s *SeasonService) SaveSeason(ctx context.Context, season *models.Season) error {
	if err := validateSeason(season); err != nil {
		return err
	}
	if err := s.seasonRepo.Upsert(ctx, season); err != nil {
		return fmt.Errorf("failed to save season %s: %w", season.ID, err)
	}
	s.standings.Invalidate(season.ID)
	s.logger.Infof("Saved season %s (%d contestants, %d picks, %d alternates)",
		season.ID, season.ContestantCount, season.PicksPerPlayer, season.AlternateSlots)
	return nil
}

func (s *SeasonService) GetSeason(ctx context.Context, id string) (*models.Season, error) {
	return s.seasonRepo.FindByID(ctx, id)
}

func (s *SeasonService) ListSeasons(ctx context.Context) ([]models.Season, error) {
	return s.seasonRepo.FindAll(ctx)
}

// DeleteSeason removes a season and everything keyed to it: contestants,
// entries, and the cached standings page.
func (s *SeasonService) DeleteSeason(ctx context.Context, id string) error {
	if err := s.entryRepo.DeleteBySeason(ctx, id); err != nil {
		return err
	}
	if err := s.contestantRepo.DeleteBySeason(ctx, id); err != nil {
		return err
	}
	if err := s.seasonRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.standings.Invalidate(id)
	s.logger.Infof("Deleted season %s and its entries and contestants", id)
	return nil
}

func validateSeason(season *models.Season) error {
	switch {
	case !seasonIDPattern.MatchString(season.ID):
		return fmt.Errorf("%w: id %q must be a short lowercase slug", ErrInvalidSeason, season.ID)
	case season.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSeason)
	case season.ContestantCount < 2:
		return fmt.Errorf("%w: contestant count %d is too small", ErrInvalidSeason, season.ContestantCount)
	case season.PicksPerPlayer < 1:
		return fmt.Errorf("%w: picks per player must be at least 1", ErrInvalidSeason)
	case season.PicksPerPlayer > season.ContestantCount:
		return fmt.Errorf("%w: %d picks exceed the %d-contestant roster",
			ErrInvalidSeason, season.PicksPerPlayer, season.ContestantCount)
	case season.AlternateSlots < 0:
		return fmt.Errorf("%w: alternate slots cannot be negative", ErrInvalidSeason)
	}
	// Negative values are allowed: pools use penalty events. NaN and the
	// infinities can sneak in through YAML and would poison every total.
	for key, value := range season.Scoring {
		if key == "" {
			return fmt.Errorf("%w: empty scoring key", ErrInvalidSeason)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: scoring key %q has non-finite value", ErrInvalidSeason, key)
		}
	}
	return nil
}
