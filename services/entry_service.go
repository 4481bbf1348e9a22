package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/metrics"
	"github.com/benson/survivor/models"
)

// Intake failures the HTTP layer maps onto status codes.
var (
	ErrInvalidEntry        = errors.New("invalid entry")
	ErrSeasonLocked        = errors.New("season is locked")
	ErrUnknownContestant   = errors.New("unknown contestant")
	ErrDuplicateContestant = errors.New("contestant listed more than once")
	ErrPickCount           = errors.New("wrong number of picks")
	ErrAlternateCount      = errors.New("too many alternates")
)

// EntryStore is the entry persistence the intake service needs.
type EntryStore interface {
	Upsert(ctx context.Context, entry *models.Entry) error
	FindBySeason(ctx context.Context, seasonID string) ([]models.Entry, error)
	FindByPlayer(ctx context.Context, seasonID, playerName string) (*models.Entry, error)
	Delete(ctx context.Context, seasonID, playerName string) error
}

// StandingsInvalidator drops a season's cached standings after a write.
type StandingsInvalidator interface {
	Invalidate(seasonID string)
}

// EntryService validates and stores player submissions. Intake is strict
// where the scoring engine is forgiving: names that resolve to nobody on
// the roster are rejected here so typos surface at submit time instead of
// silently scoring zero all season.
type EntryService struct {
	entryRepo      EntryStore
	seasonRepo     SeasonReader
	contestantRepo ContestantReader
	standings      StandingsInvalidator
	validate       *validator.Validate
	logger         *logging.Logger
}

func NewEntryService(entryRepo EntryStore, seasonRepo SeasonReader, contestantRepo ContestantReader, standings StandingsInvalidator) *EntryService {
	return &EntryService{
		entryRepo:      entryRepo,
		seasonRepo:     seasonRepo,
		contestantRepo: contestantRepo,
		standings:      standings,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logging.WithPrefix("EntryService"),
	}
}

// SubmitEntry validates a submission and stores it, replacing any earlier
// entry by the same player. Pick names are matched against the roster
// case-insensitively and stored in canonical roster spelling.
func (s *EntryService) SubmitEntry(ctx context.Context, req *models.EntryRequest) (*models.Entry, error) {
	entry, err := s.submit(ctx, req)
	if err != nil {
		metrics.RecordEntryRejected(rejectReason(err))
		return nil, err
	}
	metrics.RecordEntrySubmitted()
	return entry, nil
}

func (s *EntryService) submit(ctx context.Context, req *models.EntryRequest) (*models.Entry, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	season, err := s.seasonRepo.FindByID(ctx, req.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load season: %w", err)
	}
	if season == nil {
		return nil, &ErrSeasonNotFound{SeasonID: req.SeasonID}
	}
	if season.IsLocked(time.Now()) {
		return nil, fmt.Errorf("%w: submissions closed at %s", ErrSeasonLocked, season.LockTime.Format(time.RFC1123))
	}

	if len(req.Picks) != season.PicksPerPlayer {
		return nil, fmt.Errorf("%w: season %s takes exactly %d picks, got %d",
			ErrPickCount, season.ID, season.PicksPerPlayer, len(req.Picks))
	}
	if len(req.Alternates) > season.AlternateSlots {
		return nil, fmt.Errorf("%w: season %s allows %d alternates, got %d",
			ErrAlternateCount, season.ID, season.AlternateSlots, len(req.Alternates))
	}

	contestants, err := s.contestantRepo.FindBySeason(ctx, req.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contestants: %w", err)
	}

	canonical := make(map[string]string, len(contestants))
	for i := range contestants {
		canonical[strings.ToLower(contestants[i].Name)] = contestants[i].Name
	}

	resolve := func(names []string, seen map[string]bool) ([]string, error) {
		resolved := make([]string, len(names))
		for i, name := range names {
			match, ok := canonical[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("%w: %q is not on the season %s roster", ErrUnknownContestant, name, season.ID)
			}
			if seen[match] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateContestant, match)
			}
			seen[match] = true
			resolved[i] = match
		}
		return resolved, nil
	}

	seen := make(map[string]bool, len(req.Picks)+len(req.Alternates))
	picks, err := resolve(req.Picks, seen)
	if err != nil {
		return nil, err
	}
	alternates, err := resolve(req.Alternates, seen)
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		ID:         uuid.NewString(),
		SeasonID:   season.ID,
		PlayerName: req.PlayerName,
		Picks:      picks,
		Alternates: alternates,
		CreatedAt:  time.Now(),
	}

	if err := s.entryRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}
	s.standings.Invalidate(season.ID)

	s.logger.Infof("Accepted entry from %s for season %s (%d picks, %d alternates)",
		entry.PlayerName, season.ID, len(picks), len(alternates))
	return entry, nil
}

// rejectReason maps an intake failure onto a short metric label.
func rejectReason(err error) string {
	var notFound *ErrSeasonNotFound
	switch {
	case errors.Is(err, ErrInvalidEntry):
		return "invalid"
	case errors.Is(err, ErrSeasonLocked):
		return "locked"
	case errors.Is(err, ErrUnknownContestant):
		return "unknown_contestant"
	case errors.Is(err, ErrDuplicateContestant):
		return "duplicate_contestant"
	case errors.Is(err, ErrPickCount):
		return "pick_count"
	case errors.Is(err, ErrAlternateCount):
		return "alternate_count"
	case errors.As(err, &notFound):
		return "season_not_found"
	default:
		return "internal"
	}
}

// GetEntry returns a player's current submission, or nil when they have
// not entered.
func (s *EntryService) GetEntry(ctx context.Context, seasonID, playerName string) (*models.Entry, error) {
	return s.entryRepo.FindByPlayer(ctx, seasonID, strings.TrimSpace(playerName))
}

// ListEntries returns a season's entries in submission order.
func (s *EntryService) ListEntries(ctx context.Context, seasonID string) ([]models.Entry, error) {
	return s.entryRepo.FindBySeason(ctx, seasonID)
}

// DeleteEntry removes a submission (admin only) and invalidates the
// season's standings.
func (s *EntryService) DeleteEntry(ctx context.Context, seasonID, playerName string) error {
	if err := s.entryRepo.Delete(ctx, seasonID, playerName); err != nil {
		return err
	}
	s.standings.Invalidate(seasonID)
	return nil
}
