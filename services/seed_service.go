package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
)

// SeedFile is the YAML shape the seed importer accepts: one season with
// its roster, entries, and admin accounts. Re-running a seed is safe;
// everything is keyed and upserted.
type SeedFile struct {
	Season      SeedSeason       `yaml:"season"`
	Contestants []SeedContestant `yaml:"contestants"`
	Entries     []SeedEntry      `yaml:"entries"`
	Admins      []SeedAdmin      `yaml:"admins"`
}

type SeedSeason struct {
	ID              string             `yaml:"id"`
	Name            string             `yaml:"name"`
	ContestantCount int                `yaml:"contestantCount"`
	PicksPerPlayer  int                `yaml:"picksPerPlayer"`
	AlternateSlots  int                `yaml:"alternates"`
	Scoring         map[string]float64 `yaml:"scoring"`
	LockTime        time.Time          `yaml:"lockTime"`
	WikiPage        string             `yaml:"wikiPage"`
}

type SeedContestant struct {
	Name      string         `yaml:"name"`
	Tribe     string         `yaml:"tribe"`
	Placement *int           `yaml:"placement"`
	Bonuses   map[string]int `yaml:"bonuses"`
}

type SeedEntry struct {
	Name       string   `yaml:"name"`
	Picks      []string `yaml:"picks"`
	Alternates []string `yaml:"alternates"`
}

type SeedAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SeedSummary counts what a seed run wrote.
type SeedSummary struct {
	Contestants int
	Entries     int
	Admins      int
	Skipped     int
}

// BonusSetter is the direct tally write the seed importer needs.
type BonusSetter interface {
	SetBonuses(ctx context.Context, seasonID, name string, bonuses map[string]int) error
}

// SeedService imports a season fixture from YAML. It writes through the
// repositories rather than the intake service: seeds describe finished
// seasons, which the intake service would reject as locked.
type SeedService struct {
	seasons     *SeasonService
	contestants ContestantStore
	bonuses     BonusSetter
	entries     EntryStore
	users       UserRepository
	standings   StandingsInvalidator
	logger      *logging.Logger
}

func NewSeedService(seasons *SeasonService, contestants ContestantStore, bonuses BonusSetter, entries EntryStore, users UserRepository, standings StandingsInvalidator) *SeedService {
	return &SeedService{
		seasons:     seasons,
		contestants: contestants,
		bonuses:     bonuses,
		entries:     entries,
		users:       users,
		standings:   standings,
		logger:      logging.WithPrefix("SeedService"),
	}
}

// LoadFile reads and parses a seed YAML file.
func LoadFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if seed.Season.ID == "" {
		return nil, fmt.Errorf("seed file has no season id")
	}
	return &seed, nil
}

// Apply writes a seed file's season, roster, entries, and admins.
func (s *SeedService) Apply(ctx context.Context, seed *SeedFile) (*SeedSummary, error) {
	season := &models.Season{
		ID:              seed.Season.ID,
		Name:            seed.Season.Name,
		ContestantCount: seed.Season.ContestantCount,
		PicksPerPlayer:  seed.Season.PicksPerPlayer,
		AlternateSlots:  seed.Season.AlternateSlots,
		Scoring:         seed.Season.Scoring,
		LockTime:        seed.Season.LockTime,
		WikiPage:        seed.Season.WikiPage,
	}
	if err := s.seasons.SaveSeason(ctx, season); err != nil {
		return nil, err
	}

	summary := &SeedSummary{}
	if err := s.applyContestants(ctx, season, seed.Contestants, summary); err != nil {
		return nil, err
	}
	if err := s.applyEntries(ctx, season, seed, summary); err != nil {
		return nil, err
	}
	if err := s.applyAdmins(ctx, seed.Admins, summary); err != nil {
		return nil, err
	}

	s.standings.Invalidate(season.ID)
	s.logger.Infof("Seeded season %s: %d contestants, %d entries, %d admins, %d skipped",
		season.ID, summary.Contestants, summary.Entries, summary.Admins, summary.Skipped)
	return summary, nil
}

func (s *SeedService) applyContestants(ctx context.Context, season *models.Season, seeds []SeedContestant, summary *SeedSummary) error {
	contestants := make([]models.Contestant, 0, len(seeds))
	for _, c := range seeds {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			summary.Skipped++
			continue
		}
		contestants = append(contestants, models.Contestant{
			Name:      name,
			Tribe:     c.Tribe,
			Placement: c.Placement,
		})
	}
	if len(contestants) == 0 {
		return nil
	}

	if err := s.contestants.BulkUpsert(ctx, season.ID, contestants); err != nil {
		return err
	}
	summary.Contestants = len(contestants)

	// Bonus tallies ride separately: the bulk upsert leaves them alone
	// so the wiki sync can reuse it without clobbering admin edits.
	for _, c := range seeds {
		if len(c.Bonuses) == 0 {
			continue
		}
		if err := s.bonuses.SetBonuses(ctx, season.ID, strings.TrimSpace(c.Name), c.Bonuses); err != nil {
			return err
		}
	}
	return nil
}

// applyEntries writes entries with staggered creation times so the file's
// order becomes the submission order the ranking tiebreak uses.
func (s *SeedService) applyEntries(ctx context.Context, season *models.Season, seed *SeedFile, summary *SeedSummary) error {
	canonical := make(map[string]string, len(seed.Contestants))
	for _, c := range seed.Contestants {
		name := strings.TrimSpace(c.Name)
		canonical[strings.ToLower(name)] = name
	}

	resolve := func(names []string) []string {
		resolved := make([]string, 0, len(names))
		for _, name := range names {
			match, ok := canonical[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				// Keep the raw name: the engine scores it as zero, which
				// is the honest rendering of a seed typo.
				s.logger.Warnf("Seed entry pick %q matches no contestant", name)
				match = strings.TrimSpace(name)
			}
			resolved = append(resolved, match)
		}
		return resolved
	}

	base := time.Now()
	for i, e := range seed.Entries {
		name := strings.TrimSpace(e.Name)
		if name == "" || len(e.Picks) == 0 {
			summary.Skipped++
			continue
		}
		entry := &models.Entry{
			ID:         uuid.NewString(),
			SeasonID:   season.ID,
			PlayerName: name,
			Picks:      resolve(e.Picks),
			Alternates: resolve(e.Alternates),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := s.entries.Upsert(ctx, entry); err != nil {
			return err
		}
		summary.Entries++
	}
	return nil
}

func (s *SeedService) applyAdmins(ctx context.Context, admins []SeedAdmin, summary *SeedSummary) error {
	for _, a := range admins {
		if a.Username == "" || a.Password == "" {
			summary.Skipped++
			continue
		}
		user := &models.User{Username: a.Username}
		if err := user.HashPassword(a.Password); err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", a.Username, err)
		}
		if err := s.users.Upsert(ctx, user); err != nil {
			return err
		}
		summary.Admins++
	}
	return nil
}
