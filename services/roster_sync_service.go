package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/metrics"
	"github.com/benson/survivor/models"
)

var ErrNoWikiPage = errors.New("season has no wiki page configured")

// maxNameDistance is how far a wiki spelling may drift from a stored
// contestant name and still be treated as the same person.
const maxNameDistance = 2

// syncConcurrency bounds how many seasons SyncAll works at once.
const syncConcurrency = 3

// WikiFetcher is the page access the sync service needs.
type WikiFetcher interface {
	FetchPage(ctx context.Context, page string) (*goquery.Document, error)
}

// SeasonSource is the season access the sync service needs.
type SeasonSource interface {
	FindByID(ctx context.Context, id string) (*models.Season, error)
	FindAll(ctx context.Context) ([]models.Season, error)
}

// FuzzyMatch records a wiki spelling that was reconciled to an existing
// contestant by edit distance rather than exactly.
type FuzzyMatch struct {
	WikiName   string `json:"wikiName"`
	RosterName string `json:"rosterName"`
	Distance   int    `json:"distance"`
}

// DetectedEvent is a scorable occurrence counted off the wiki's episode
// tables. Sync reports these for the admin to record; it never writes
// bonus tallies itself, so manual corrections stay authoritative.
type DetectedEvent struct {
	RosterName string `json:"rosterName"`
	Key        string `json:"key"`
	Count      int    `json:"count"`
}

// SyncReport summarizes one season's roster sync for the admin response
// and the logs.
type SyncReport struct {
	SeasonID       string          `json:"seasonId"`
	Parsed         int             `json:"parsed"`
	Created        int             `json:"created"`
	Updated        int             `json:"updated"`
	PlacementsSet  int             `json:"placementsSet"`
	FuzzyMatches   []FuzzyMatch    `json:"fuzzyMatches,omitempty"`
	DetectedEvents []DetectedEvent `json:"detectedEvents,omitempty"`
	Duration       time.Duration   `json:"duration"`
}

// RosterSyncService pulls cast lists and finishes from the fan wiki and
// reconciles them with the stored roster. Names already on the roster win:
// a wiki respelling within edit distance keeps the stored name so picks
// and bonus tallies keyed to it stay attached. Sync never deletes a
// contestant; only an admin does that.
type RosterSyncService struct {
	wiki           WikiFetcher
	seasonRepo     SeasonSource
	contestantRepo ContestantStore
	standings      StandingsInvalidator
	logger         *logging.Logger
}

func NewRosterSyncService(wiki WikiFetcher, seasonRepo SeasonSource, contestantRepo ContestantStore, standings StandingsInvalidator) *RosterSyncService {
	return &RosterSyncService{
		wiki:           wiki,
		seasonRepo:     seasonRepo,
		contestantRepo: contestantRepo,
		standings:      standings,
		logger:         logging.WithPrefix("RosterSync"),
	}
}

// SyncSeason refreshes one season's roster from its wiki page.
func (s *RosterSyncService) SyncSeason(ctx context.Context, seasonID string) (*SyncReport, error) {
	report, err := s.syncSeason(ctx, seasonID)
	if err != nil {
		metrics.RecordSyncFailure()
		return nil, err
	}
	metrics.RecordSyncRun(report.Duration.Seconds())
	return report, nil
}

func (s *RosterSyncService) syncSeason(ctx context.Context, seasonID string) (*SyncReport, error) {
	season, err := s.seasonRepo.FindByID(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, &ErrSeasonNotFound{SeasonID: seasonID}
	}
	if season.WikiPage == "" {
		return nil, ErrNoWikiPage
	}

	start := time.Now()
	doc, err := s.wiki.FetchPage(ctx, season.WikiPage)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseRoster(doc)
	if err != nil {
		return nil, err
	}

	existing, err := s.contestantRepo.FindBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{SeasonID: seasonID, Parsed: len(parsed)}
	changed := s.reconcile(season, parsed, existing, report)

	if len(changed) > 0 {
		if err := s.contestantRepo.BulkUpsert(ctx, seasonID, changed); err != nil {
			return nil, err
		}
		s.standings.Invalidate(seasonID)
	}

	if events := ParseEvents(doc); len(events) > 0 {
		roster, err := s.contestantRepo.FindBySeason(ctx, seasonID)
		if err != nil {
			s.logger.Warnf("Season %s: skipping event detection: %v", seasonID, err)
		} else {
			report.DetectedEvents = s.detectEvents(events, roster)
		}
	}

	report.Duration = time.Since(start)
	s.logger.Infof("Season %s sync: %d parsed, %d created, %d updated, %d placements in %v",
		seasonID, report.Parsed, report.Created, report.Updated, report.PlacementsSet, report.Duration)
	return report, nil
}

// reconcile matches parsed contestants against the stored roster and
// returns only the ones that actually changed, keeping writes and change
// events down on the nightly no-op sync.
func (s *RosterSyncService) reconcile(season *models.Season, parsed, existing []models.Contestant, report *SyncReport) []models.Contestant {
	byLower := make(map[string]*models.Contestant, len(existing))
	for i := range existing {
		byLower[strings.ToLower(existing[i].Name)] = &existing[i]
	}

	var changed []models.Contestant
	for _, p := range parsed {
		if p.Placement != nil && (*p.Placement < 1 || *p.Placement > season.ContestantCount) {
			s.logger.Warnf("Season %s: ignoring out-of-range placement %d for %s",
				season.ID, *p.Placement, p.Name)
			p.Placement = nil
		}

		match := byLower[strings.ToLower(p.Name)]
		if match == nil {
			match = s.closestName(p.Name, existing)
			if match != nil {
				metrics.RecordSyncFuzzyMatch()
				report.FuzzyMatches = append(report.FuzzyMatches, FuzzyMatch{
					WikiName:   p.Name,
					RosterName: match.Name,
					Distance:   levenshtein.ComputeDistance(strings.ToLower(p.Name), strings.ToLower(match.Name)),
				})
			}
		}

		if match == nil {
			report.Created++
			if p.Placement != nil {
				report.PlacementsSet++
			}
			changed = append(changed, p)
			continue
		}

		// Keep the stored spelling; picks and tallies point at it.
		p.Name = match.Name
		if equalPlacement(p.Placement, match.Placement) && p.Tribe == match.Tribe {
			continue
		}
		if p.Placement != nil && match.Placement == nil {
			report.PlacementsSet++
		}
		report.Updated++
		changed = append(changed, p)
	}
	return changed
}

// closestName finds the roster contestant within maxNameDistance of the
// wiki spelling, preferring the smallest distance.
func (s *RosterSyncService) closestName(name string, existing []models.Contestant) *models.Contestant {
	var best *models.Contestant
	bestDistance := maxNameDistance + 1
	for i := range existing {
		distance := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(existing[i].Name))
		if distance < bestDistance {
			best = &existing[i]
			bestDistance = distance
		}
	}
	return best
}

// detectEvents tallies episode-table wins per roster contestant. Wiki
// spellings reconcile the same way roster rows do; names that match no
// contestant (tribes, entries like "none") are dropped.
func (s *RosterSyncService) detectEvents(events []WikiEvent, roster []models.Contestant) []DetectedEvent {
	byLower := make(map[string]string, len(roster))
	for i := range roster {
		byLower[strings.ToLower(roster[i].Name)] = roster[i].Name
	}

	type tally struct{ name, key string }
	counts := make(map[tally]int)
	for _, ev := range events {
		name, ok := byLower[strings.ToLower(ev.Name)]
		if !ok {
			match := s.closestName(ev.Name, roster)
			if match == nil {
				s.logger.Debugf("Event winner %q matches no contestant, skipping", ev.Name)
				continue
			}
			name = match.Name
		}
		counts[tally{name, ev.Key}]++
	}

	detected := make([]DetectedEvent, 0, len(counts))
	for t, n := range counts {
		detected = append(detected, DetectedEvent{RosterName: t.name, Key: t.key, Count: n})
	}
	sort.Slice(detected, func(i, j int) bool {
		if detected[i].RosterName != detected[j].RosterName {
			return detected[i].RosterName < detected[j].RosterName
		}
		return detected[i].Key < detected[j].Key
	})
	return detected
}

// SyncAll refreshes every season that has a wiki page. Seasons sync
// concurrently, and one season's failure does not stop the others.
func (s *RosterSyncService) SyncAll(ctx context.Context) []SyncReport {
	seasons, err := s.seasonRepo.FindAll(ctx)
	if err != nil {
		s.logger.Errorf("Failed to list seasons for sync: %v", err)
		return nil
	}

	var (
		mu      sync.Mutex
		reports []SyncReport
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)

	for i := range seasons {
		season := seasons[i]
		if season.WikiPage == "" {
			continue
		}
		g.Go(func() error {
			report, err := s.SyncSeason(ctx, season.ID)
			if err != nil {
				s.logger.Errorf("Season %s sync failed: %v", season.ID, err)
				return nil
			}
			mu.Lock()
			reports = append(reports, *report)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func equalPlacement(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
