package services

import (
	"sort"

	"github.com/benson/survivor/models"
)

// ScoringService turns a season's configuration, its contestant roster,
// and the submitted entries into a ranked, itemized standings table.
// It is pure: no storage, no clock, no state between calls, so it is safe
// to invoke concurrently and is re-run from scratch whenever inputs change.
//
// Pick and alternate names that match no roster contestant score zero
// everywhere; they are never an error.
type ScoringService struct{}

// NewScoringService creates the standings scoring engine.
func NewScoringService() *ScoringService {
	return &ScoringService{}
}

// PlacementPoints returns the points a contestant earns from their final
// placement: contestantCount for the winner down to 1 for the first
// voted out. Contestants still in the game (and unresolved names) score 0.
func (s *ScoringService) PlacementPoints(season *models.Season, c *models.Contestant) float64 {
	if c == nil || c.Placement == nil {
		return 0
	}
	return float64(season.ContestantCount + 1 - *c.Placement)
}

// BonusPoints returns the points from a contestant's bonus event tally.
// Tally keys missing from the season's scoring config are ignored, which
// keeps old tallies harmless after a scoring change.
func (s *ScoringService) BonusPoints(season *models.Season, c *models.Contestant) float64 {
	if c == nil || len(c.Bonuses) == 0 {
		return 0
	}
	var points float64
	for key, count := range c.Bonuses {
		if value, ok := season.Scoring[key]; ok {
			points += float64(count) * value
		}
	}
	return points
}

// TotalPoints is a contestant's placement points plus bonus points.
func (s *ScoringService) TotalPoints(season *models.Season, c *models.Contestant) float64 {
	return s.PlacementPoints(season, c) + s.BonusPoints(season, c)
}

// ComputeStandings scores every entry against the contestant snapshot and
// returns one Standing per entry in final ranked order: descending total,
// with ties kept in submission order. The tiebreak carries the original
// entry index explicitly rather than leaning on sort stability.
func (s *ScoringService) ComputeStandings(season *models.Season, contestants []models.Contestant, entries []models.Entry) []models.Standing {
	roster := make(map[string]*models.Contestant, len(contestants))
	for i := range contestants {
		roster[contestants[i].Name] = &contestants[i]
	}

	type rankedStanding struct {
		standing models.Standing
		order    int
	}
	ranked := make([]rankedStanding, len(entries))
	for i := range entries {
		ranked[i] = rankedStanding{
			standing: s.scoreEntry(season, roster, &entries[i]),
			order:    i,
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].standing.Total != ranked[j].standing.Total {
			return ranked[i].standing.Total > ranked[j].standing.Total
		}
		return ranked[i].order < ranked[j].order
	})

	standings := make([]models.Standing, len(ranked))
	for i := range ranked {
		standings[i] = ranked[i].standing
	}
	return standings
}

// scoreEntry builds one player's itemized standing: per-pick breakdowns,
// the single alternate swap if one applies, the winner/runner-up bonuses,
// and the total over the active roster.
func (s *ScoringService) scoreEntry(season *models.Season, roster map[string]*models.Contestant, entry *models.Entry) models.Standing {
	standing := models.Standing{
		PlayerName: entry.PlayerName,
		Picks:      make([]models.ScoredPick, len(entry.Picks)),
		Alternates: make([]models.ScoredAlternate, len(entry.Alternates)),
	}

	for i, name := range entry.Picks {
		c := roster[name]
		placement, bonus := s.PlacementPoints(season, c), s.BonusPoints(season, c)
		standing.Picks[i] = models.ScoredPick{
			ContestantName:  name,
			PlacementPoints: placement,
			BonusPoints:     bonus,
			Total:           placement + bonus,
		}
	}
	for i, name := range entry.Alternates {
		c := roster[name]
		placement, bonus := s.PlacementPoints(season, c), s.BonusPoints(season, c)
		standing.Alternates[i] = models.ScoredAlternate{
			ContestantName:  name,
			PlacementPoints: placement,
			BonusPoints:     bonus,
			Total:           placement + bonus,
		}
	}

	s.applySwap(roster, &standing)
	s.awardBonuses(season, roster, &standing)

	for i := range standing.Picks {
		if !standing.Picks[i].SwappedOut {
			standing.Total += standing.Picks[i].Total
		}
	}
	for i := range standing.Alternates {
		if standing.Alternates[i].SwappedIn {
			standing.Total += standing.Alternates[i].Total
		}
	}
	standing.Total += standing.WinnerBonus + standing.RunnerUpBonus

	return standing
}

// applySwap marks at most one pick swapped out and one alternate swapped
// in. The swap target is the eliminated pick with the lowest placement
// points (first in submission order on ties); picks still in the game are
// never targets, no matter how little they score. The replacement is the
// first alternate, in submission order, whose total strictly exceeds the
// target's total — an equal-scoring alternate never swaps.
func (s *ScoringService) applySwap(roster map[string]*models.Contestant, standing *models.Standing) {
	if len(standing.Alternates) == 0 {
		return
	}

	target := -1
	for i := range standing.Picks {
		if !roster[standing.Picks[i].ContestantName].IsEliminated() {
			continue
		}
		if target == -1 || standing.Picks[i].PlacementPoints < standing.Picks[target].PlacementPoints {
			target = i
		}
	}
	if target == -1 {
		return
	}

	for i := range standing.Alternates {
		if standing.Alternates[i].Total > standing.Picks[target].Total {
			standing.Picks[target].SwappedOut = true
			standing.Alternates[i].SwappedIn = true
			return
		}
	}
}

// awardBonuses grants the flat winner and runner-up bonuses when the
// active roster — picks minus the swapped-out one, plus the swapped-in
// alternate — holds the contestant who placed 1st or 2nd. Each bonus is
// awarded once per entry and only when its scoring value is non-zero.
func (s *ScoringService) awardBonuses(season *models.Season, roster map[string]*models.Contestant, standing *models.Standing) {
	winnerBonus := season.Scoring.WinnerBonus()
	runnerUpBonus := season.Scoring.RunnerUpBonus()
	if winnerBonus == 0 && runnerUpBonus == 0 {
		return
	}

	var hasWinner, hasRunnerUp bool
	check := func(name string) {
		c := roster[name]
		if c == nil || c.Placement == nil {
			return
		}
		switch *c.Placement {
		case 1:
			hasWinner = true
		case 2:
			hasRunnerUp = true
		}
	}
	for i := range standing.Picks {
		if !standing.Picks[i].SwappedOut {
			check(standing.Picks[i].ContestantName)
		}
	}
	for i := range standing.Alternates {
		if standing.Alternates[i].SwappedIn {
			check(standing.Alternates[i].ContestantName)
		}
	}

	if hasWinner && winnerBonus != 0 {
		standing.WinnerBonus = winnerBonus
	}
	if hasRunnerUp && runnerUpBonus != 0 {
		standing.RunnerUpBonus = runnerUpBonus
	}
}
