package models

import "time"

// ScoredPick is one pick's itemized contribution to a standing. A pick
// that was swapped out keeps its breakdown for display but contributes
// nothing to the total.
type ScoredPick struct {
	ContestantName  string  `json:"contestantName"`
	PlacementPoints float64 `json:"placementPoints"`
	BonusPoints     float64 `json:"bonusPoints"`
	Total           float64 `json:"total"`
	SwappedOut      bool    `json:"swappedOut"`
}

// ScoredAlternate is one alternate's itemized breakdown. Only a swapped-in
// alternate contributes to the total.
type ScoredAlternate struct {
	ContestantName  string  `json:"contestantName"`
	PlacementPoints float64 `json:"placementPoints"`
	BonusPoints     float64 `json:"bonusPoints"`
	Total           float64 `json:"total"`
	SwappedIn       bool    `json:"swappedIn"`
}

// Standing is one player's fully itemized score. Standings are derived
// output of the scoring engine, never persisted; the slice the engine
// returns is already in final ranked order.
type Standing struct {
	PlayerName    string            `json:"name"`
	Picks         []ScoredPick      `json:"picks"`
	Alternates    []ScoredAlternate `json:"alternates"`
	WinnerBonus   float64           `json:"winnerBonusAwarded"`
	RunnerUpBonus float64           `json:"runnerUpBonusAwarded"`
	Total         float64           `json:"total"`
}

// SwapApplied reports whether this standing includes the one-time
// alternate swap.
func (s Standing) SwapApplied() bool {
	for i := range s.Alternates {
		if s.Alternates[i].SwappedIn {
			return true
		}
	}
	return false
}

// StandingsPage is the assembled standings response for one season: the
// season config alongside the ranked standings and the snapshot time they
// were computed from.
type StandingsPage struct {
	Season     *Season    `json:"season"`
	Standings  []Standing `json:"standings"`
	ComputedAt time.Time  `json:"computedAt"`
}

// Rank returns the 1-based display rank for the standing at index i.
// Tied totals share the higher rank, so two players at 12 points both
// show 3rd and the next player shows 5th.
func (p *StandingsPage) Rank(i int) int {
	rank := i + 1
	for i > 0 && p.Standings[i].Total == p.Standings[i-1].Total {
		i--
		rank = i + 1
	}
	return rank
}

// StatusClass returns the CSS class for a pick row.
func (p ScoredPick) StatusClass() string {
	if p.SwappedOut {
		return "swapped-out"
	}
	return "active-pick"
}

// StatusClass returns the CSS class for an alternate row.
func (a ScoredAlternate) StatusClass() string {
	if a.SwappedIn {
		return "swapped-in"
	}
	return "bench"
}
