package models

import (
	"sort"
	"time"
)

// Reserved scoring keys. Everything else in a season's scoring map is a
// bonus event key worth its value per occurrence.
const (
	ScoringKeyWinnerBonus   = "winnerBonus"
	ScoringKeyRunnerUpBonus = "runnerUpBonus"
)

// ScoringRules maps bonus event keys to points per occurrence. The two
// reserved keys hold the flat winner/runner-up pick bonuses.
type ScoringRules map[string]float64

// Value returns the configured points for an event key, or 0 when the key
// is not configured. Unknown keys scoring zero is what keeps old bonus
// tallies harmless after a scoring config change.
func (r ScoringRules) Value(key string) float64 {
	if r == nil {
		return 0
	}
	return r[key]
}

// WinnerBonus returns the flat bonus for having the winner on the active
// roster, 0 when unconfigured.
func (r ScoringRules) WinnerBonus() float64 {
	return r.Value(ScoringKeyWinnerBonus)
}

// RunnerUpBonus returns the flat bonus for having the runner-up on the
// active roster, 0 when unconfigured.
func (r ScoringRules) RunnerUpBonus() float64 {
	return r.Value(ScoringKeyRunnerUpBonus)
}

// EventKeys returns the configured bonus event keys excluding the reserved
// winner/runner-up bonuses, for building admin forms and pick pages.
func (r ScoringRules) EventKeys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		if key == ScoringKeyWinnerBonus || key == ScoringKeyRunnerUpBonus {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Season is the configuration for one pool. It is immutable input to the
// scoring engine; the admin API is the only writer.
type Season struct {
	ID              string       `bson:"_id" json:"id"`
	Name            string       `bson:"name" json:"name"`
	ContestantCount int          `bson:"contestant_count" json:"contestantCount"`
	PicksPerPlayer  int          `bson:"picks_per_player" json:"picksPerPlayer"`
	AlternateSlots  int          `bson:"alternate_slots" json:"alternates"`
	Scoring         ScoringRules `bson:"scoring" json:"scoring"`
	LockTime        time.Time    `bson:"lock_time" json:"lockTime"`
	WikiPage        string       `bson:"wiki_page,omitempty" json:"wikiPage,omitempty"`
	CreatedAt       time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updated_at" json:"updatedAt"`
}

// IsLocked reports whether the submission deadline has passed.
func (s *Season) IsLocked(now time.Time) bool {
	return !s.LockTime.IsZero() && now.After(s.LockTime)
}
