package models

import (
	"strings"
	"time"
)

// Entry is one player's submission for a season: an ordered pick list and
// an ordered alternate list. Order matters — it is the tiebreak for swap
// target selection and the scan order for swap candidates. PlayerName is
// unique per season; re-submitting replaces the previous entry.
type Entry struct {
	ID         string    `bson:"_id" json:"id"`
	SeasonID   string    `bson:"season_id" json:"seasonId"`
	PlayerName string    `bson:"player_name" json:"name"`
	Picks      []string  `bson:"picks" json:"picks"`
	Alternates []string  `bson:"alternates,omitempty" json:"alternates,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// EntryRequest is the submission payload accepted from the pick form and
// the JSON API, before intake validation resolves it into an Entry.
type EntryRequest struct {
	SeasonID   string   `json:"seasonId" validate:"required"`
	PlayerName string   `json:"name" validate:"required,max=64"`
	Picks      []string `json:"picks" validate:"required,min=1,dive,required"`
	Alternates []string `json:"alternates" validate:"omitempty,dive,required"`
}

// Normalize trims surrounding whitespace from every name in the request.
func (r *EntryRequest) Normalize() {
	r.PlayerName = strings.TrimSpace(r.PlayerName)
	for i := range r.Picks {
		r.Picks[i] = strings.TrimSpace(r.Picks[i])
	}
	for i := range r.Alternates {
		r.Alternates[i] = strings.TrimSpace(r.Alternates[i])
	}
}

// HasAlternates reports whether the entry submitted any alternates at all.
func (e *Entry) HasAlternates() bool {
	return len(e.Alternates) > 0
}
