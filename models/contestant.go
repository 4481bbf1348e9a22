package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contestant is one member of a season's roster. Name is the identity key
// within a season; Placement stays nil until the contestant is out of the
// game (1 = winner, contestantCount = first voted out).
type Contestant struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SeasonID  string             `bson:"season_id" json:"seasonId"`
	Name      string             `bson:"name" json:"name"`
	Tribe     string             `bson:"tribe,omitempty" json:"tribe,omitempty"`
	Placement *int               `bson:"placement,omitempty" json:"placement"`
	Bonuses   map[string]int     `bson:"bonuses,omitempty" json:"bonuses,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// IsEliminated reports whether the contestant has a final placement.
// Contestants still in the game never qualify as swap targets.
func (c *Contestant) IsEliminated() bool {
	return c != nil && c.Placement != nil
}

// BonusCount returns the tallied occurrences for a bonus event key.
func (c *Contestant) BonusCount(key string) int {
	if c == nil || c.Bonuses == nil {
		return 0
	}
	return c.Bonuses[key]
}

// AddBonus increments a bonus event tally by n (n may be negative for an
// admin correction; the tally never drops below zero).
func (c *Contestant) AddBonus(key string, n int) {
	if c.Bonuses == nil {
		c.Bonuses = make(map[string]int)
	}
	c.Bonuses[key] += n
	if c.Bonuses[key] <= 0 {
		delete(c.Bonuses, key)
	}
}

// SetPlacement records a final placement. Passing nil puts the contestant
// back in the game (admin correction of a bad sync).
func (c *Contestant) SetPlacement(placement *int) {
	c.Placement = placement
	c.UpdatedAt = time.Now()
}

// PlacementLabel renders the placement for display: "Winner", "Runner-up",
// "5th", or "In the game" while the placement is unknown.
func (c *Contestant) PlacementLabel() string {
	if c == nil || c.Placement == nil {
		return "In the game"
	}
	switch *c.Placement {
	case 1:
		return "Winner"
	case 2:
		return "Runner-up"
	default:
		return ordinal(*c.Placement)
	}
}

// ordinal formats 3 -> "3rd", 11 -> "11th", 22 -> "22nd".
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
