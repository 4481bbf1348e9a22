package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benson/survivor/models"
)

func standingsServiceUnderTest() (*StandingsService, *fakeContestantStore, *fakeEntryStore) {
	season := &models.Season{
		ID:              "s47",
		Name:            "Season 47",
		ContestantCount: 3,
		PicksPerPlayer:  1,
		Scoring: models.ScoringRules{
			models.ScoringKeyWinnerBonus: 5,
		},
	}
	seasons := newFakeSeasonStore(season)

	contestants := newFakeContestantStore()
	one := 1
	contestants.add("s47",
		models.Contestant{Name: "Rachel LaMont", Placement: &one},
		models.Contestant{Name: "Sam Phalen"},
	)

	entries := newFakeEntryStore()
	entries.Upsert(context.Background(), &models.Entry{
		ID: "e1", SeasonID: "s47", PlayerName: "casey",
		Picks: []string{"Rachel LaMont"}, CreatedAt: time.Now(),
	})

	return NewStandingsService(seasons, contestants, entries, NewScoringService()), contestants, entries
}

func TestGetStandings(t *testing.T) {
	ctx := context.Background()

	t.Run("computes on first read", func(t *testing.T) {
		svc, _, _ := standingsServiceUnderTest()

		page, err := svc.GetStandings(ctx, "s47")
		require.NoError(t, err)
		require.Len(t, page.Standings, 1)
		assert.Equal(t, "casey", page.Standings[0].PlayerName)
		assert.Equal(t, 8.0, page.Standings[0].Total) // 3 placement + 5 winner bonus
		assert.False(t, page.ComputedAt.IsZero())
	})

	t.Run("serves the cached page until invalidated", func(t *testing.T) {
		svc, _, entries := standingsServiceUnderTest()

		first, err := svc.GetStandings(ctx, "s47")
		require.NoError(t, err)

		// A write that sneaks past the service layer is not visible...
		entries.Upsert(ctx, &models.Entry{
			ID: "e2", SeasonID: "s47", PlayerName: "dana",
			Picks: []string{"Sam Phalen"}, CreatedAt: time.Now(),
		})
		cached, err := svc.GetStandings(ctx, "s47")
		require.NoError(t, err)
		assert.Len(t, cached.Standings, 1)
		assert.Equal(t, first.ComputedAt, cached.ComputedAt)

		// ...until the cache is dropped.
		svc.Invalidate("s47")
		fresh, err := svc.GetStandings(ctx, "s47")
		require.NoError(t, err)
		assert.Len(t, fresh.Standings, 2)
	})

	t.Run("unknown season", func(t *testing.T) {
		svc, _, _ := standingsServiceUnderTest()

		_, err := svc.GetStandings(ctx, "nope")
		var notFound *ErrSeasonNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "nope", notFound.SeasonID)
	})

	t.Run("invalidate all clears every season", func(t *testing.T) {
		svc, _, _ := standingsServiceUnderTest()

		_, err := svc.GetStandings(ctx, "s47")
		require.NoError(t, err)
		assert.Equal(t, 1, svc.CacheStats()["cached_seasons"])

		svc.InvalidateAll()
		assert.Equal(t, 0, svc.CacheStats()["cached_seasons"])
	})
}
