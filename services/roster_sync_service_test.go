package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benson/survivor/models"
)

const syncPageHTML = `<html><body><table>
<tr><th>Castaway</th><th>Tribe</th><th>Finish</th></tr>
<tr><td>Rachel LaMont</td><td>Gata</td><td>Sole Survivor</td></tr>
<tr><td>Sam Phalen</td><td>Gata</td><td>Runner-Up</td></tr>
<tr><td>Sue Smey</td><td>Lavo</td><td>3rd</td></tr>
</table></body></html>`

func syncServiceUnderTest(season *models.Season, html string) (*RosterSyncService, *fakeContestantStore, *fakeInvalidator) {
	seasons := newFakeSeasonStore(season)
	contestants := newFakeContestantStore()
	invalidator := &fakeInvalidator{}
	wiki := &fakeWiki{pages: map[string]string{season.WikiPage: html}}
	return NewRosterSyncService(wiki, seasons, contestants, invalidator), contestants, invalidator
}

func wikiSeason() *models.Season {
	return &models.Season{
		ID:              "s47",
		Name:            "Season 47",
		ContestantCount: 3,
		PicksPerPlayer:  1,
		WikiPage:        "Survivor_47",
	}
}

func TestSyncSeason(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the roster on first sync", func(t *testing.T) {
		svc, contestants, invalidator := syncServiceUnderTest(wikiSeason(), syncPageHTML)

		report, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		assert.Equal(t, 3, report.Parsed)
		assert.Equal(t, 3, report.Created)
		assert.Equal(t, 0, report.Updated)
		assert.Equal(t, 3, report.PlacementsSet)
		assert.Equal(t, 1, invalidator.count())

		roster, err := contestants.FindBySeason(ctx, "s47")
		require.NoError(t, err)
		require.Len(t, roster, 3)
	})

	t.Run("second sync with no changes writes nothing", func(t *testing.T) {
		svc, _, invalidator := syncServiceUnderTest(wikiSeason(), syncPageHTML)

		_, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		report, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		assert.Equal(t, 0, report.Created)
		assert.Equal(t, 0, report.Updated)
		assert.Equal(t, 1, invalidator.count(), "a no-op sync must not invalidate standings")
	})

	t.Run("wiki respellings keep the stored name", func(t *testing.T) {
		svc, contestants, _ := syncServiceUnderTest(wikiSeason(), syncPageHTML)
		contestants.add("s47", models.Contestant{Name: "Rachael LaMont"}) // stored with a typo

		report, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		require.Len(t, report.FuzzyMatches, 1)
		assert.Equal(t, "Rachel LaMont", report.FuzzyMatches[0].WikiName)
		assert.Equal(t, "Rachael LaMont", report.FuzzyMatches[0].RosterName)

		stored, err := contestants.FindByName(ctx, "s47", "Rachael LaMont")
		require.NoError(t, err)
		require.NotNil(t, stored, "the stored spelling must survive the sync")
		require.NotNil(t, stored.Placement)
		assert.Equal(t, 1, *stored.Placement)

		ghost, err := contestants.FindByName(ctx, "s47", "Rachel LaMont")
		require.NoError(t, err)
		assert.Nil(t, ghost, "the wiki spelling must not create a duplicate")
	})

	t.Run("sync does not clobber bonus tallies", func(t *testing.T) {
		svc, contestants, _ := syncServiceUnderTest(wikiSeason(), syncPageHTML)
		contestants.add("s47", models.Contestant{
			Name:    "Sue Smey",
			Bonuses: map[string]int{"immunity": 2},
		})

		_, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		stored, err := contestants.FindByName(ctx, "s47", "Sue Smey")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, 2, stored.Bonuses["immunity"])
		require.NotNil(t, stored.Placement)
		assert.Equal(t, 3, *stored.Placement)
	})

	t.Run("episode tables surface detected events without writing tallies", func(t *testing.T) {
		html := `<html><body>
<table>
<tr><th>Castaway</th><th>Tribe</th><th>Finish</th></tr>
<tr><td>Rachel LaMont</td><td>Gata</td><td>Sole Survivor</td></tr>
<tr><td>Sam Phalen</td><td>Gata</td><td>Runner-Up</td></tr>
<tr><td>Sue Smey</td><td>Lavo</td><td>3rd</td></tr>
</table>
<table>
<tr><th>Episode</th><th>Reward</th><th>Immunity</th></tr>
<tr><th>1</th><td>None</td><td>Gata</td></tr>
<tr><th>2</th><td>Sue Smey</td><td>Rachel LaMont</td></tr>
<tr><th>3</th><td>Sam Phalen,
Sue Smey</td><td>Rachel LaMont</td></tr>
<tr><th>4</th><td>Sam Phelan</td><td>—</td></tr>
</table>
</body></html>`
		svc, contestants, _ := syncServiceUnderTest(wikiSeason(), html)

		report, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		// "Gata" is a tribe and matches no contestant; "Sam Phelan" is a
		// wiki typo that reconciles to Sam Phalen.
		require.Len(t, report.DetectedEvents, 3)
		assert.Equal(t, DetectedEvent{RosterName: "Rachel LaMont", Key: EventIndividualImmunity, Count: 2}, report.DetectedEvents[0])
		assert.Equal(t, DetectedEvent{RosterName: "Sam Phalen", Key: EventReward, Count: 2}, report.DetectedEvents[1])
		assert.Equal(t, DetectedEvent{RosterName: "Sue Smey", Key: EventReward, Count: 2}, report.DetectedEvents[2])

		stored, err := contestants.FindByName(ctx, "s47", "Rachel LaMont")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Empty(t, stored.Bonuses, "bonus tallies stay admin-recorded")
	})

	t.Run("out-of-range placements are dropped", func(t *testing.T) {
		html := `<html><body><table>
<tr><th>Castaway</th><th>Finish</th></tr>
<tr><td>Alpha</td><td>99th</td></tr>
<tr><td>Beta</td><td>2nd</td></tr>
</table></body></html>`
		svc, contestants, _ := syncServiceUnderTest(wikiSeason(), html)

		_, err := svc.SyncSeason(ctx, "s47")
		require.NoError(t, err)

		stored, err := contestants.FindByName(ctx, "s47", "Alpha")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Nil(t, stored.Placement)
	})

	t.Run("fails cleanly without a wiki page", func(t *testing.T) {
		season := wikiSeason()
		season.WikiPage = ""
		svc, _, _ := syncServiceUnderTest(season, syncPageHTML)

		_, err := svc.SyncSeason(ctx, "s47")
		assert.ErrorIs(t, err, ErrNoWikiPage)
	})

	t.Run("unknown season", func(t *testing.T) {
		svc, _, _ := syncServiceUnderTest(wikiSeason(), syncPageHTML)

		_, err := svc.SyncSeason(ctx, "nope")
		var notFound *ErrSeasonNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()

	withPage := wikiSeason()
	withoutPage := &models.Season{ID: "s46", Name: "Season 46", ContestantCount: 3}
	broken := &models.Season{ID: "s45", Name: "Season 45", ContestantCount: 3, WikiPage: "Missing_Page"}

	seasons := newFakeSeasonStore(withPage, withoutPage, broken)
	contestants := newFakeContestantStore()
	invalidator := &fakeInvalidator{}
	wiki := &fakeWiki{pages: map[string]string{"Survivor_47": syncPageHTML}}
	svc := NewRosterSyncService(wiki, seasons, contestants, invalidator)

	reports := svc.SyncAll(ctx)

	// Only the season with a working page reports; the broken one logs
	// and is skipped, the pageless one is never attempted.
	require.Len(t, reports, 1)
	assert.Equal(t, "s47", reports[0].SeasonID)
}
