package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/benson/survivor/models"
)

// In-memory stand-ins for the mongo repositories, shared by the service
// tests in this package.

type fakeSeasonStore struct {
	mu      sync.Mutex
	seasons map[string]*models.Season
	err     error
}

func newFakeSeasonStore(seasons ...*models.Season) *fakeSeasonStore {
	store := &fakeSeasonStore{seasons: make(map[string]*models.Season)}
	for _, s := range seasons {
		store.seasons[s.ID] = s
	}
	return store
}

func (f *fakeSeasonStore) Upsert(_ context.Context, season *models.Season) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *season
	f.seasons[season.ID] = &copied
	return nil
}

func (f *fakeSeasonStore) FindByID(_ context.Context, id string) (*models.Season, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seasons[id], nil
}

func (f *fakeSeasonStore) FindAll(_ context.Context) ([]models.Season, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.Season, 0, len(f.seasons))
	for _, s := range f.seasons {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *fakeSeasonStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seasons, id)
	return nil
}

type fakeContestantStore struct {
	mu          sync.Mutex
	contestants map[string][]models.Contestant
	err         error
}

func newFakeContestantStore() *fakeContestantStore {
	return &fakeContestantStore{contestants: make(map[string][]models.Contestant)}
}

func (f *fakeContestantStore) add(seasonID string, contestants ...models.Contestant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range contestants {
		c.SeasonID = seasonID
		f.contestants[seasonID] = append(f.contestants[seasonID], c)
	}
}

func (f *fakeContestantStore) FindBySeason(_ context.Context, seasonID string) ([]models.Contestant, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := append([]models.Contestant(nil), f.contestants[seasonID]...)
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster, nil
}

func (f *fakeContestantStore) FindByName(_ context.Context, seasonID, name string) (*models.Contestant, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants[seasonID] {
		if f.contestants[seasonID][i].Name == name {
			copied := f.contestants[seasonID][i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeContestantStore) BulkUpsert(_ context.Context, seasonID string, contestants []models.Contestant) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range contestants {
		c.SeasonID = seasonID
		replaced := false
		for i := range f.contestants[seasonID] {
			if f.contestants[seasonID][i].Name == c.Name {
				// Mirror the real repository: a sync write never touches
				// the bonuses field.
				c.Bonuses = f.contestants[seasonID][i].Bonuses
				f.contestants[seasonID][i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			f.contestants[seasonID] = append(f.contestants[seasonID], c)
		}
	}
	return nil
}

func (f *fakeContestantStore) UpdatePlacement(_ context.Context, seasonID, name string, placement *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants[seasonID] {
		if f.contestants[seasonID][i].Name == name {
			f.contestants[seasonID][i].Placement = placement
			return nil
		}
	}
	return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
}

func (f *fakeContestantStore) IncrementBonus(_ context.Context, seasonID, name, key string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants[seasonID] {
		if f.contestants[seasonID][i].Name == name {
			f.contestants[seasonID][i].AddBonus(key, n)
			return nil
		}
	}
	return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
}

func (f *fakeContestantStore) SetBonuses(_ context.Context, seasonID, name string, bonuses map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants[seasonID] {
		if f.contestants[seasonID][i].Name == name {
			f.contestants[seasonID][i].Bonuses = bonuses
			return nil
		}
	}
	return fmt.Errorf("contestant %s not found in season %s", name, seasonID)
}

func (f *fakeContestantStore) DeleteByName(_ context.Context, seasonID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := f.contestants[seasonID]
	for i := range roster {
		if roster[i].Name == name {
			f.contestants[seasonID] = append(roster[:i], roster[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeContestantStore) DeleteBySeason(_ context.Context, seasonID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.contestants, seasonID)
	return nil
}

type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[string][]models.Entry
	err     error
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string][]models.Entry)}
}

func (f *fakeEntryStore) Upsert(_ context.Context, entry *models.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries[entry.SeasonID] {
		existing := &f.entries[entry.SeasonID][i]
		if existing.PlayerName == entry.PlayerName {
			// Mirror the real repository: _id and created_at survive.
			picks := append([]string(nil), entry.Picks...)
			alternates := append([]string(nil), entry.Alternates...)
			existing.Picks = picks
			existing.Alternates = alternates
			return nil
		}
	}
	f.entries[entry.SeasonID] = append(f.entries[entry.SeasonID], *entry)
	return nil
}

func (f *fakeEntryStore) FindBySeason(_ context.Context, seasonID string) ([]models.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := append([]models.Entry(nil), f.entries[seasonID]...)
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].PlayerName < entries[j].PlayerName
	})
	return entries, nil
}

func (f *fakeEntryStore) FindByPlayer(_ context.Context, seasonID, playerName string) (*models.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries[seasonID] {
		if f.entries[seasonID][i].PlayerName == playerName {
			copied := f.entries[seasonID][i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeEntryStore) Delete(_ context.Context, seasonID, playerName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.entries[seasonID]
	for i := range entries {
		if entries[i].PlayerName == playerName {
			f.entries[seasonID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeEntryStore) DeleteBySeason(_ context.Context, seasonID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, seasonID)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[username], nil
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.Username] = &copied
	return nil
}

// fakeInvalidator records which seasons had standings dropped.
type fakeInvalidator struct {
	mu      sync.Mutex
	seasons []string
}

func (f *fakeInvalidator) Invalidate(seasonID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seasons = append(f.seasons, seasonID)
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seasons)
}

// fakeWiki serves a fixed HTML document per page name.
type fakeWiki struct {
	pages map[string]string
	err   error
}

func (f *fakeWiki) FetchPage(_ context.Context, page string) (*goquery.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	html, ok := f.pages[page]
	if !ok {
		return nil, fmt.Errorf("wiki returned status 404 for page %s", page)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}
