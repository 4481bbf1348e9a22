package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// testApp wires real services over in-memory stores behind the same mux
// routes main registers, so these tests cover the full request path:
// routing, auth middleware, JSON mapping, and service behavior.
type testApp struct {
	router      *mux.Router
	seasons     *fakeSeasonStore
	contestants *fakeContestantStore
	entries     *fakeEntryStore
	users       *fakeUserRepo
	auth        *services.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	app := &testApp{
		seasons:     newFakeSeasonStore(),
		contestants: newFakeContestantStore(),
		entries:     newFakeEntryStore(),
		users:       newFakeUserRepo(),
	}

	engine := services.NewScoringService()
	standings := services.NewStandingsService(app.seasons, app.contestants, app.entries, engine)
	entryService := services.NewEntryService(app.entries, app.seasons, app.contestants, standings)
	seasonService := services.NewSeasonService(app.seasons, app.contestants, app.entries, standings)
	contestantService := services.NewContestantService(app.contestants, app.seasons, standings)
	app.auth = services.NewAuthService(app.users, "test-secret", time.Hour)

	tmpl := template.New("test")
	standingsHandler := NewStandingsHandler(tmpl, standings, seasonService, "")
	entryHandler := NewEntryHandler(tmpl, entryService, seasonService, contestantService)
	authHandler := NewAuthHandler(tmpl, app.auth, time.Hour)

	authMiddleware := middleware.NewAuthMiddleware(app.auth)
	admin := func(h http.HandlerFunc) http.Handler { return authMiddleware.RequireAdmin(h) }

	r := mux.NewRouter()
	r.HandleFunc("/api/login", authHandler.LoginAPI).Methods("POST")
	r.HandleFunc("/api/seasons/{id}/standings", standingsHandler.GetStandingsAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}/entries", entryHandler.ListEntriesAPI).Methods("GET")
	r.HandleFunc("/api/seasons/{id}/entries/{player}", entryHandler.GetEntryAPI).Methods("GET")
	r.HandleFunc("/api/entries", entryHandler.SubmitEntryAPI).Methods("POST")
	r.Handle("/api/seasons/{id}/entries/{player}", admin(entryHandler.DeleteEntryAPI)).Methods("DELETE")
	app.router = r
	return app
}

// seedSeason loads a small finished-enough season: eighteen slots, two
// picks and one alternate per entry, immunity bonuses, winner and
// runner-up decided.
func (app *testApp) seedSeason(t *testing.T) {
	t.Helper()

	app.seasons.add(&models.Season{
		ID:              "s48",
		Name:            "Season 48",
		ContestantCount: 18,
		PicksPerPlayer:  2,
		AlternateSlots:  1,
		Scoring: models.ScoringRules{
			"immunityWin":   1,
			"winnerBonus":   5,
			"runnerUpBonus": 2,
		},
		LockTime: time.Now().Add(24 * time.Hour),
	})
	app.contestants.add("s48",
		models.Contestant{Name: "Dee Valladares", Placement: placement(1), Bonuses: map[string]int{"immunityWin": 3}},
		models.Contestant{Name: "Austin Li Coon", Placement: placement(2)},
		models.Contestant{Name: "Jake O'Kane", Placement: placement(5)},
		models.Contestant{Name: "Drew Basile", Placement: placement(10)},
		models.Contestant{Name: "Katurah Topps"},
		models.Contestant{Name: "Julie Alley"},
	)
	app.entries.add(models.Entry{
		ID: "e1", SeasonID: "s48", PlayerName: "alice",
		Picks:     []string{"Dee Valladares", "Katurah Topps"},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	app.entries.add(models.Entry{
		ID: "e2", SeasonID: "s48", PlayerName: "bob",
		Picks:     []string{"Austin Li Coon", "Drew Basile"},
		CreatedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	})
}

func (app *testApp) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func (app *testApp) adminHeader(t *testing.T) http.Header {
	t.Helper()

	user := &models.User{Username: "admin"}
	require.NoError(t, user.HashPassword("hunter2"))
	require.NoError(t, app.users.Upsert(context.Background(), user))

	token, err := app.auth.GenerateToken(user)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestGetStandingsAPI(t *testing.T) {
	app := newTestApp(t)
	app.seedSeason(t)

	t.Run("returns ranked standings", func(t *testing.T) {
		w := app.do("GET", "/api/seasons/s48/standings", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

		var page models.StandingsPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		require.Len(t, page.Standings, 2)

		// bob: Austin 17 + runner-up 2, Drew 9 = 28.
		// alice: Dee 18 + 3 immunity + winner 5, Katurah 0 = 26.
		assert.Equal(t, "bob", page.Standings[0].PlayerName)
		assert.Equal(t, 28.0, page.Standings[0].Total)
		assert.Equal(t, "alice", page.Standings[1].PlayerName)
		assert.Equal(t, 26.0, page.Standings[1].Total)
		assert.Equal(t, 5.0, page.Standings[1].WinnerBonus)
		assert.Equal(t, 2.0, page.Standings[0].RunnerUpBonus)
	})

	t.Run("unknown season is 404", func(t *testing.T) {
		w := app.do("GET", "/api/seasons/nope/standings", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubmitEntryAPI(t *testing.T) {
	app := newTestApp(t)
	app.seedSeason(t)

	t.Run("accepts picks in any casing", func(t *testing.T) {
		body := `{"seasonId":"s48","name":"carol","picks":["dee valladares","JAKE O'KANE"],"alternates":["julie alley"]}`
		w := app.do("POST", "/api/entries", body, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var entry models.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
		assert.Equal(t, "carol", entry.PlayerName)
		assert.Equal(t, []string{"Dee Valladares", "Jake O'Kane"}, entry.Picks)
		assert.Equal(t, []string{"Julie Alley"}, entry.Alternates)
	})

	t.Run("resubmission replaces the stored entry", func(t *testing.T) {
		body := `{"seasonId":"s48","name":"carol","picks":["Katurah Topps","Drew Basile"]}`
		w := app.do("POST", "/api/entries", body, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = app.do("GET", "/api/seasons/s48/entries/carol", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entry models.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
		assert.Equal(t, []string{"Katurah Topps", "Drew Basile"}, entry.Picks)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		w := app.do("POST", "/api/entries", `{"seasonId":`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown contestant is 400 with the bad name", func(t *testing.T) {
		body := `{"seasonId":"s48","name":"dave","picks":["Dee Valladares","Nobody Real"]}`
		w := app.do("POST", "/api/entries", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Nobody Real")
	})

	t.Run("wrong pick count is 400", func(t *testing.T) {
		body := `{"seasonId":"s48","name":"dave","picks":["Dee Valladares"]}`
		w := app.do("POST", "/api/entries", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown season is 404", func(t *testing.T) {
		body := `{"seasonId":"nope","name":"dave","picks":["Dee Valladares","Katurah Topps"]}`
		w := app.do("POST", "/api/entries", body, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("locked season is 409", func(t *testing.T) {
		app.seasons.add(&models.Season{
			ID: "s47", Name: "Season 47",
			ContestantCount: 18, PicksPerPlayer: 1,
			LockTime: time.Now().Add(-time.Hour),
		})
		app.contestants.add("s47", models.Contestant{Name: "Kenzie Petty"})

		body := `{"seasonId":"s47","name":"dave","picks":["Kenzie Petty"]}`
		w := app.do("POST", "/api/entries", body, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestEntryLookupAndDelete(t *testing.T) {
	app := newTestApp(t)
	app.seedSeason(t)

	t.Run("list keeps submission order", func(t *testing.T) {
		w := app.do("GET", "/api/seasons/s48/entries", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var entries []models.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].PlayerName)
		assert.Equal(t, "bob", entries[1].PlayerName)
	})

	t.Run("missing player is 404", func(t *testing.T) {
		w := app.do("GET", "/api/seasons/s48/entries/nobody", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete requires a token", func(t *testing.T) {
		w := app.do("DELETE", "/api/seasons/s48/entries/alice", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		bad := http.Header{"Authorization": {"Bearer not-a-token"}}
		w = app.do("DELETE", "/api/seasons/s48/entries/alice", "", bad)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("delete with a valid token removes the entry", func(t *testing.T) {
		header := app.adminHeader(t)
		w := app.do("DELETE", "/api/seasons/s48/entries/alice", "", header)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = app.do("GET", "/api/seasons/s48/entries/alice", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLoginAPI(t *testing.T) {
	app := newTestApp(t)

	user := &models.User{Username: "admin"}
	require.NoError(t, user.HashPassword("hunter2"))
	require.NoError(t, app.users.Upsert(context.Background(), user))

	t.Run("valid credentials return a token", func(t *testing.T) {
		w := app.do("POST", "/api/login", `{"username":"admin","password":"hunter2"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "admin", resp.Username)
		assert.NotEmpty(t, resp.Token)

		// The issued token must pass the middleware it was made for.
		header := http.Header{"Authorization": {"Bearer " + resp.Token}}
		app.seedSeason(t)
		del := app.do("DELETE", "/api/seasons/s48/entries/bob", "", header)
		assert.Equal(t, http.StatusNoContent, del.Code)
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		w := app.do("POST", "/api/login", `{"username":"admin","password":"wrong"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user gets the same 401", func(t *testing.T) {
		w := app.do("POST", "/api/login", `{"username":"ghost","password":"hunter2"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		w := app.do("POST", "/api/login", `{"username":"admin"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func(context.Context) error { return nil }))
		w := httptest.NewRecorder()
		h.Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok"`)
	})

	t.Run("unreachable database", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("no reachable servers") }))
		w := httptest.NewRecorder()
		h.Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "degraded")
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"season not found", &services.ErrSeasonNotFound{SeasonID: "x"}, http.StatusNotFound},
		{"wrapped season not found", fmt.Errorf("loading: %w", &services.ErrSeasonNotFound{SeasonID: "x"}), http.StatusNotFound},
		{"contestant not found", services.ErrContestantNotFound, http.StatusNotFound},
		{"locked", services.ErrSeasonLocked, http.StatusConflict},
		{"wrapped locked", fmt.Errorf("%w: closed yesterday", services.ErrSeasonLocked), http.StatusConflict},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unknown contestant", services.ErrUnknownContestant, http.StatusBadRequest},
		{"duplicate contestant", services.ErrDuplicateContestant, http.StatusBadRequest},
		{"pick count", services.ErrPickCount, http.StatusBadRequest},
		{"alternate count", services.ErrAlternateCount, http.StatusBadRequest},
		{"invalid season", services.ErrInvalidSeason, http.StatusBadRequest},
		{"invalid placement", services.ErrInvalidPlacement, http.StatusBadRequest},
		{"unknown bonus key", services.ErrUnknownBonusKey, http.StatusBadRequest},
		{"no wiki page", services.ErrNoWikiPage, http.StatusBadRequest},
		{"no roster table", services.ErrNoRosterTable, http.StatusBadGateway},
		{"anything else", errors.New("mongo exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Dee", []string{"Dee"}},
		{"Dee, Eve,", []string{"Dee", "Eve"}},
		{" a ,, b ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCSV(tt.in), "splitCSV(%q)", tt.in)
	}
}

// In-memory stores shared by the handler tests. They mirror the sort and
// upsert behavior of the mongo repositories closely enough for routing
// and status-code coverage.

type fakeSeasonStore struct {
	mu      sync.Mutex
	seasons map[string]*models.Season
}

func newFakeSeasonStore() *fakeSeasonStore {
	return &fakeSeasonStore{seasons: make(map[string]*models.Season)}
}

func (f *fakeSeasonStore) add(season *models.Season) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seasons[season.ID] = season
}

func (f *fakeSeasonStore) Upsert(_ context.Context, season *models.Season) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *season
	f.seasons[season.ID] = &copied
	return nil
}

func (f *fakeSeasonStore) FindByID(_ context.Context, id string) (*models.Season, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seasons[id], nil
}

func (f *fakeSeasonStore) FindAll(_ context.Context) ([]models.Season, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.Season, 0, len(f.seasons))
	for _, s := range f.seasons {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
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
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Contestant(nil), f.contestants[seasonID]...), nil
}

func (f *fakeContestantStore) FindByName(_ context.Context, seasonID, name string) (*models.Contestant, error) {
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contestants[seasonID] = append([]models.Contestant(nil), contestants...)
	return nil
}

func (f *fakeContestantStore) UpdatePlacement(_ context.Context, seasonID, name string, p *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contestants[seasonID] {
		if f.contestants[seasonID][i].Name == name {
			f.contestants[seasonID][i].Placement = p
			return nil
		}
	}
	return fmt.Errorf("contestant %s not found", name)
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
	return fmt.Errorf("contestant %s not found", name)
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
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string][]models.Entry)}
}

func (f *fakeEntryStore) add(entry models.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.SeasonID] = append(f.entries[entry.SeasonID], entry)
}

func (f *fakeEntryStore) Upsert(_ context.Context, entry *models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries[entry.SeasonID] {
		existing := &f.entries[entry.SeasonID][i]
		if existing.PlayerName == entry.PlayerName {
			existing.Picks = append([]string(nil), entry.Picks...)
			existing.Alternates = append([]string(nil), entry.Alternates...)
			return nil
		}
	}
	f.entries[entry.SeasonID] = append(f.entries[entry.SeasonID], *entry)
	return nil
}

func (f *fakeEntryStore) FindBySeason(_ context.Context, seasonID string) ([]models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := append([]models.Entry(nil), f.entries[seasonID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (f *fakeEntryStore) FindByPlayer(_ context.Context, seasonID, playerName string) (*models.Entry, error) {
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

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func placement(n int) *int { return &n }
