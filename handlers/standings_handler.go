package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// StandingsHandler renders the standings board and serves the standings
// API. The board is the app's front page.
type StandingsHandler struct {
	templates     *template.Template
	standings     *services.StandingsService
	seasons       *services.SeasonService
	defaultSeason string
	logger        *logging.Logger
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(templates *template.Template, standings *services.StandingsService, seasons *services.SeasonService, defaultSeason string) *StandingsHandler {
	return &StandingsHandler{
		templates:     templates,
		standings:     standings,
		seasons:       seasons,
		defaultSeason: defaultSeason,
		logger:        logging.WithPrefix("StandingsHandler"),
	}
}

// Home renders the standings board for the default season, falling back
// to the newest season when none is configured.
func (h *StandingsHandler) Home(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasons.ListSeasons(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list seasons: %v", err)
		http.Error(w, "Unable to load seasons", http.StatusInternalServerError)
		return
	}

	seasonID := h.defaultSeason
	if seasonID == "" && len(seasons) > 0 {
		// FindAll returns newest first.
		seasonID = seasons[0].ID
	}
	if seasonID == "" {
		h.render(w, r, seasons, nil)
		return
	}
	http.Redirect(w, r, "/seasons/"+seasonID, http.StatusSeeOther)
}

// StandingsPage renders the standings board for one season.
func (h *StandingsHandler) StandingsPage(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	seasons, err := h.seasons.ListSeasons(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list seasons: %v", err)
		http.Error(w, "Unable to load seasons", http.StatusInternalServerError)
		return
	}

	page, err := h.standings.GetStandings(r.Context(), seasonID)
	if err != nil {
		var notFound *services.ErrSeasonNotFound
		if errors.As(err, &notFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Errorf("Failed to load standings for %s: %v", seasonID, err)
		http.Error(w, "Unable to load standings", http.StatusInternalServerError)
		return
	}

	h.render(w, r, seasons, page)
}

func (h *StandingsHandler) render(w http.ResponseWriter, r *http.Request, seasons []models.Season, page *models.StandingsPage) {
	title := "Standings"
	if page != nil {
		title = page.Season.Name + " Standings"
	}
	data := struct {
		Title   string
		Seasons []models.Season
		Page    *models.StandingsPage
		IsAdmin bool
		Success string
	}{
		Title:   title,
		Seasons: seasons,
		Page:    page,
		IsAdmin: middleware.IsAuthenticated(r),
		Success: r.URL.Query().Get("success"),
	}

	if err := h.templates.ExecuteTemplate(w, "standings.html", data); err != nil {
		h.logger.Errorf("Template error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetStandingsAPI handles GET /api/seasons/{id}/standings.
func (h *StandingsHandler) GetStandingsAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	page, err := h.standings.GetStandings(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// RecomputeAPI handles POST /api/seasons/{id}/standings/recompute, an
// admin escape hatch that bypasses the cache.
func (h *StandingsHandler) RecomputeAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	page, err := h.standings.Recompute(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
