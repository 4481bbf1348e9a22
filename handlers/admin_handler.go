package handlers

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// AdminHandler serves the admin dashboard and the roster and scoring
// write endpoints. Everything here sits behind RequireAdmin.
type AdminHandler struct {
	templates   *template.Template
	seasons     *services.SeasonService
	contestants *services.ContestantService
	entries     *services.EntryService
	sync        *services.RosterSyncService
	standings   *services.StandingsService
	logger      *logging.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(templates *template.Template, seasons *services.SeasonService, contestants *services.ContestantService, entries *services.EntryService, sync *services.RosterSyncService, standings *services.StandingsService) *AdminHandler {
	return &AdminHandler{
		templates:   templates,
		seasons:     seasons,
		contestants: contestants,
		entries:     entries,
		sync:        sync,
		standings:   standings,
		logger:      logging.WithPrefix("AdminHandler"),
	}
}

// AdminPage renders the admin dashboard: season picker, roster with
// placements and bonus tallies, and entries.
func (h *AdminHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasons.ListSeasons(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to list seasons: %v", err)
		http.Error(w, "Unable to load seasons", http.StatusInternalServerError)
		return
	}

	seasonID := r.URL.Query().Get("season")
	if seasonID == "" && len(seasons) > 0 {
		seasonID = seasons[0].ID
	}

	var (
		season  *models.Season
		roster  []models.Contestant
		entries []models.Entry
	)
	if seasonID != "" {
		season, err = h.seasons.GetSeason(r.Context(), seasonID)
		if err != nil {
			h.logger.Errorf("Failed to load season %s: %v", seasonID, err)
		}
		roster, err = h.contestants.GetRoster(r.Context(), seasonID)
		if err != nil {
			h.logger.Errorf("Failed to load roster for %s: %v", seasonID, err)
		}
		entries, err = h.entries.ListEntries(r.Context(), seasonID)
		if err != nil {
			h.logger.Errorf("Failed to load entries for %s: %v", seasonID, err)
		}
	}

	data := struct {
		Title      string
		User       *models.User
		Seasons    []models.Season
		Season     *models.Season
		Roster     []models.Contestant
		Entries    []models.Entry
		CacheStats map[string]interface{}
		Error      string
		Success    string
	}{
		Title:      "Pool Admin",
		User:       middleware.GetUserFromContext(r),
		Seasons:    seasons,
		Season:     season,
		Roster:     roster,
		Entries:    entries,
		CacheStats: h.standings.CacheStats(),
		Error:      r.URL.Query().Get("error"),
		Success:    r.URL.Query().Get("success"),
	}

	if err := h.templates.ExecuteTemplate(w, "admin.html", data); err != nil {
		h.logger.Errorf("Template error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ReplaceRosterAPI handles PUT /api/seasons/{id}/roster with a JSON body
// of {"names": ["Rachel LaMont", ...]}.
func (h *AdminHandler) ReplaceRosterAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	var req struct {
		Names []string `json:"names"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.contestants.ReplaceRoster(r.Context(), seasonID, req.Names); err != nil {
		writeError(w, h.logger, err)
		return
	}

	roster, err := h.contestants.GetRoster(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Infof("Admin %s replaced season %s roster (%d names)", adminName(r), seasonID, len(roster))
	writeJSON(w, http.StatusOK, roster)
}

// SetPlacementAPI handles PUT /api/seasons/{id}/contestants/{name}/placement
// with a JSON body of {"placement": 3}. A null placement clears it.
func (h *AdminHandler) SetPlacementAPI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Placement *int `json:"placement"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.contestants.SetPlacement(r.Context(), vars["id"], vars["name"], req.Placement); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordBonusAPI handles POST /api/seasons/{id}/contestants/{name}/bonus
// with a JSON body of {"event": "individualImmunity", "count": 1}. A
// missing count means one occurrence; negative counts correct mistakes.
func (h *AdminHandler) RecordBonusAPI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Event string `json:"event"`
		Count *int   `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	count := 1
	if req.Count != nil {
		count = *req.Count
	}

	if err := h.contestants.RecordBonus(r.Context(), vars["id"], vars["name"], req.Event, count); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncSeasonAPI handles POST /api/seasons/{id}/sync, pulling the season's
// roster from its wiki page right now.
func (h *AdminHandler) SyncSeasonAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	report, err := h.sync.SyncSeason(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Infof("Admin %s triggered sync for season %s", adminName(r), seasonID)
	writeJSON(w, http.StatusOK, report)
}

// SyncAllAPI handles POST /api/sync, syncing every season with a wiki page.
func (h *AdminHandler) SyncAllAPI(w http.ResponseWriter, r *http.Request) {
	reports := h.sync.SyncAll(r.Context())
	h.logger.Infof("Admin %s triggered sync for all seasons (%d synced)", adminName(r), len(reports))
	writeJSON(w, http.StatusOK, reports)
}

// CacheStatsAPI handles GET /api/admin/cache.
func (h *AdminHandler) CacheStatsAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.standings.CacheStats())
}
