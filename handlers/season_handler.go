package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// SeasonHandler serves season configuration over the API. Reads are
// public; writes are admin-gated at the router.
type SeasonHandler struct {
	seasons     *services.SeasonService
	contestants *services.ContestantService
	logger      *logging.Logger
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(seasons *services.SeasonService, contestants *services.ContestantService) *SeasonHandler {
	return &SeasonHandler{
		seasons:     seasons,
		contestants: contestants,
		logger:      logging.WithPrefix("SeasonHandler"),
	}
}

// ListSeasonsAPI handles GET /api/seasons.
func (h *SeasonHandler) ListSeasonsAPI(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasons.ListSeasons(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

// GetSeasonAPI handles GET /api/seasons/{id}, returning the season config
// together with its roster.
func (h *SeasonHandler) GetSeasonAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	season, err := h.seasons.GetSeason(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if season == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "season not found"})
		return
	}

	roster, err := h.contestants.GetRoster(r.Context(), seasonID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Season *models.Season      `json:"season"`
		Roster []models.Contestant `json:"roster"`
	}{season, roster})
}

// SaveSeasonAPI handles PUT /api/seasons/{id}. The path ID wins over
// whatever the body says.
func (h *SeasonHandler) SaveSeasonAPI(w http.ResponseWriter, r *http.Request) {
	var season models.Season
	if err := decodeJSON(r, &season); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	season.ID = mux.Vars(r)["id"]

	if err := h.seasons.SaveSeason(r.Context(), &season); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Infof("Admin %s saved season %s", adminName(r), season.ID)
	writeJSON(w, http.StatusOK, season)
}

// DeleteSeasonAPI handles DELETE /api/seasons/{id}.
func (h *SeasonHandler) DeleteSeasonAPI(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]
	if err := h.seasons.DeleteSeason(r.Context(), seasonID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Infof("Admin %s deleted season %s", adminName(r), seasonID)
	w.WriteHeader(http.StatusNoContent)
}
