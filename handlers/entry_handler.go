package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// EntryHandler handles the pick form and the entry API.
type EntryHandler struct {
	templates   *template.Template
	entries     *services.EntryService
	seasons     *services.SeasonService
	contestants *services.ContestantService
	logger      *logging.Logger
}

// NewEntryHandler creates a new entry handler.
func NewEntryHandler(templates *template.Template, entries *services.EntryService, seasons *services.SeasonService, contestants *services.ContestantService) *EntryHandler {
	return &EntryHandler{
		templates:   templates,
		entries:     entries,
		seasons:     seasons,
		contestants: contestants,
		logger:      logging.WithPrefix("EntryHandler"),
	}
}

// PickForm renders the entry form for a season. When ?player= names an
// existing entry, the form shows their current picks for editing.
func (h *EntryHandler) PickForm(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	season, err := h.seasons.GetSeason(r.Context(), seasonID)
	if err != nil {
		h.logger.Errorf("Failed to load season %s: %v", seasonID, err)
		http.Error(w, "Unable to load season", http.StatusInternalServerError)
		return
	}
	if season == nil {
		http.NotFound(w, r)
		return
	}

	roster, err := h.contestants.GetRoster(r.Context(), seasonID)
	if err != nil {
		h.logger.Errorf("Failed to load roster for %s: %v", seasonID, err)
		http.Error(w, "Unable to load roster", http.StatusInternalServerError)
		return
	}

	var entry *models.Entry
	if player := r.URL.Query().Get("player"); player != "" {
		entry, err = h.entries.GetEntry(r.Context(), seasonID, player)
		if err != nil {
			h.logger.Errorf("Failed to load entry for %s/%s: %v", seasonID, player, err)
		}
	}

	data := struct {
		Title   string
		Season  *models.Season
		Roster  []models.Contestant
		Entry   *models.Entry
		Player  string
		Locked  bool
		Error   string
		IsAdmin bool
	}{
		Title:   season.Name + " Picks",
		Season:  season,
		Roster:  roster,
		Entry:   entry,
		Player:  r.URL.Query().Get("player"),
		Locked:  season.IsLocked(time.Now()),
		Error:   r.URL.Query().Get("error"),
		IsAdmin: middleware.IsAuthenticated(r),
	}

	if err := h.templates.ExecuteTemplate(w, "picks.html", data); err != nil {
		h.logger.Errorf("Template error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SubmitEntryForm handles the pick form POST. Picks come from the
// checkbox group; alternates come from a comma-separated text field
// because their order is the swap preference order.
func (h *EntryHandler) SubmitEntryForm(w http.ResponseWriter, r *http.Request) {
	seasonID := mux.Vars(r)["id"]

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	req := &models.EntryRequest{
		SeasonID:   seasonID,
		PlayerName: r.FormValue("player_name"),
		Picks:      r.Form["picks"],
		Alternates: splitCSV(r.FormValue("alternates")),
	}

	entry, err := h.entries.SubmitEntry(r.Context(), req)
	if err != nil {
		h.logger.Warnf("Rejected entry for season %s: %v", seasonID, err)
		back := fmt.Sprintf("/seasons/%s/picks?error=%s&player=%s",
			seasonID, url.QueryEscape(err.Error()), url.QueryEscape(req.PlayerName))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	success := fmt.Sprintf("Entry for %s saved", entry.PlayerName)
	http.Redirect(w, r, fmt.Sprintf("/seasons/%s?success=%s", seasonID, url.QueryEscape(success)), http.StatusSeeOther)
}

// SubmitEntryAPI handles POST /api/entries.
func (h *EntryHandler) SubmitEntryAPI(w http.ResponseWriter, r *http.Request) {
	var req models.EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	entry, err := h.entries.SubmitEntry(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListEntriesAPI handles GET /api/seasons/{id}/entries.
func (h *EntryHandler) ListEntriesAPI(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.ListEntries(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetEntryAPI handles GET /api/seasons/{id}/entries/{player}.
func (h *EntryHandler) GetEntryAPI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entry, err := h.entries.GetEntry(r.Context(), vars["id"], vars["player"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no entry for that player"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteEntryAPI handles DELETE /api/seasons/{id}/entries/{player}.
func (h *EntryHandler) DeleteEntryAPI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.entries.DeleteEntry(r.Context(), vars["id"], vars["player"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Infof("Admin %s deleted entry %s/%s", adminName(r), vars["id"], vars["player"])
	w.WriteHeader(http.StatusNoContent)
}

// adminName names the acting admin for audit logs.
func adminName(r *http.Request) string {
	if user := middleware.GetUserFromContext(r); user != nil {
		return user.Username
	}
	return "unknown"
}
