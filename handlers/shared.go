package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/services"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WithPrefix("HTTP").Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps service failures onto HTTP status codes. Validation
// failures keep their message because it tells the caller what to fix;
// anything unexpected gets a generic body and a logged detail.
func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	var notFound *services.ErrSeasonNotFound
	switch {
	case errors.As(err, &notFound),
		errors.Is(err, services.ErrContestantNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSeasonLocked):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNoRosterTable):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrInvalidEntry),
		errors.Is(err, services.ErrUnknownContestant),
		errors.Is(err, services.ErrDuplicateContestant),
		errors.Is(err, services.ErrPickCount),
		errors.Is(err, services.ErrAlternateCount),
		errors.Is(err, services.ErrInvalidSeason),
		errors.Is(err, services.ErrInvalidPlacement),
		errors.Is(err, services.ErrUnknownBonusKey),
		errors.Is(err, services.ErrNoWikiPage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// splitCSV splits a comma-separated form value, trimming whitespace and
// dropping empty items. "Dee, Eve," becomes ["Dee", "Eve"].
func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
