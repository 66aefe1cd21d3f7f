package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps an error to a JSON error body. Domain API errors carry
// their own status; anything else is an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.HTTPStatusCode(), errorResponse{Error: apiErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}
