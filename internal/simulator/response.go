// internal/simulator/response.go
package simulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rovshanmuradov/tradedesk/internal/api"
)

var errBadJSON = errors.New("Request body must be valid JSON")

// writeJSON writes data as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the standard {"error": reason} body.
func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, api.ErrorResponse{Error: reason})
}

// parseJSON decodes the request body into v.
func parseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errBadJSON
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}
