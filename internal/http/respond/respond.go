// Package respond holds the response helpers shared by the API handlers.
package respond

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/MrJamesThe3rd/taxres/internal/tax"
)

type errorResponse struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status maps an engine error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, tax.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, tax.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tax.ErrMissingRuleLookup):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// Error writes err as a JSON body. Internal errors are logged and replaced
// with a generic message.
func Error(w http.ResponseWriter, err error) {
	status := Status(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)

		msg = "internal error"
	}

	JSON(w, status, errorResponse{Error: msg})
}

// AsOf reads the as_of query parameter (YYYY-MM-DD), defaulting to today.
func AsOf(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("as_of")
	if s == "" {
		return today(), nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of %q is not a date", tax.ErrInvalidInput, s)
	}

	return t, nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", tax.ErrInvalidInput, err)
	}

	return nil
}
