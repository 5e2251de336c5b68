package web

// errors.go provides unified error response handling for the API.
//
// Every error is logged server-side with its full technical detail and
// the chi request ID, then returned to the client as JSON. Store errors
// surface with their original message: when a batch load fails on a
// constraint, the caller needs the database's own words to fix the file.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/trpdata/salesloader/internal/store"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err and writes it as a JSON error response. The
// status code and error code are derived from well-known error values
// when the caller passes 0.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	code := "INTERNAL"
	switch {
	case errors.Is(err, store.ErrNotFound):
		statusCode = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, store.ErrNoFields):
		statusCode = http.StatusBadRequest
		code = "NO_FIELDS"
	case statusCode == http.StatusBadRequest:
		code = "BAD_REQUEST"
	case statusCode == 0:
		statusCode = http.StatusInternalServerError
	}

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, statusCode, code, err.Error())
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}
