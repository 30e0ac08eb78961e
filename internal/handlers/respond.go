package handlers

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"bullshark-strava-sync/internal/apierr"
)

// errorResponse is the body of every failed API call
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps err to a status code by kind. Untyped errors become 500s
// without leaking their message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apierr.HTTPStatus(err)
	kind, typed := apierr.KindOf(err)

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "status", status)
	} else {
		logger.Warn("Request rejected", "error", err, "status", status)
	}

	resp := errorResponse{Error: err.Error(), Kind: string(kind)}
	if !typed {
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}
