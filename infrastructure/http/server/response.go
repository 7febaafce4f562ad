package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func respondJSON(log *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn("Failed to encode response", "err", err)
	}
}

func respondError(log *slog.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(log, w, status, map[string]string{"error": message})
}
