// Package http exposes the service's REST surface: sync triggers,
// transaction listing, and health.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgerlink/internal/domain/sync"
)

type errorResponse struct {
	Error     string    `json:"error"`
	Kind      sync.Kind `json:"kind,omitempty"`
	Retryable bool      `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeSyncError maps a failed sync run to an HTTP status. Transient
// provider and store faults are 503 so clients know to retry; revoked
// credentials and runaway pagination are not client-retryable.
func writeSyncError(w http.ResponseWriter, err error) {
	var se *sync.SyncError
	if !errors.As(err, &se) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "sync failed"})
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case sync.KindProviderTransient, sync.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	case sync.KindProviderFatal:
		status = http.StatusBadGateway
	case sync.KindAccumulationExceeded:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, errorResponse{
		Error:     se.Error(),
		Kind:      se.Kind,
		Retryable: se.Retryable(),
	})
}
