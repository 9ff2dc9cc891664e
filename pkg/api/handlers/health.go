// Package handlers implements the HTTP endpoints served by pkg/api.
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marmos91/ormkit/pkg/database"
)

// StatusReporter reports the state of every configured database.
// *database.Manager implements it.
type StatusReporter interface {
	Status(ctx context.Context) []database.Status
}

// HealthHandler serves the /health endpoints.
type HealthHandler struct {
	databases StatusReporter
}

// NewHealthHandler creates a health handler. databases may be nil.
func NewHealthHandler(databases StatusReporter) *HealthHandler {
	return &HealthHandler{databases: databases}
}

// Liveness handles GET /health. It succeeds as long as the process answers.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "ormkit",
	}))
}

// Readiness handles GET /health/ready. Ready means every configured database
// is open and answered its probe.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.databases == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("databases not initialized", nil))
		return
	}

	statuses := h.databases.Status(r.Context())
	if len(statuses) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("no databases configured", nil))
		return
	}

	open := 0
	for _, st := range statuses {
		if !st.Open {
			writeJSON(w, http.StatusServiceUnavailable,
				unhealthyResponse(fmt.Sprintf("database %s is not open", st.Name), nil))
			return
		}
		if !st.Healthy {
			writeJSON(w, http.StatusServiceUnavailable,
				unhealthyResponse(fmt.Sprintf("database %s is unhealthy", st.Name), nil))
			return
		}
		open++
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]int{"databases": open}))
}

// Databases handles GET /health/databases with the status of each database.
// Returns 503 when any open database fails its probe.
func (h *HealthHandler) Databases(w http.ResponseWriter, r *http.Request) {
	if h.databases == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("databases not initialized", nil))
		return
	}

	statuses := h.databases.Status(r.Context())
	for _, st := range statuses {
		if st.Open && !st.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("one or more databases are unhealthy", statuses))
			return
		}
	}
	writeJSON(w, http.StatusOK, healthyResponse(statuses))
}
