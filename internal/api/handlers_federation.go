package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hyprcat/hyprcat/internal/middleware"
)

type federatedQueryRequest struct {
	Query string `json:"query"`
}

// handleFederatedQuery parses, plans, dispatches, and merges req.Query
// via the federation engine. Parse/plan failures are 422; a source
// dispatch failure is 502.
func (a *App) handleFederatedQuery(w http.ResponseWriter, r *http.Request) {
	var req federatedQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusUnprocessableEntity, "validation_failed", "malformed JSON body", r.URL.Path)
		return
	}

	const hardCap = 10000
	started := time.Now()
	items, err := a.Federation.Query(r.Context(), req.Query, hardCap)
	if err != nil {
		status := http.StatusUnprocessableEntity
		kind := "validation_failed"
		if isDispatchFailure(err) {
			status = http.StatusBadGateway
			kind = "upstream_failure"
		}
		middleware.WriteError(w, r, status, kind, err.Error(), r.URL.Path)
		return
	}

	activity := a.recordActivity(r, "hyprcat:FederatedQuery", req.Query)
	writeLD(w, http.StatusOK, resultSetNode(items, time.Since(started), activity))
}

func isDispatchFailure(err error) bool {
	return err != nil && containsSourceError(err.Error())
}

func containsSourceError(msg string) bool {
	const marker = "federation: source "
	for i := 0; i+len(marker) <= len(msg); i++ {
		if msg[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}
