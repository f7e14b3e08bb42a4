package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyprcat/hyprcat/internal/middleware"
	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/hyprcat/hyprcat/internal/provenance"
)

// recordActivity appends a provenance activity for the request's
// resolved identity. Anonymous requests (no resolved DID) are not
// recorded since a chain requires an agent DID. It returns the recorded
// activity so a response body can cite it as prov:wasGeneratedBy, or
// nil if nothing was recorded.
func (a *App) recordActivity(r *http.Request, activityType, targetID string) *model.ProvenanceActivity {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		return nil
	}

	chain := a.Provenance.ChainFor(did)
	if _, err := chain.AddEntity("hyprcat:Target", map[string]interface{}{"targetId": targetID}); err != nil {
		return nil
	}
	activity, _, _ := chain.AddActivity(activityType, did, nil, "", nil)

	if a.Events != nil {
		a.Events.Emit("hyprcat.provenance.appended", r.URL.Path, targetID, map[string]interface{}{
			"agent_did": did,
			"type":      activityType,
		})
	}
	return activity
}

// handleLRSExport exports the authenticated identity's provenance
// history as either a linked-data bundle (default) or a flat summary
// (?format=flat).
func (a *App) handleLRSExport(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "learning-record export requires an authenticated identity", r.URL.Path)
		return
	}

	history := a.Provenance.HistoryOf(did)

	if r.URL.Query().Get("format") == "flat" {
		flat := make([]interface{}, 0, len(history))
		for _, chain := range history {
			flat = append(flat, provenance.ExportFlatSummary(chain))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"chains": flat})
		return
	}

	bundles := make([]interface{}, 0, len(history))
	for _, chain := range history {
		bundles = append(bundles, provenance.ExportLinkedData(chain).Raw())
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"member": bundles, "totalItems": len(bundles)})
}
