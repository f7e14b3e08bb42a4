package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyprcat/hyprcat/internal/middleware"
)

// handleWallet returns the authenticated identity's wallet snapshot.
func (a *App) handleWallet(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "wallet lookup requires an authenticated identity", r.URL.Path)
		return
	}

	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "USD"
	}
	wal := a.Wallet.GetOrCreate(did, currency)
	_ = json.NewEncoder(w).Encode(wal)
}
