package governance

import (
	"fmt"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// TokenGate checks whether an agent holds a valid access token or
// subscription before a governed operation proceeds, the non-payment
// counterpart to PaymentPipeline in the gateway's three constraint
// kinds (payment, token, policy).
type TokenGate struct {
	wallets *wallet.Store
}

// NewTokenGate wires a TokenGate over wallets.
func NewTokenGate(wallets *wallet.Store) *TokenGate {
	return &TokenGate{wallets: wallets}
}

// RequireToken fails unless did holds an unexpired token for tokenID.
func (g *TokenGate) RequireToken(did, tokenID string) error {
	if !g.wallets.HasValidToken(did, tokenID) {
		return fmt.Errorf("governance: %s lacks a valid token %s", did, tokenID)
	}
	return nil
}

// RequireSubscription fails unless did holds an active subscription to
// planID.
func (g *TokenGate) RequireSubscription(did, planID string) error {
	if !g.wallets.HasActiveSubscription(did, planID) {
		return fmt.Errorf("governance: %s lacks an active subscription %s", did, planID)
	}
	return nil
}

// GrantToken issues did a token for tokenID valid for ttl.
func (g *TokenGate) GrantToken(did, tokenID string, ttl time.Duration) {
	g.wallets.GrantToken(did, tokenID, model.Token{Scope: tokenID, ExpiresAt: time.Now().Add(ttl)})
}
