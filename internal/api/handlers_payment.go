package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
)

type checkoutRequest struct {
	ResourceID  string `json:"resourceId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
}

// handleCheckout implements the two-step 402 flow: a request with no
// X-Invoice-Id/X-Payment-Proof headers opens an invoice and responds
// 402 with the invoice body; a request carrying both confirms payment
// and responds 201 with a settled order.
func (a *App) handleCheckout(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "checkout requires an authenticated identity", r.URL.Path)
		return
	}

	invoiceID := r.Header.Get("X-Invoice-Id")
	proofHeader := r.Header.Get("X-Payment-Proof")

	if invoiceID != "" && proofHeader != "" {
		proof, err := base64.StdEncoding.DecodeString(proofHeader)
		if err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed payment proof", r.URL.Path)
			return
		}
		receipt, err := a.Payments.ConfirmPayment(invoiceID, proof)
		if err != nil {
			middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error(), r.URL.Path)
			return
		}
		a.recordActivity(r, "hyprcat:Purchase", receipt.ResourceID)
		writeLD(w, http.StatusCreated, orderNode(receipt))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed JSON body", r.URL.Path)
		return
	}

	inv, err := a.Payments.IssueInvoice(did, req.ResourceID, req.AmountMinor, req.Currency)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error(), r.URL.Path)
		return
	}
	w.Header().Set("X-Invoice-Id", inv.ID)
	writeLD(w, http.StatusPaymentRequired, invoiceNode(inv))
}

type tokenMintRequest struct {
	TokenID     string `json:"tokenId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	TTLSeconds  int64  `json:"ttlSeconds"`
}

// handleTokenMint pays amountMinor via the synchronous SignProof/
// ConfirmPayment round trip (no 402 round trip needed server-side
// since the server itself holds the payment secret) then grants the
// token.
func (a *App) handleTokenMint(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "token mint requires an authenticated identity", r.URL.Path)
		return
	}

	var req tokenMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed JSON body", r.URL.Path)
		return
	}

	inv, err := a.Payments.IssueInvoice(did, "token:"+req.TokenID, req.AmountMinor, req.Currency)
	if err != nil {
		middleware.WriteError(w, r, http.StatusPaymentRequired, "payment_required", err.Error(), r.URL.Path)
		return
	}
	proof := a.Payments.SignProof(inv.ID)
	if _, err := a.Payments.ConfirmPayment(inv.ID, proof); err != nil {
		middleware.WriteError(w, r, http.StatusPaymentRequired, "payment_required", err.Error(), r.URL.Path)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	a.TokenGate.GrantToken(did, req.TokenID, ttl)

	a.recordActivity(r, "hyprcat:TokenMint", req.TokenID)
	n := jsonld.New("urn:hyprcat:token:"+req.TokenID, "hyprcat:Token")
	n.Set("hyprcat:tokenId", req.TokenID)
	n.Set("hyprcat:did", did)
	n.Set("hyprcat:expiresIn", float64(req.TTLSeconds))
	writeLD(w, http.StatusOK, n)
}

// handleTokenBurn revokes a token and, when the refundMinor query
// parameter is positive, credits that amount back to the caller's wallet.
func (a *App) handleTokenBurn(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "token burn requires an authenticated identity", r.URL.Path)
		return
	}

	tokenID := r.URL.Query().Get("tokenId")
	if tokenID == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "tokenId query parameter is required", r.URL.Path)
		return
	}

	refundMinor, _ := strconv.ParseInt(r.URL.Query().Get("refundMinor"), 10, 64)
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		currency = "USD"
	}

	a.Wallet.RevokeToken(did, tokenID)
	if refundMinor > 0 {
		a.Wallet.Credit(did, refundMinor, currency)
	}

	a.recordActivity(r, "hyprcat:TokenBurn", tokenID)
	w.WriteHeader(http.StatusNoContent)
}
