package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
)

type challengeRequest struct {
	DID string `json:"did"`
}

// handleAuthChallenge issues a nonce for did to sign.
func (a *App) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DID == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "did is required", r.URL.Path)
		return
	}

	ch, err := a.Identity.IssueChallenge(req.DID)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error(), r.URL.Path)
		return
	}
	n := jsonld.New("urn:hyprcat:challenge:"+ch.Nonce, "did:Challenge")
	n.Set("nonce", ch.Nonce)
	n.Set("did", ch.DID)
	n.Set("expiresAt", ch.ExpiresAt)
	writeLD(w, http.StatusOK, n)
}

type verifyRequest struct {
	Nonce           string `json:"nonce"`
	SignatureBase64 string `json:"signatureBase64"`
	Scope           string `json:"scope"`
}

// handleAuthVerify checks the signed nonce and mints a session token.
func (a *App) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed JSON body", r.URL.Path)
		return
	}

	sig, err := base64.StdEncoding.DecodeString(req.SignatureBase64)
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "bad_request", "malformed signature", r.URL.Path)
		return
	}

	token, sess, err := a.Identity.VerifyChallenge(req.Nonce, sig, req.Scope)
	if err != nil {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", err.Error(), r.URL.Path)
		return
	}

	n := jsonld.New("urn:hyprcat:session:"+sess.DID, "cred:VerifiableSession")
	n.Set("token", token)
	n.Set("did", sess.DID)
	n.Set("scope", sess.Scope)
	n.Set("expiresAt", sess.ExpiresAt)
	writeLD(w, http.StatusOK, n)
}

// handleAuthProfile returns the authenticated identity's wallet snapshot.
func (a *App) handleAuthProfile(w http.ResponseWriter, r *http.Request) {
	did := middleware.IdentityFromContext(r.Context())
	if did == "" {
		middleware.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "profile requires an authenticated identity", r.URL.Path)
		return
	}

	wal := a.Wallet.GetOrCreate(did, "USD")
	n := jsonld.New("urn:hyprcat:profile:"+did, "schema:Person")
	n.Set("did", did)
	n.Set("hyprcat:wallet", wal)
	writeLD(w, http.StatusOK, n)
}
