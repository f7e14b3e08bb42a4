package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// Verifier checks a signature over a challenge string for one DID
// method family (did:key:, did:spiffe:, did:sim:).
type Verifier interface {
	// Verify reports whether signature is a valid proof that the
	// controller of did produced it over challenge.
	Verify(did, challenge string, signature []byte) (bool, error)
	// Method returns the DID method prefix this Verifier handles, e.g.
	// "did:key:".
	Method() string
}

// KeyVerifier implements the did:key: method: the DID itself carries a
// base64url-encoded ed25519 public key, and the signature is a raw
// ed25519 signature over the challenge string. Grounded on the
// teacher's federation.Attestation (ed25519 Sign/Verify over canonical
// bytes).
type KeyVerifier struct{}

func (KeyVerifier) Method() string { return "did:key:" }

func (KeyVerifier) Verify(did, challenge string, signature []byte) (bool, error) {
	encodedKey := strings.TrimPrefix(did, "did:key:")
	pub, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return false, fmt.Errorf("identity: decode did:key public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("identity: did:key public key has wrong size")
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(challenge), signature), nil
}

// SimVerifier implements the did:sim: method: any well-formed DID
// verifies without a real signature. Only ever registered when
// Config.Server.Env != "production", as a dev-mode signature bypass.
type SimVerifier struct{}

func (SimVerifier) Method() string { return "did:sim:" }

func (SimVerifier) Verify(did, _ string, _ []byte) (bool, error) {
	return strings.HasPrefix(did, "did:sim:"), nil
}
