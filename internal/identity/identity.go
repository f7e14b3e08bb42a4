// Package identity implements agent authentication: nonce-challenge
// issuance, DID signature verification across multiple methods, and
// HMAC-signed session tokens.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Service ties challenge issuance, signature verification, and session
// token brokering into the IssueChallenge/VerifyChallenge flow the HTTP
// layer calls.
type Service struct {
	challenges *ChallengeStore
	sessions   *SessionBroker
	verifiers  map[string]Verifier // method prefix -> verifier
}

// NewService builds a Service. production gates whether did:sim: is
// registered, enabling a dev-mode signature bypass only outside production.
func NewService(challengeTTL, sessionTTL time.Duration, sessionSecret string, production bool, extra ...Verifier) *Service {
	s := &Service{
		challenges: NewChallengeStore(challengeTTL),
		sessions:   NewSessionBroker(sessionSecret, sessionTTL),
		verifiers:  make(map[string]Verifier),
	}

	s.register(KeyVerifier{})
	if !production {
		s.register(SimVerifier{})
	}
	for _, v := range extra {
		s.register(v)
	}

	return s
}

func (s *Service) register(v Verifier) { s.verifiers[v.Method()] = v }

// IssueChallenge starts an authentication attempt for did.
func (s *Service) IssueChallenge(did string) (*model.Challenge, error) {
	return s.challenges.Issue(did)
}

// VerifyChallenge consumes the challenge for nonce, checks signature
// against the DID's method-specific Verifier, and on success mints a
// session token scoped to scope.
func (s *Service) VerifyChallenge(nonce string, signature []byte, scope string) (string, *model.SessionToken, error) {
	ch, err := s.challenges.Consume(nonce)
	if err != nil {
		return "", nil, err
	}

	verifier, err := s.verifierFor(ch.DID)
	if err != nil {
		return "", nil, err
	}

	ok, err := verifier.Verify(ch.DID, nonce, signature)
	if err != nil {
		return "", nil, fmt.Errorf("identity: verify signature: %w", err)
	}
	if !ok {
		return "", nil, fmt.Errorf("identity: signature does not match did %s", ch.DID)
	}

	return s.sessions.Issue(ch.DID, scope)
}

// VerifySession validates a bearer session token.
func (s *Service) VerifySession(token string) (*model.SessionToken, error) {
	return s.sessions.Verify(token)
}

// VerifySignature checks a raw DID-Auth header's signature directly
// against did's method verifier, without consuming a pre-issued
// challenge — used for per-request DID-Auth credentials rather than
// the challenge/session bootstrap flow.
func (s *Service) VerifySignature(did, nonce string, signature []byte) (bool, error) {
	verifier, err := s.verifierFor(did)
	if err != nil {
		return false, err
	}
	return verifier.Verify(did, nonce, signature)
}

// RevokeSession invalidates a session token immediately.
func (s *Service) RevokeSession(token string) { s.sessions.Revoke(token) }

// SweepExpiredChallenges drops stale pending challenges; call on a
// ticker from the owning goroutine.
func (s *Service) SweepExpiredChallenges() int { return s.challenges.Sweep() }

func (s *Service) verifierFor(did string) (Verifier, error) {
	for prefix, v := range s.verifiers {
		if strings.HasPrefix(did, prefix) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("identity: no verifier registered for did %s", did)
}
