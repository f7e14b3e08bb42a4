package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// ChallengeStore issues single-use nonces and tracks them through the
// pending -> verified|expired state machine: a HELLO->CHALLENGE->
// RESPONSE->CONFIRM handshake collapsed to two states since there is
// only one round trip between gateway and agent, reusing the same
// map+mutex+sweep shape InvoiceVault uses.
type ChallengeStore struct {
	mu      sync.Mutex
	pending map[string]*model.Challenge // nonce -> challenge
	ttl     time.Duration
}

// NewChallengeStore creates a store whose challenges expire after ttl.
func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{pending: make(map[string]*model.Challenge), ttl: ttl}
}

// Issue generates a fresh nonce bound to did and records it as pending.
func (cs *ChallengeStore) Issue(did string) (*model.Challenge, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("identity: generate nonce: %w", err)
	}

	now := time.Now()
	ch := &model.Challenge{
		Nonce:     nonce,
		DID:       did,
		Status:    model.ChallengePending,
		IssuedAt:  now,
		ExpiresAt: now.Add(cs.ttl),
	}

	cs.mu.Lock()
	cs.pending[nonce] = ch
	cs.mu.Unlock()

	return ch, nil
}

// Consume atomically removes and returns the pending challenge for
// nonce, so a replayed nonce is rejected even under concurrent verify
// attempts (compare-and-delete, not read-then-delete).
func (cs *ChallengeStore) Consume(nonce string) (*model.Challenge, error) {
	cs.mu.Lock()
	ch, ok := cs.pending[nonce]
	if ok {
		delete(cs.pending, nonce)
	}
	cs.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("identity: nonce unknown or already used")
	}
	if time.Now().After(ch.ExpiresAt) {
		ch.Status = model.ChallengeExpired
		return ch, fmt.Errorf("identity: challenge expired")
	}
	ch.Status = model.ChallengeVerified
	return ch, nil
}

// Sweep drops expired, never-consumed challenges so the pending map
// doesn't grow unbounded. Intended to run on a ticker, mirroring the
// teacher's TokenBroker.SweepExpired.
func (cs *ChallengeStore) Sweep() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := time.Now()
	swept := 0
	for nonce, ch := range cs.pending {
		if now.After(ch.ExpiresAt) {
			delete(cs.pending, nonce)
			swept++
		}
	}
	return swept
}

func generateNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
