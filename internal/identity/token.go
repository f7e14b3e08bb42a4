package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// claimsWire is the on-the-wire shape of SessionToken claims, using
// short keys (did/scope/iat/exp).
type claimsWire struct {
	DID       string `json:"did"`
	Scope     string `json:"scope"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// SessionBroker issues and verifies HMAC-SHA256 self-verifying session
// tokens: a base64(claims)+"."+base64(signature) token shape, a
// hmac.Equal constant-time comparison, same active/revoked token
// tracking and key-rotation grace window — but claims are now
// {did, scope, issuedAt, expiresAt} instead of trust-score-gated
// {tid, aid, tnt, perm, ts}.
type SessionBroker struct {
	mu         sync.RWMutex
	secret     []byte
	prevSecret []byte
	graceUntil time.Time
	ttl        time.Duration

	active   map[string]*model.SessionToken // token string -> claims
	revoked  map[string]time.Time
}

// NewSessionBroker creates a broker signing tokens with secret, each
// valid for ttl.
func NewSessionBroker(secret string, ttl time.Duration) *SessionBroker {
	return &SessionBroker{
		secret:  []byte(secret),
		ttl:     ttl,
		active:  make(map[string]*model.SessionToken),
		revoked: make(map[string]time.Time),
	}
}

// Issue mints a new session token for did scoped to scope.
func (b *SessionBroker) Issue(did, scope string) (string, *model.SessionToken, error) {
	now := time.Now()
	token := &model.SessionToken{
		DID:       did,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(b.ttl),
	}

	wire := claimsWire{DID: did, Scope: scope, IssuedAt: now.Unix(), ExpiresAt: token.ExpiresAt.Unix()}
	claimsJSON, err := json.Marshal(wire)
	if err != nil {
		return "", nil, fmt.Errorf("identity: marshal session claims: %w", err)
	}

	b.mu.Lock()
	sig := b.sign(claimsJSON)
	tokenStr := base64.RawURLEncoding.EncodeToString(claimsJSON) + "." + base64.RawURLEncoding.EncodeToString(sig)
	b.active[tokenStr] = token
	b.mu.Unlock()

	return tokenStr, token, nil
}

// Verify checks a token's signature, expiry, and revocation status.
func (b *SessionBroker) Verify(tokenStr string) (*model.SessionToken, error) {
	parts := splitToken(tokenStr)
	if len(parts) != 2 {
		return nil, errors.New("identity: malformed session token")
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("identity: decode session claims: %w", err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("identity: decode session signature: %w", err)
	}

	b.mu.RLock()
	valid := hmac.Equal(sig, b.sign(claimsJSON))
	if !valid && len(b.prevSecret) > 0 && time.Now().Before(b.graceUntil) {
		prevMac := hmac.New(sha256.New, b.prevSecret)
		prevMac.Write(claimsJSON)
		valid = hmac.Equal(sig, prevMac.Sum(nil))
	}
	_, revoked := b.revoked[tokenStr]
	b.mu.RUnlock()

	if !valid {
		return nil, errors.New("identity: invalid session token signature")
	}
	if revoked {
		return nil, errors.New("identity: session token revoked")
	}

	var wire claimsWire
	if err := json.Unmarshal(claimsJSON, &wire); err != nil {
		return nil, fmt.Errorf("identity: unmarshal session claims: %w", err)
	}
	if time.Now().Unix() > wire.ExpiresAt {
		return nil, errors.New("identity: session token expired")
	}

	return &model.SessionToken{
		DID:       wire.DID,
		Scope:     wire.Scope,
		IssuedAt:  time.Unix(wire.IssuedAt, 0),
		ExpiresAt: time.Unix(wire.ExpiresAt, 0),
	}, nil
}

// Revoke invalidates a specific token ahead of its natural expiry.
func (b *SessionBroker) Revoke(tokenStr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, tokenStr)
	b.revoked[tokenStr] = time.Now()
}

// RotateKey atomically rotates the signing secret, keeping the previous
// one valid for grace so in-flight tokens don't all fail at once.
func (b *SessionBroker) RotateKey(newSecret string, grace time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prevSecret = b.secret
	b.graceUntil = time.Now().Add(grace)
	b.secret = []byte(newSecret)
}

func (b *SessionBroker) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, b.secret)
	mac.Write(data)
	return mac.Sum(nil)
}

func splitToken(token string) []string {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return []string{token[:i], token[i+1:]}
		}
	}
	return []string{token}
}
