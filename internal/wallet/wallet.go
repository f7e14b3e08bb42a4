// Package wallet tracks per-agent balances, access tokens, and
// subscriptions behind per-DID sharded locks.
package wallet

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

const shardCount = 32

// Store holds one Wallet per DID, behind a sharded-locks-by-hash(DID)
// design so concurrent debits against different agents never contend
// on the same lock.
type Store struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	wallets map[string]*model.Wallet
}

// NewStore creates an empty wallet store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].wallets = make(map[string]*model.Wallet)
	}
	return s
}

func (s *Store) shardFor(did string) *shard {
	h := fnv.New32a()
	h.Write([]byte(did))
	return &s.shards[h.Sum32()%shardCount]
}

// GetOrCreate returns the wallet for did, creating a zero-balance one
// (in currency) if none exists yet.
func (s *Store) GetOrCreate(did, currency string) *model.Wallet {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.wallets[did]
	if !ok {
		w = &model.Wallet{
			DID:           did,
			Currency:      currency,
			Tokens:        make(map[string]model.Token),
			Subscriptions: make(map[string]model.Subscription),
			UpdatedAt:     time.Now(),
		}
		sh.wallets[did] = w
	}
	return w
}

// Credit increases did's balance by amountMinor.
func (s *Store) Credit(did string, amountMinor int64, currency string) *model.Wallet {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := s.unsafeGetOrCreate(sh, did, currency)
	w.Balance += amountMinor
	w.UpdatedAt = time.Now()
	return w
}

// Debit decreases did's balance by amountMinor if sufficient funds are
// available, returning an error otherwise. The check-then-act happens
// entirely under the shard's lock, so two concurrent debits against the
// same wallet never both succeed past an insufficient balance.
func (s *Store) Debit(did string, amountMinor int64) (*model.Wallet, error) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.wallets[did]
	if !ok || w.Balance < amountMinor {
		return nil, fmt.Errorf("wallet: insufficient balance for %s", did)
	}
	w.Balance -= amountMinor
	w.UpdatedAt = time.Now()
	return w, nil
}

// GrantToken attaches a gate token to did's wallet.
func (s *Store) GrantToken(did, tokenID string, tok model.Token) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := s.unsafeGetOrCreate(sh, did, "")
	w.Tokens[tokenID] = tok
	w.UpdatedAt = time.Now()
}

// RevokeToken removes tokenID from did's wallet, used by the
// burn+refund operation.
func (s *Store) RevokeToken(did, tokenID string) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if w, ok := sh.wallets[did]; ok {
		delete(w.Tokens, tokenID)
		w.UpdatedAt = time.Now()
	}
}

// HasValidToken reports whether did holds an unexpired token under
// tokenID.
func (s *Store) HasValidToken(did, tokenID string) bool {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.wallets[did]
	if !ok {
		return false
	}
	tok, ok := w.Tokens[tokenID]
	if !ok {
		return false
	}
	return time.Now().Before(tok.ExpiresAt)
}

// GrantSubscription attaches a subscription to did's wallet.
func (s *Store) GrantSubscription(did, planID string, sub model.Subscription) {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w := s.unsafeGetOrCreate(sh, did, "")
	w.Subscriptions[planID] = sub
	w.UpdatedAt = time.Now()
}

// HasActiveSubscription reports whether did holds an unexpired
// subscription to planID.
func (s *Store) HasActiveSubscription(did, planID string) bool {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.wallets[did]
	if !ok {
		return false
	}
	sub, ok := w.Subscriptions[planID]
	if !ok {
		return false
	}
	return time.Now().Before(sub.ExpiresAt)
}

// Balance returns did's current balance without creating a wallet.
func (s *Store) Balance(did string) int64 {
	sh := s.shardFor(did)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if w, ok := sh.wallets[did]; ok {
		return w.Balance
	}
	return 0
}

func (s *Store) unsafeGetOrCreate(sh *shard, did, currency string) *model.Wallet {
	w, ok := sh.wallets[did]
	if !ok {
		w = &model.Wallet{
			DID:           did,
			Currency:      currency,
			Tokens:        make(map[string]model.Token),
			Subscriptions: make(map[string]model.Subscription),
			UpdatedAt:     time.Now(),
		}
		sh.wallets[did] = w
	}
	return w
}
