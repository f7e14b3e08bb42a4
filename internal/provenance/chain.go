// Package provenance tracks the entities and activities an agent
// produces or consumes as a hash-chained, append-only list, generalized
// from a Merkle tree over committed batches to the acyclic linked-list
// shape a PROV-O-style provenance model requires: each entry links only
// to its immediate predecessor, not to
// a sibling-pair hash tree.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyprcat/hyprcat/internal/model"
)

// ErrChainSealed is returned when an append is attempted on a chain that
// has already been sealed.
var ErrChainSealed = fmt.Errorf("provenance: chain is sealed")

// ErrNoCurrentEntity is returned when an activity is appended before
// any entity has established a baseline.
var ErrNoCurrentEntity = fmt.Errorf("provenance: NO_CURRENT_ENTITY")

// Chain is a single agent's hash-linked provenance history, mutated only
// through AddEntity/AddActivity and terminated by Seal.
type Chain struct {
	mu    sync.Mutex
	chain model.ProvenanceChain
}

// NewChain starts an empty chain for agentDID.
func NewChain(agentDID string) *Chain {
	return &Chain{chain: model.ProvenanceChain{
		ID:        "urn:uuid:" + uuid.NewString(),
		AgentDID:  agentDID,
		StartedAt: time.Now().UTC(),
	}}
}

// AddEntity appends a new entity, hash-linked to the chain's current tip.
// The first entity in a chain establishes the baseline current entity.
func (c *Chain) AddEntity(entityType string, attrs map[string]interface{}) (*model.ProvenanceEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chain.Sealed {
		return nil, ErrChainSealed
	}

	prevHash := c.tipHash()
	entity := &model.ProvenanceEntity{
		ID:         "urn:uuid:" + uuid.NewString(),
		Type:       entityType,
		Attributes: attrs,
		PrevHash:   prevHash,
		CreatedAt:  time.Now().UTC(),
	}
	entity.Hash = hashEntity(entity)

	c.chain.Items = append(c.chain.Items, model.ChainItem{Entity: entity})
	c.chain.CurrentEntity = entity.ID
	return entity, nil
}

// AddActivity appends an activity whose usedEntityId is automatically
// set to the chain's current entity. It
// fails NO_CURRENT_ENTITY if no entity has yet established a baseline.
// When generatedType is non-empty a new entity of that type is appended
// immediately after the activity and becomes the chain's new current
// entity.
func (c *Chain) AddActivity(activityType, agentDID string, activityAttrs map[string]interface{}, generatedType string, generatedAttrs map[string]interface{}) (*model.ProvenanceActivity, *model.ProvenanceEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chain.Sealed {
		return nil, nil, ErrChainSealed
	}
	if c.chain.CurrentEntity == "" {
		return nil, nil, ErrNoCurrentEntity
	}

	prevHash := c.tipHash()
	activity := &model.ProvenanceActivity{
		ID:         "urn:uuid:" + uuid.NewString(),
		Type:       activityType,
		AgentDID:   agentDID,
		UsedEntity: c.chain.CurrentEntity,
		Attributes: activityAttrs,
		PrevHash:   prevHash,
		OccurredAt: time.Now().UTC(),
	}

	var generated *model.ProvenanceEntity
	if generatedType != "" {
		generated = &model.ProvenanceEntity{
			ID:         "urn:uuid:" + uuid.NewString(),
			Type:       generatedType,
			Attributes: generatedAttrs,
			CreatedAt:  time.Now().UTC(),
		}
		activity.GeneratedID = generated.ID
	}
	activity.Hash = hashActivity(activity)

	c.chain.Items = append(c.chain.Items, model.ChainItem{Activity: activity})

	if generated != nil {
		generated.PrevHash = activity.Hash
		generated.Hash = hashEntity(generated)
		c.chain.Items = append(c.chain.Items, model.ChainItem{Entity: generated})
		c.chain.CurrentEntity = generated.ID
	}

	return activity, generated, nil
}

// Seal marks the chain as closed; no further entries may be appended.
func (c *Chain) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain.Sealed = true
}

// Snapshot returns a copy of the chain's current state.
func (c *Chain) Snapshot() model.ProvenanceChain {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]model.ChainItem, len(c.chain.Items))
	copy(items, c.chain.Items)
	cp := c.chain
	cp.Items = items
	return cp
}

// Verify walks the chain and confirms every entry's Hash matches a
// recomputation and that PrevHash correctly links to its predecessor,
// mirroring ledger.Ledger.VerifyInclusion's recompute-and-compare idiom.
func (c *Chain) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := ""
	for i, item := range c.chain.Items {
		switch {
		case item.Entity != nil:
			if item.Entity.PrevHash != prev {
				return fmt.Errorf("provenance: entry %d: prev hash mismatch", i)
			}
			if hashEntity(item.Entity) != item.Entity.Hash {
				return fmt.Errorf("provenance: entry %d: hash mismatch", i)
			}
			prev = item.Entity.Hash
		case item.Activity != nil:
			if item.Activity.PrevHash != prev {
				return fmt.Errorf("provenance: entry %d: prev hash mismatch", i)
			}
			if hashActivity(item.Activity) != item.Activity.Hash {
				return fmt.Errorf("provenance: entry %d: hash mismatch", i)
			}
			prev = item.Activity.Hash
		}
	}
	return nil
}

func (c *Chain) tipHash() string {
	if len(c.chain.Items) == 0 {
		return ""
	}
	last := c.chain.Items[len(c.chain.Items)-1]
	if last.Activity != nil {
		return last.Activity.Hash
	}
	return last.Entity.Hash
}

func hashEntity(e *model.ProvenanceEntity) string {
	data, _ := json.Marshal(struct {
		ID         string
		Type       string
		Attributes map[string]interface{}
		PrevHash   string
	}{e.ID, e.Type, e.Attributes, e.PrevHash})
	return hashBytes(data)
}

func hashActivity(a *model.ProvenanceActivity) string {
	data, _ := json.Marshal(struct {
		ID          string
		Type        string
		AgentDID    string
		UsedEntity  string
		GeneratedID string
		Attributes  map[string]interface{}
		PrevHash    string
	}{a.ID, a.Type, a.AgentDID, a.UsedEntity, a.GeneratedID, a.Attributes, a.PrevHash})
	return hashBytes(data)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
