package provenance

import (
	"sort"
	"sync"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Service owns every agent's provenance chains, keyed by DID. An agent
// may accumulate more than one chain over its lifetime (one per
// session or long-running run), so HistoryOf returns a sequence.
type Service struct {
	mu     sync.Mutex
	active map[string]*Chain
	past   map[string][]model.ProvenanceChain
}

// NewService returns an empty provenance service.
func NewService() *Service {
	return &Service{
		active: make(map[string]*Chain),
		past:   make(map[string][]model.ProvenanceChain),
	}
}

// ChainFor returns agentDID's current open chain, starting one if none
// is active (its own first exists only once an entity is appended).
func (s *Service) ChainFor(agentDID string) *Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.active[agentDID]
	if !ok {
		c = NewChain(agentDID)
		s.active[agentDID] = c
	}
	return c
}

// Seal closes agentDID's active chain, if any, and retires it into
// that agent's history so a later ChainFor call starts a fresh one.
func (s *Service) Seal(agentDID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.active[agentDID]
	if !ok {
		return
	}
	c.Seal()
	s.past[agentDID] = append(s.past[agentDID], c.Snapshot())
	delete(s.active, agentDID)
}

// HistoryOf returns every chain (sealed and, if any, still open)
// recorded for agentDID, ordered by StartedAt ascending.
func (s *Service) HistoryOf(agentDID string) []model.ProvenanceChain {
	s.mu.Lock()
	defer s.mu.Unlock()

	chains := append([]model.ProvenanceChain(nil), s.past[agentDID]...)
	if c, ok := s.active[agentDID]; ok {
		chains = append(chains, c.Snapshot())
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i].StartedAt.Before(chains[j].StartedAt) })
	return chains
}
