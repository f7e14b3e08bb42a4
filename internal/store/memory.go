package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// MemoryBackend is the default resource store: an in-process map guarded
// by a single RWMutex, with Get/Put/Delete/List/FindByType.
type MemoryBackend struct {
	mu        sync.RWMutex
	resources map[string]jsonld.Node
	order     []string // insertion order, for stable List pagination
}

// NewMemoryBackend constructs an empty in-memory store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{resources: make(map[string]jsonld.Node)}
}

func (m *MemoryBackend) Get(_ context.Context, id string) (jsonld.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.resources[id]
	if !ok {
		return jsonld.Node{}, ErrNotFound
	}
	return n.Clone(), nil
}

func (m *MemoryBackend) Put(_ context.Context, n jsonld.Node) error {
	id := n.ID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.resources[id]; !exists {
		m.order = append(m.order, id)
	}
	m.resources[id] = n.Clone()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return ErrNotFound
	}
	delete(m.resources, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryBackend) List(_ context.Context, offset, limit int) ([]jsonld.Node, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := len(m.order)
	return paginate(m.order, m.resources, offset, limit), total, nil
}

func (m *MemoryBackend) FindByType(_ context.Context, typ string, offset, limit int) ([]jsonld.Node, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matching := make([]string, 0)
	for _, id := range m.order {
		if m.resources[id].HasType(typ) {
			matching = append(matching, id)
		}
	}
	sort.Strings(matching)
	return paginate(matching, m.resources, offset, limit), len(matching), nil
}

func (m *MemoryBackend) Close() error { return nil }

func paginate(ids []string, resources map[string]jsonld.Node, offset, limit int) []jsonld.Node {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []jsonld.Node{}
	}
	end := offset + limit
	if limit <= 0 || end > len(ids) {
		end = len(ids)
	}
	out := make([]jsonld.Node, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, resources[id].Clone())
	}
	return out
}
