package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// FileBackend persists each resource as one JSON file under Dir, named
// by a URL-escaped id. Writes go through a temp-file-then-rename so a
// crash mid-write never leaves a partially written resource on disk.
// An in-memory index mirrors MemoryBackend's locking and pagination
// shape so both backends share the same concurrency guarantees.
type FileBackend struct {
	mu  sync.RWMutex
	dir string
	ids []string // cached ids, insertion order as discovered at load
}

// NewFileBackend creates (if needed) dir and loads the existing index.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
	}
	fb := &FileBackend{dir: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id, err := url.PathUnescape(e.Name()[:len(e.Name())-len(".json")])
		if err != nil {
			continue
		}
		fb.ids = append(fb.ids, id)
	}
	return fb, nil
}

func (fb *FileBackend) path(id string) string {
	return filepath.Join(fb.dir, url.PathEscape(id)+".json")
}

func (fb *FileBackend) Get(_ context.Context, id string) (jsonld.Node, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	data, err := os.ReadFile(fb.path(id))
	if os.IsNotExist(err) {
		return jsonld.Node{}, ErrNotFound
	}
	if err != nil {
		return jsonld.Node{}, fmt.Errorf("store: read %s: %w", id, err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return jsonld.Node{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return jsonld.NewNode(raw), nil
}

func (fb *FileBackend) Put(_ context.Context, n jsonld.Node) error {
	id := n.ID()
	data, err := json.MarshalIndent(n.Raw(), "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()

	tmp, err := os.CreateTemp(fb.dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fb.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into place %s: %w", id, err)
	}

	if !containsString(fb.ids, id) {
		fb.ids = append(fb.ids, id)
	}
	return nil
}

func (fb *FileBackend) Delete(_ context.Context, id string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if err := os.Remove(fb.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	for i, existing := range fb.ids {
		if existing == id {
			fb.ids = append(fb.ids[:i], fb.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (fb *FileBackend) List(ctx context.Context, offset, limit int) ([]jsonld.Node, int, error) {
	fb.mu.RLock()
	ids := append([]string(nil), fb.ids...)
	fb.mu.RUnlock()

	return fb.loadPage(ctx, ids, offset, limit)
}

func (fb *FileBackend) FindByType(ctx context.Context, typ string, offset, limit int) ([]jsonld.Node, int, error) {
	fb.mu.RLock()
	ids := append([]string(nil), fb.ids...)
	fb.mu.RUnlock()

	matching := make([]string, 0)
	for _, id := range ids {
		n, err := fb.Get(ctx, id)
		if err != nil {
			continue
		}
		if n.HasType(typ) {
			matching = append(matching, id)
		}
	}
	return fb.loadPage(ctx, matching, offset, limit)
}

func (fb *FileBackend) loadPage(ctx context.Context, ids []string, offset, limit int) ([]jsonld.Node, int, error) {
	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []jsonld.Node{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	out := make([]jsonld.Node, 0, end-offset)
	for _, id := range ids[offset:end] {
		n, err := fb.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, total, nil
}

func (fb *FileBackend) Close() error { return nil }

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
