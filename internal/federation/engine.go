package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/hyprcat/hyprcat/internal/redisx"
)

// Engine ties parsing, planning, dispatch, and merging into the single
// Query entry point the HTTP layer calls, with an optional Redis result
// cache sitting in front of the dispatcher.
type Engine struct {
	registry   *Registry
	dispatcher *Dispatcher
	merger     Merger
	cache      *redisx.Adapter
	cacheTTL   time.Duration
}

// NewEngine wires an Engine. cache may be nil to disable caching.
func NewEngine(registry *Registry, dispatcher *Dispatcher, cache *redisx.Adapter, cacheTTL time.Duration) *Engine {
	return &Engine{registry: registry, dispatcher: dispatcher, cache: cache, cacheTTL: cacheTTL}
}

// Query parses queryText, plans it against the registry, dispatches to
// every referenced source concurrently, and merges the results.
func (e *Engine) Query(ctx context.Context, queryText string, hardCap int) ([]model.SourceResultItem, error) {
	q, err := Parse(queryText)
	if err != nil {
		return nil, err
	}
	if q.Limit <= 0 || q.Limit > hardCap {
		q.Limit = hardCap
	}

	if e.cache != nil {
		if cached, ok := e.readCache(ctx, queryText); ok {
			return cached, nil
		}
	}

	plan, err := e.registry.Build(q)
	if err != nil {
		return nil, err
	}

	perSource, errs := e.dispatcher.Execute(plan)
	for i, jobErr := range errs {
		if jobErr != nil {
			return nil, fmt.Errorf("federation: source %s: %w", plan.Jobs[i].Source.Name(), jobErr)
		}
	}

	merged := e.merger.Merge(q, perSource)

	if e.cache != nil {
		e.writeCache(ctx, queryText, merged)
	}
	return merged, nil
}

func (e *Engine) readCache(ctx context.Context, queryText string) ([]model.SourceResultItem, bool) {
	raw, ok, err := e.cache.Get(ctx, cacheKey(queryText))
	if err != nil || !ok {
		return nil, false
	}
	var items []model.SourceResultItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false
	}
	return items, true
}

func (e *Engine) writeCache(ctx context.Context, queryText string, items []model.SourceResultItem) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = e.cache.Set(ctx, cacheKey(queryText), string(data), e.cacheTTL)
}

func cacheKey(queryText string) string { return "hyprcat:federation:" + queryText }
