package federation

import (
	"fmt"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Source executes a single source's share of a federated query. Real
// deployments would back this with an actual connector; here, sources
// are intentionally mocked, returning canned/generated rows.
type Source interface {
	Name() string
	Query(q *model.FederatedQuery) ([]model.SourceResultItem, error)
}

// Registry maps a source keyword (as named in a query's FROM/JOIN
// clause) to the Source that serves it.
type Registry struct {
	sources map[string]Source
	order   []string
}

// sourceKeywordAliases maps a conceptual keyword a query might name in
// FROM/JOIN to the source that actually serves it, for deployments
// whose registered source names don't match a query author's vocabulary
// one-for-one.
var sourceKeywordAliases = map[string]string{
	"sales":      "pricing",
	"inventory":  "datasets",
	"telemetry":  "usage",
	"catalog":    "prompts",
	"prompt":     "prompts",
	"dataset":    "datasets",
	"metrics":    "usage",
}

// NewRegistry builds a Registry over sources, keyed by each Source's
// Name(). The first source registered becomes the fallback a query's
// unrecognized FROM/JOIN name resolves to.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if _, exists := r.sources[s.Name()]; !exists {
			r.order = append(r.order, s.Name())
		}
		r.sources[s.Name()] = s
	}
	return r
}

// resolve maps a FROM/JOIN keyword to a registered Source: first by
// exact name, then by the fixed keyword-alias dictionary, then falling
// back to the registry's first-registered source. It errors only when
// the registry has no sources at all.
func (r *Registry) resolve(name string) (Source, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	if alias, ok := sourceKeywordAliases[name]; ok {
		if src, ok := r.sources[alias]; ok {
			return src, nil
		}
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("federation: no sources registered to serve %q", name)
	}
	return r.sources[r.order[0]], nil
}

// Plan is the set of dispatchable work derived from a parsed query: one
// job per referenced source, in the order the query names them so the
// merger can preserve per-source contiguity.
type Plan struct {
	Query *model.FederatedQuery
	Jobs  []Job
}

// Job is one source's unit of dispatchable work.
type Job struct {
	Source Source
	Query  *model.FederatedQuery
}

// Build resolves every source keyword referenced by q's FROM/JOIN
// clauses to a registered Source, by exact name, then keyword alias,
// then default fallback (Registry.resolve). It errors only if the
// registry has no sources registered at all.
func (r *Registry) Build(q *model.FederatedQuery) (*Plan, error) {
	seen := make(map[string]bool)
	var jobs []Job

	addJob := func(name string) error {
		src, err := r.resolve(name)
		if err != nil {
			return err
		}
		if seen[src.Name()] {
			return nil
		}
		seen[src.Name()] = true
		jobs = append(jobs, Job{Source: src, Query: q})
		return nil
	}

	for _, name := range q.From {
		if err := addJob(name); err != nil {
			return nil, err
		}
	}
	for _, j := range q.Joins {
		if err := addJob(j.Source); err != nil {
			return nil, err
		}
	}

	return &Plan{Query: q, Jobs: jobs}, nil
}
