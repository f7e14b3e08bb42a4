// Package catalog seeds and serves the hypermedia resource mesh: the
// service description, root document, catalog collection, retail store,
// data product, learning-record resource, and prompts collection that a
// navigator discovers by walking hydra:operation/hydra:link affordances
// from the well-known entry point.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/store"
)

// Service is the catalog-driven registry of resources: a
// sync.RWMutex-guarded map with Register/Get/Delete/List, but backed by
// store.Backend instead of a bare in-process map, so the same catalog
// survives the memory/file/postgres backend choice.
type Service struct {
	backend store.Backend
	baseURL string
}

// NewService wraps backend for catalog operations rooted at baseURL
// (used to build absolute resource ids during seeding).
func NewService(backend store.Backend, baseURL string) *Service {
	return &Service{backend: backend, baseURL: strings.TrimRight(baseURL, "/")}
}

// SeedMesh writes the well-known hypermedia mesh, overwriting any
// resource already stored under one of its fixed ids. It is idempotent:
// re-running it stores the same nodes under the same ids again.
func (s *Service) SeedMesh(ctx context.Context) error {
	for _, n := range s.seedNodes() {
		if err := s.backend.Put(ctx, n); err != nil {
			return fmt.Errorf("catalog: seed %s: %w", n.ID(), err)
		}
	}
	return nil
}

func (s *Service) id(path string) string { return s.baseURL + path }

func (s *Service) seedNodes() []jsonld.Node {
	root := jsonld.New(s.id("/"), "hydra:EntryPoint")
	root.Set("hydra:operation", []interface{}{
		op("GET", s.id("/"), "Describe the entry point"),
	})
	root.Set("hydra:link", []interface{}{
		link(s.id("/.well-known/hyprcat"), "service-description"),
		link(s.id("/catalog"), "catalog"),
	})

	serviceDesc := jsonld.New(s.id("/.well-known/hyprcat"), "hydra:ApiDocumentation")
	serviceDesc.Set("schema:name", "HyprCAT Gateway")
	serviceDesc.Set("hydra:link", []interface{}{
		link(s.id("/catalog"), "catalog"),
	})

	catalogCollection := jsonld.New(s.id("/catalog"), "hydra:Collection")
	catalogCollection.Set("schema:name", "HyprCAT Catalog")
	catalogCollection.Set("hydra:member", []interface{}{
		link(s.id("/store"), "item"),
		link(s.id("/data/graph"), "item"),
		link(s.id("/learning-records"), "item"),
		link(s.id("/prompts"), "item"),
	})
	catalogCollection.Set("hydra:operation", []interface{}{
		op("GET", s.id("/catalog"), "List catalog members"),
	})

	retailStore := jsonld.New(s.id("/store"), "schema:Store", "hyprcat:RetailStore")
	retailStore.Set("schema:name", "HyprCAT Retail Store")
	retailStore.Set("hydra:link", []interface{}{
		link(s.id("/store/products"), "item"),
	})

	products := jsonld.New(s.id("/store/products"), "hydra:Collection")
	products.Set("schema:name", "Retail Products")
	products.Set("hydra:member", []interface{}{
		retailItem(s.id, "widget-standard", "Standard Widget", 500, 25),
		retailItem(s.id, "widget-deluxe", "Deluxe Widget", 1500, 3),
		retailItem(s.id, "widget-sold-out", "Sold Out Widget", 100, 0),
	})

	dataProduct := jsonld.New(s.id("/data/graph"), "hyprcat:DataProduct")
	dataProduct.Set("schema:name", "Virtual Data Graph")
	dataProduct.Set("schema:description", "Federated query surface over the prompts, datasets, pricing, and usage sources")
	dataProduct.Set("schema:price", float64(0))
	dataProduct.Set("hyprcat:domain", "analytics")
	dataProduct.Set("hydra:operation", []interface{}{
		opWithExpects("POST", s.id("/operations/query"), "Run a federated query", []interface{}{
			map[string]interface{}{"property": "query", "required": true, "datatype": "string", "minLength": float64(1)},
		}),
	})

	learningRecords := jsonld.New(s.id("/learning-records"), "hyprcat:LearningRecordResource")
	learningRecords.Set("schema:name", "Learning Record Store")
	learningRecords.Set("hydra:operation", []interface{}{
		op("GET", s.id("/operations/lrs/export"), "List learning records"),
	})

	prompts := jsonld.New(s.id("/prompts"), "hydra:Collection", "hyprcat:PromptCollection")
	prompts.Set("schema:name", "Prompt Library")
	prompts.Set("hydra:operation", []interface{}{
		op("GET", s.id("/prompts"), "List prompts"),
	})

	return []jsonld.Node{root, serviceDesc, catalogCollection, retailStore, products, dataProduct, learningRecords, prompts}
}

// retailItem builds a hyprcat:RetailItem member node carrying the
// price/stock/buy affordance the Retail strategy (internal/strategy)
// looks for.
func retailItem(id func(string) string, slug, name string, priceMinor int64, stock int) map[string]interface{} {
	n := jsonld.New(id("/store/products/"+slug), "hyprcat:RetailItem")
	n.Set("schema:name", name)
	n.Set("schema:description", name+" sold through the retail store")
	n.Set("schema:price", float64(priceMinor))
	n.Set("schema:stock", float64(stock))
	n.Set("hyprcat:domain", "retail")
	n.Set("hydra:operation", []interface{}{
		opWithExpects("POST", id("/operations/checkout"), "Buy "+name, []interface{}{
			map[string]interface{}{"property": "resourceId", "required": true, "datatype": "string", "minLength": float64(1)},
			map[string]interface{}{"property": "amountMinor", "required": true, "datatype": "integer", "minInclusive": float64(1)},
			map[string]interface{}{"property": "currency", "required": true, "datatype": "string", "in": []interface{}{"USD", "EUR", "GBP"}},
		}),
	})
	return n.Raw()
}

func op(method, target, title string) map[string]interface{} {
	return map[string]interface{}{
		"hydra:method": method,
		"hydra:target": target,
		"hydra:title":  title,
	}
}

// opWithExpects is op plus a hyprcat:expects property-shape list the
// client navigator validates operation input against before executing.
func opWithExpects(method, target, title string, expects []interface{}) map[string]interface{} {
	o := op(method, target, title)
	o["hyprcat:expects"] = expects
	return o
}

func link(target, rel string) map[string]interface{} {
	return map[string]interface{}{
		"@id":  target,
		"rel":  rel,
	}
}

// Register adds or replaces a resource in the catalog and links it
// into the root catalog collection's member list. Agents/tenants
// extend the mesh at runtime the same way a tool catalog lets callers
// register tools dynamically instead of hardcoding them.
func (s *Service) Register(ctx context.Context, n jsonld.Node) error {
	if n.ID() == "" {
		return fmt.Errorf("catalog: resource @id is required")
	}
	if len(n.Types()) == 0 {
		return fmt.Errorf("catalog: resource @type is required")
	}
	if err := s.backend.Put(ctx, n); err != nil {
		return err
	}
	return s.linkIntoRoot(ctx, n)
}

// linkIntoRoot appends a reference to n onto the root catalog
// collection's hydra:member list, so newly registered resources are
// discoverable from /catalog without a direct lookup.
func (s *Service) linkIntoRoot(ctx context.Context, n jsonld.Node) error {
	root, err := s.backend.Get(ctx, s.id("/catalog"))
	if err != nil {
		return fmt.Errorf("catalog: link into root: %w", err)
	}
	members, _ := root.Get("hydra:member")
	list, _ := members.([]interface{})
	root.Set("hydra:member", append(list, link(n.ID(), "item")))
	return s.backend.Put(ctx, root)
}

// Get fetches a single resource by id.
func (s *Service) Get(ctx context.Context, id string) (jsonld.Node, error) {
	return s.backend.Get(ctx, id)
}

// Delete removes a resource from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// List paginates all catalog resources.
func (s *Service) List(ctx context.Context, offset, limit int) ([]jsonld.Node, int, error) {
	return s.backend.List(ctx, offset, limit)
}

// maxSearchPageSize is the most results Search ever returns from a
// single page, regardless of the caller-requested pageSize.
const maxSearchPageSize = 100

// Search performs a case-insensitive substring search across the
// schema:name, schema:description and @id of every resource (a
// case-insensitive substring search across connector/template/
// installation maps, generalized to the JSON-LD catalog), optionally
// narrowed to a declared @type and an exact hyprcat:domain match.
// Results are ordered by ascending @id and paginated; it returns the
// page's nodes plus the total match count across all pages.
func (s *Service) Search(ctx context.Context, query, typ, domain string, page, pageSize int) ([]jsonld.Node, int, error) {
	all, _, err := s.backend.List(ctx, 0, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: search: %w", err)
	}

	needle := strings.ToLower(query)
	matches := make([]jsonld.Node, 0)
	for _, n := range all {
		if typ != "" && !n.HasType(typ) {
			continue
		}
		if domain != "" && n.GetString("hyprcat:domain") != domain {
			continue
		}
		if needle != "" {
			name := strings.ToLower(n.GetString("schema:name"))
			desc := strings.ToLower(n.GetString("schema:description"))
			id := strings.ToLower(n.ID())
			if !strings.Contains(name, needle) && !strings.Contains(desc, needle) && !strings.Contains(id, needle) {
				continue
			}
		}
		matches = append(matches, n)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID() < matches[j].ID() })

	total := len(matches)
	if pageSize <= 0 || pageSize > maxSearchPageSize {
		pageSize = maxSearchPageSize
	}
	if page < 0 {
		page = 0
	}
	start := page * pageSize
	if start >= total {
		return []jsonld.Node{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}
