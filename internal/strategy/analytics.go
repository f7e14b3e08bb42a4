package strategy

import (
	"strings"

	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// Analytics prefers a query affordance on data-product or
// virtual-graph resources, falling back to a download affordance, per
// the resource's fallback ordering.
type Analytics struct {
	DefaultQuery string
}

func (Analytics) Name() string { return "analytics" }
func (Analytics) TriggerTypes() []string {
	return []string{"hyprcat:DataProduct", "hyprcat:VirtualGraph"}
}
func (Analytics) Description() string { return "runs a query or download against a data product" }

func (a Analytics) Matches(ctx Context) bool {
	return matchesAnyType(ctx.Resource, a.TriggerTypes())
}

func (a Analytics) Evaluate(ctx Context) Decision {
	ops := ctx.Resource.Operations()

	for i := range ops {
		if isQueryOperation(ops[i]) {
			query := a.DefaultQuery
			if query == "" {
				query = "SELECT * FROM catalog LIMIT 10"
			}
			return Decision{
				ShouldExecute: true,
				Operation:     &ops[i],
				Input:         map[string]interface{}{"query": query},
				Reason:        "query affordance available",
				Priority:      8,
			}
		}
	}

	for i := range ops {
		if isDownloadOperation(ops[i]) {
			return Decision{
				ShouldExecute: true,
				Operation:     &ops[i],
				Reason:        "download affordance available",
				Priority:      6,
			}
		}
	}

	return Decision{Reason: "no query or download affordance found"}
}

func isQueryOperation(op jsonld.Node) bool {
	return strings.Contains(strings.ToLower(op.GetString("hydra:title")), "query")
}

func isDownloadOperation(op jsonld.Node) bool {
	return strings.Contains(strings.ToLower(op.GetString("hydra:title")), "download")
}
