package federation

import (
	"sort"

	"github.com/hyprcat/hyprcat/internal/model"
)

// Merger combines per-source result blocks into a single result set.
// ORDER BY across federated sources is implementation-defined
// (Open Question resolved in DESIGN.md): per-source contiguity is
// preserved — all of source A's rows precede all of source B's rows, in
// plan/FROM order — and ORDER BY is applied only within each source's
// own block before the blocks are concatenated.
type Merger struct{}

// Merge concatenates perSourceResults (one slice per plan job, already
// in plan order) applying q's ORDER BY within each block and q's LIMIT
// to the final concatenation.
func (Merger) Merge(q *model.FederatedQuery, perSourceResults [][]model.SourceResultItem) []model.SourceResultItem {
	var out []model.SourceResultItem

	for _, block := range perSourceResults {
		sorted := append([]model.SourceResultItem(nil), block...)
		if len(q.OrderBy) > 0 {
			sortBlock(sorted, q.OrderBy)
		}
		out = append(out, sorted...)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func sortBlock(items []model.SourceResultItem, terms []model.OrderTerm) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, term := range terms {
			a, aok := items[i].Row[term.Field]
			b, bok := items[j].Row[term.Field]
			if !aok || !bok {
				continue
			}
			cmp := compareValues(a, b)
			if cmp == 0 {
				continue
			}
			if term.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
