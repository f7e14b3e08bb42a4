package federation

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// MockSource is a canned data source: each Query call runs q's WHERE,
// ORDER BY, projection and LIMIT over its fixed row set, standing in
// for a real connector that would push the same clauses down to its
// own storage engine.
type MockSource struct {
	SourceName string
	Rows       []map[string]interface{}
}

// NewMockSource builds a MockSource seeded with rows.
func NewMockSource(name string, rows []map[string]interface{}) *MockSource {
	return &MockSource{SourceName: name, Rows: rows}
}

func (m *MockSource) Name() string { return m.SourceName }

// Query applies q's WHERE predicates, sorts on q's ORDER BY terms if
// present, projects down to q's SELECT columns, and trims to q's
// LIMIT, stamping every surviving row with the source node and the
// wall-clock time this call took to produce it.
func (m *MockSource) Query(q *model.FederatedQuery) ([]model.SourceResultItem, error) {
	started := time.Now()

	items := make([]model.SourceResultItem, 0, len(m.Rows))
	for _, row := range m.Rows {
		if !matchesWhere(row, q.Where) {
			continue
		}
		items = append(items, model.SourceResultItem{Source: m.SourceName, Row: project(row, q.Select)})
	}

	if len(q.OrderBy) > 0 {
		sortBlock(items, q.OrderBy)
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	elapsed := time.Since(started)
	for i := range items {
		items[i].Provenance = model.SourceProvenance{
			SourceNode:    m.SourceName,
			ExecutionTime: fmt.Sprintf("%dus", elapsed.Microseconds()),
		}
	}
	return items, nil
}

// project narrows row down to columns, returning row unchanged when
// columns is empty or is the "*" wildcard.
func project(row map[string]interface{}, columns []string) map[string]interface{} {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return row
	}
	out := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

func matchesWhere(row map[string]interface{}, preds []model.Predicate) bool {
	for _, p := range preds {
		if !matchPredicate(row[p.Field], p) {
			return false
		}
	}
	return true
}

func matchPredicate(rowVal interface{}, p model.Predicate) bool {
	if strings.EqualFold(p.Op, "LIKE") {
		return likeMatch(fmt.Sprint(rowVal), fmt.Sprint(p.Value))
	}

	cmp, ok := compareOperands(rowVal, p.Value)
	if !ok {
		return false
	}
	switch p.Op {
	case "=":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

// compareOperands coerces a and b to numbers if both parse as one,
// otherwise compares their string forms.
func compareOperands(a, b interface{}) (int, bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1, true
	case as > bs:
		return 1, true
	default:
		return 0, true
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// likeMatch implements a SQL-LIKE-lite match, case-insensitive. A
// pattern with no % requires an exact match; a pattern containing any %
// has every % removed and matches when the remaining text occurs
// anywhere in value, so the position of each % is not enforced and
// _ is not a wildcard.
func likeMatch(value, pattern string) bool {
	value = strings.ToLower(value)
	pattern = strings.ToLower(pattern)
	if !strings.Contains(pattern, "%") {
		return value == pattern
	}
	needle := strings.ReplaceAll(pattern, "%", "")
	return strings.Contains(value, needle)
}

// DefaultSources returns the canned prompts/datasets/pricing/usage/
// analytics sources a fresh deployment registers, matching the
// resources the seeded catalog advertises.
func DefaultSources() []Source {
	return []Source{
		NewMockSource("prompts", []map[string]interface{}{
			{"id": "prompt-summarize-v1", "price_minor": 50, "currency": "USD", "rating": 4.6},
			{"id": "prompt-translate-v2", "price_minor": 75, "currency": "USD", "rating": 4.2},
		}),
		NewMockSource("datasets", []map[string]interface{}{
			{"id": "dataset-market-ticks", "price_minor": 1200, "currency": "USD", "rows": 500000},
			{"id": "dataset-climate-2025", "price_minor": 900, "currency": "USD", "rows": 120000},
		}),
		NewMockSource("pricing", []map[string]interface{}{
			{"id": "plan-basic", "price_minor": 0, "currency": "USD"},
			{"id": "plan-pro", "price_minor": 2000, "currency": "USD"},
		}),
		NewMockSource("usage", []map[string]interface{}{
			{"id": "usage-window-24h", "calls": rand.Intn(10000)},
		}),
		NewMockSource("analytics", []map[string]interface{}{
			{"user_id": "user-1", "total_spend": float64(780)},
			{"user_id": "user-2", "total_spend": float64(1200)},
			{"user_id": "user-3", "total_spend": float64(640)},
			{"user_id": "user-4", "total_spend": float64(300)},
			{"user_id": "user-5", "total_spend": float64(150)},
		}),
	}
}
