package federation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	name  string
	rows  []model.SourceResultItem
	delay time.Duration
	err   error
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Query(q *model.FederatedQuery) ([]model.SourceResultItem, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func rows(source string, vals ...float64) []model.SourceResultItem {
	var out []model.SourceResultItem
	for _, v := range vals {
		out = append(out, model.SourceResultItem{Source: source, Row: map[string]interface{}{"price": v}})
	}
	return out
}

func TestPlannerUnknownSourceFallsBackToDefault(t *testing.T) {
	reg := NewRegistry(&mockSource{name: "retail"})
	q, err := Parse(`SELECT * FROM widgets`)
	require.NoError(t, err)
	plan, err := reg.Build(q)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 1)
	require.Equal(t, "retail", plan.Jobs[0].Source.Name())
}

func TestPlannerResolvesKeywordAlias(t *testing.T) {
	reg := NewRegistry(&mockSource{name: "pricing"})
	q, err := Parse(`SELECT * FROM sales`)
	require.NoError(t, err)
	plan, err := reg.Build(q)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 1)
	require.Equal(t, "pricing", plan.Jobs[0].Source.Name())
}

func TestPlannerEmptyRegistryErrors(t *testing.T) {
	reg := NewRegistry()
	q, err := Parse(`SELECT * FROM analytics`)
	require.NoError(t, err)
	_, err = reg.Build(q)
	require.Error(t, err)
}

func TestPlannerDedupesRepeatedSourceNames(t *testing.T) {
	reg := NewRegistry(&mockSource{name: "retail"})
	q, err := Parse(`SELECT * FROM retail JOIN retail ON retail.id = retail.id`)
	require.NoError(t, err)
	plan, err := reg.Build(q)
	require.NoError(t, err)
	require.Len(t, plan.Jobs, 1)
}

func TestDispatcherRunsJobsConcurrentlyAndPreservesOrder(t *testing.T) {
	retail := &mockSource{name: "retail", rows: rows("retail", 30, 10, 20)}
	analytics := &mockSource{name: "analytics", rows: rows("analytics", 5, 1)}
	reg := NewRegistry(retail, analytics)

	q, err := Parse(`SELECT * FROM retail JOIN analytics ON retail.id = analytics.id`)
	require.NoError(t, err)
	plan, err := reg.Build(q)
	require.NoError(t, err)

	d := NewDispatcher(4, time.Second)
	defer d.Shutdown()

	results, errs := d.Execute(plan)
	require.Len(t, results, 2)
	for _, e := range errs {
		require.NoError(t, e)
	}
	require.Len(t, results[0], 3)
	require.Len(t, results[1], 2)
}

func TestDispatcherTimesOutSlowSource(t *testing.T) {
	slow := &mockSource{name: "slow", delay: 50 * time.Millisecond}
	reg := NewRegistry(slow)
	q, err := Parse(`SELECT * FROM slow`)
	require.NoError(t, err)
	plan, err := reg.Build(q)
	require.NoError(t, err)

	d := NewDispatcher(2, 5*time.Millisecond)
	defer d.Shutdown()

	_, errs := d.Execute(plan)
	require.Error(t, errs[0])
}

func TestMergerPreservesPerSourceContiguityAndSortsWithinBlock(t *testing.T) {
	perSource := [][]model.SourceResultItem{
		rows("retail", 30, 10, 20),
		rows("analytics", 5, 1),
	}
	q := &model.FederatedQuery{OrderBy: []model.OrderTerm{{Field: "price"}}}

	merged := Merger{}.Merge(q, perSource)
	require.Len(t, merged, 5)
	require.Equal(t, "retail", merged[0].Source)
	require.Equal(t, 10.0, merged[0].Row["price"])
	require.Equal(t, 20.0, merged[1].Row["price"])
	require.Equal(t, 30.0, merged[2].Row["price"])
	require.Equal(t, "analytics", merged[3].Source)
	require.Equal(t, 1.0, merged[3].Row["price"])
	require.Equal(t, 5.0, merged[4].Row["price"])
}

func TestMergerAppliesLimitAfterConcatenation(t *testing.T) {
	perSource := [][]model.SourceResultItem{rows("retail", 1, 2, 3)}
	q := &model.FederatedQuery{Limit: 2}
	merged := Merger{}.Merge(q, perSource)
	require.Len(t, merged, 2)
}

func TestEngineQueryEndToEnd(t *testing.T) {
	retail := &mockSource{name: "retail", rows: rows("retail", 30, 10)}
	reg := NewRegistry(retail)
	d := NewDispatcher(2, time.Second)
	defer d.Shutdown()

	e := NewEngine(reg, d, nil, time.Minute)
	items, err := e.Query(context.Background(), `SELECT * FROM retail ORDER BY price LIMIT 1`, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 10.0, items[0].Row["price"])
}

func TestEngineQueryPropagatesSourceError(t *testing.T) {
	broken := &mockSource{name: "broken", err: fmt.Errorf("boom")}
	reg := NewRegistry(broken)
	d := NewDispatcher(2, time.Second)
	defer d.Shutdown()

	e := NewEngine(reg, d, nil, time.Minute)
	_, err := e.Query(context.Background(), `SELECT * FROM broken`, 100)
	require.Error(t, err)
}

func TestEngineEnforcesHardCapLimit(t *testing.T) {
	retail := &mockSource{name: "retail", rows: rows("retail", 1, 2, 3, 4, 5)}
	reg := NewRegistry(retail)
	d := NewDispatcher(2, time.Second)
	defer d.Shutdown()

	e := NewEngine(reg, d, nil, time.Minute)
	items, err := e.Query(context.Background(), `SELECT * FROM retail LIMIT 1000`, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
}
