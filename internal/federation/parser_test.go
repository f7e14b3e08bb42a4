package federation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse(`SELECT name, price FROM retail WHERE price < 100 ORDER BY price DESC LIMIT 10`)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "price"}, q.Select)
	require.Equal(t, []string{"retail"}, q.From)
	require.Len(t, q.Where, 1)
	require.Equal(t, "price", q.Where[0].Field)
	require.Equal(t, "<", q.Where[0].Op)
	require.Equal(t, int64(100), q.Where[0].Value)
	require.Len(t, q.OrderBy, 1)
	require.True(t, q.OrderBy[0].Desc)
	require.Equal(t, 10, q.Limit)
}

func TestParseJoinAndUnionAll(t *testing.T) {
	q, err := Parse(`SELECT * FROM retail JOIN analytics ON retail.id = analytics.product_id UNION ALL SELECT * FROM learning`)
	require.NoError(t, err)
	require.Equal(t, []string{"*"}, q.Select)
	require.Equal(t, []string{"retail"}, q.From)
	require.Len(t, q.Joins, 1)
	require.Equal(t, "analytics", q.Joins[0].Source)
	require.Len(t, q.UnionAll, 1)
	require.Equal(t, []string{"learning"}, q.UnionAll[0].From)
}

func TestParseRejectsMalformedQuery(t *testing.T) {
	_, err := Parse(`SELECT name retail`)
	require.Error(t, err)
}

func TestParseStringPredicateValue(t *testing.T) {
	q, err := Parse(`SELECT * FROM catalog WHERE tier = 'gold'`)
	require.NoError(t, err)
	require.Equal(t, "gold", q.Where[0].Value)
}
