package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/strategy"
)

func retailCollection() jsonld.Node {
	return jsonld.NewNode(map[string]interface{}{
		"@id":   "http://gw/store/products",
		"@type": "hydra:Collection",
		"hydra:member": []interface{}{
			map[string]interface{}{
				"@id":          "http://gw/store/products/out-of-stock",
				"@type":        "hyprcat:RetailItem",
				"schema:price": float64(100),
				"schema:stock": float64(0),
			},
			map[string]interface{}{
				"@id":          "http://gw/store/products/too-expensive",
				"@type":        "hyprcat:RetailItem",
				"schema:price": float64(9000),
				"schema:stock": float64(5),
			},
			map[string]interface{}{
				"@id":          "http://gw/store/products/affordable",
				"@type":        "hyprcat:RetailItem",
				"schema:price": float64(250),
				"schema:stock": float64(3),
				"hydra:operation": []interface{}{
					map[string]interface{}{"hydra:method": "POST", "hydra:target": "http://gw/operations/checkout"},
				},
			},
		},
	})
}

func TestRetailMatchesCollectionWithRetailItems(t *testing.T) {
	var r strategy.Retail
	require.True(t, r.Matches(strategy.Context{Resource: retailCollection()}))
}

func TestRetailPicksFirstAffordableInStockItem(t *testing.T) {
	var r strategy.Retail
	decision := r.Evaluate(strategy.Context{
		Resource:      retailCollection(),
		WalletBalance: 1000,
		MaxPrice:      5000,
	})
	require.True(t, decision.ShouldExecute)
	require.Equal(t, "http://gw/store/products/affordable", decision.Input["resourceId"])
	require.Equal(t, "POST", decision.Operation.GetString("hydra:method"))
}

func TestRetailSkipsWhenBalanceTooLow(t *testing.T) {
	var r strategy.Retail
	decision := r.Evaluate(strategy.Context{
		Resource:      retailCollection(),
		WalletBalance: 10,
		MaxPrice:      5000,
	})
	require.False(t, decision.ShouldExecute)
}

func dataProduct(title string) jsonld.Node {
	return jsonld.NewNode(map[string]interface{}{
		"@id":   "http://gw/data/graph",
		"@type": "hyprcat:DataProduct",
		"hydra:operation": []interface{}{
			map[string]interface{}{"hydra:method": "POST", "hydra:target": "http://gw/operations/query", "hydra:title": title},
		},
	})
}

func TestAnalyticsPrefersQueryOverDownload(t *testing.T) {
	a := strategy.Analytics{DefaultQuery: "SELECT * FROM catalog LIMIT 5"}
	decision := a.Evaluate(strategy.Context{Resource: dataProduct("Query Data Product")})
	require.True(t, decision.ShouldExecute)
	require.Equal(t, "SELECT * FROM catalog LIMIT 5", decision.Input["query"])
	require.Equal(t, 8, decision.Priority)
}

func TestAnalyticsFallsBackToDownload(t *testing.T) {
	a := strategy.Analytics{}
	decision := a.Evaluate(strategy.Context{Resource: dataProduct("Download Export")})
	require.True(t, decision.ShouldExecute)
	require.Equal(t, 6, decision.Priority)
}

func TestAnalyticsNoOpWithoutMatchingAffordance(t *testing.T) {
	a := strategy.Analytics{}
	resource := jsonld.NewNode(map[string]interface{}{"@type": "hyprcat:DataProduct"})
	decision := a.Evaluate(strategy.Context{Resource: resource})
	require.False(t, decision.ShouldExecute)
}
