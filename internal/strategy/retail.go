package strategy

import "github.com/hyprcat/hyprcat/internal/jsonld"

// Retail proposes buying the first affordable, in-stock product among
// the current resource's members.
type Retail struct{}

func (Retail) Name() string           { return "retail" }
func (Retail) TriggerTypes() []string { return []string{"hydra:Collection"} }
func (Retail) Description() string    { return "buys the first in-stock product within budget" }

func (Retail) Matches(ctx Context) bool {
	for _, m := range ctx.Resource.Members() {
		if m.HasType("hyprcat:RetailItem") {
			return true
		}
	}
	return false
}

func (Retail) Evaluate(ctx Context) Decision {
	for _, m := range ctx.Resource.Members() {
		if !m.HasType("hyprcat:RetailItem") {
			continue
		}
		price, hasPrice := m.GetFloat("schema:price")
		stock, hasStock := m.GetFloat("schema:stock")
		if !hasPrice || !hasStock {
			continue
		}
		priceMinor := int64(price)
		if stock <= 0 || priceMinor > ctx.MaxPrice || ctx.WalletBalance < priceMinor {
			continue
		}

		ops := m.Operations()
		if len(ops) == 0 {
			continue
		}
		buyOp := findBuyOperation(ops)
		if buyOp == nil {
			continue
		}

		return Decision{
			ShouldExecute: true,
			Operation:     buyOp,
			Input: map[string]interface{}{
				"resourceId":  m.ID(),
				"amountMinor": price,
				"currency":    "USD",
			},
			Reason:   "in-stock product within budget",
			Priority: 10,
		}
	}
	return Decision{Reason: "no affordable in-stock product found"}
}

func findBuyOperation(ops []jsonld.Node) *jsonld.Node {
	for i := range ops {
		if ops[i].GetString("hydra:method") == "POST" {
			return &ops[i]
		}
	}
	return nil
}
