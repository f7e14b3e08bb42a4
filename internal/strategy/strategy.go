// Package strategy implements the pluggable decision modules the agent
// runtime's Negotiate step consults each iteration: each declares
// {name, triggerTypes, description} and is selected by type
// intersection against the resource currently being observed.
package strategy

import "github.com/hyprcat/hyprcat/internal/jsonld"

// Context is everything a Strategy needs to decide what to do with the
// currently observed resource.
type Context struct {
	Resource      jsonld.Node
	WalletBalance int64
	MaxPrice      int64
	Visited       func(url string) bool
}

// Decision is a Strategy's proposed next action. A Decision with
// ShouldExecute set carries Operation/Input to run; otherwise
// NavigateTo names the next resource to visit.
type Decision struct {
	ShouldExecute bool
	Operation     *jsonld.Node
	Input         map[string]interface{}
	NavigateTo    string
	Reason        string
	Priority      int
}

// Strategy is a pluggable decision module. Matches gates whether
// Evaluate is even consulted for the current resource; custom
// strategies plug in through this same contract.
type Strategy interface {
	Name() string
	TriggerTypes() []string
	Description() string
	Matches(ctx Context) bool
	Evaluate(ctx Context) Decision
}

// matchesAnyType reports whether resource declares any of types.
func matchesAnyType(resource jsonld.Node, types []string) bool {
	for _, t := range types {
		if resource.HasType(t) {
			return true
		}
	}
	return false
}
