package provenance

import (
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/model"
)

// ExportLinkedData renders chain as a linked-data bundle document:
// {id, agent, startedAt, members}, each member a typed entity or
// activity node carrying its salient attributes.
func ExportLinkedData(chain model.ProvenanceChain) jsonld.Node {
	bundle := jsonld.New(chain.ID, "prov:Bundle")
	bundle.Set("hyprcat:agent", chain.AgentDID)
	bundle.Set("prov:startedAtTime", chain.StartedAt)
	bundle.Set("hyprcat:sealed", chain.Sealed)

	members := make([]interface{}, 0, len(chain.Items))
	for _, item := range chain.Items {
		switch {
		case item.Entity != nil:
			n := jsonld.New(item.Entity.ID, "prov:Entity", item.Entity.Type)
			n.Set("prov:generatedAtTime", item.Entity.CreatedAt)
			for k, v := range item.Entity.Attributes {
				n.Set(k, v)
			}
			members = append(members, n.Raw())
		case item.Activity != nil:
			n := jsonld.New(item.Activity.ID, "prov:Activity", item.Activity.Type)
			n.Set("prov:startedAtTime", item.Activity.OccurredAt)
			n.Set("prov:used", item.Activity.UsedEntity)
			if item.Activity.GeneratedID != "" {
				n.Set("prov:generated", item.Activity.GeneratedID)
			}
			n.Set("hyprcat:agentDid", item.Activity.AgentDID)
			members = append(members, n.Raw())
		}
	}
	bundle.Set("hyprcat:member", members)
	return bundle
}

// FlatSummaryItem is one row of ExportFlatSummary's listing.
type FlatSummaryItem struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	OccurredAt string `json:"occurredAt"`
	UsedEntity string `json:"usedEntity,omitempty"`
}

// ExportFlatSummary renders chain as a flat chronological listing, the
// simpler of the two supported export encodings.
func ExportFlatSummary(chain model.ProvenanceChain) []FlatSummaryItem {
	out := make([]FlatSummaryItem, 0, len(chain.Items))
	for _, item := range chain.Items {
		switch {
		case item.Entity != nil:
			out = append(out, FlatSummaryItem{
				ID:         item.Entity.ID,
				Kind:       "entity",
				Type:       item.Entity.Type,
				OccurredAt: item.Entity.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		case item.Activity != nil:
			out = append(out, FlatSummaryItem{
				ID:         item.Activity.ID,
				Kind:       "activity",
				Type:       item.Activity.Type,
				OccurredAt: item.Activity.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
				UsedEntity: item.Activity.UsedEntity,
			})
		}
	}
	return out
}
