package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/model"
)

// writeLD encodes n as a JSON-LD document with the given status code.
func writeLD(w http.ResponseWriter, status int, n jsonld.Node) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(n)
}

// invoiceNode wraps inv as the x402:PaymentRequired body a 402 response
// carries: the bolt11/payment-header/invoice-header fields an x402
// facilitator needs to complete the round trip.
func invoiceNode(inv *model.Invoice) jsonld.Node {
	n := jsonld.New(inv.ID, "x402:PaymentRequired")
	n.Set("x402:invoiceId", inv.ID)
	n.Set("x402:recipient", inv.Recipient)
	n.Set("x402:bolt11", inv.Bolt11)
	n.Set("x402:paymentHeader", inv.PaymentHeader)
	n.Set("x402:invoiceHeader", inv.InvoiceHeader)
	n.Set("schema:price", float64(inv.AmountMinor))
	n.Set("schema:priceCurrency", inv.Currency)
	n.Set("x402:status", string(inv.Status))
	n.Set("x402:issuedAt", inv.IssuedAt.UTC().Format(time.RFC3339))
	n.Set("x402:expiresAt", inv.ExpiresAt.UTC().Format(time.RFC3339))
	return n
}

// receiptNode wraps receipt as an x402:Receipt fragment, nested inside
// a confirmed checkout's schema:Order body.
func receiptNode(receipt *model.Receipt) jsonld.Node {
	n := jsonld.New(receipt.ID, "x402:Receipt")
	n.Set("x402:invoiceId", receipt.InvoiceID)
	n.Set("x402:payerDid", receipt.PayerDID)
	n.Set("x402:proof", receipt.Proof)
	n.Set("x402:status", string(receipt.Status))
	n.Set("x402:settledAt", receipt.SettledAt.UTC().Format(time.RFC3339))
	return n
}

// orderNode wraps a settled checkout as the schema:Order the payer
// receives in place of the plain receipt, with the settlement receipt
// nested under x402:paymentReceipt.
func orderNode(receipt *model.Receipt) jsonld.Node {
	n := jsonld.New("urn:uuid:order-"+receipt.InvoiceID, "schema:Order")
	n.Set("schema:orderedItem", receipt.ResourceID)
	n.Set("schema:price", float64(receipt.Amount))
	n.Set("schema:priceCurrency", receipt.Currency)
	n.Set("schema:orderStatus", string(receipt.Status))
	n.Set("x402:paymentReceipt", receiptNode(receipt).Raw())
	return n
}

// resultSetNode wraps a federated query's merged rows as a
// czero:ResultSet, citing the activity that generated it and the
// distinct sources the dispatcher fanned out to.
func resultSetNode(items []model.SourceResultItem, elapsed time.Duration, activity *model.ProvenanceActivity) jsonld.Node {
	n := jsonld.New("urn:uuid:resultset", "czero:ResultSet")
	n.Set("hyprcat:items", items)
	n.Set("czero:totalResults", float64(len(items)))
	n.Set("czero:queryLanguage", "hyprql")
	n.Set("czero:executionTime", fmt.Sprintf("%dms", elapsed.Milliseconds()))
	n.Set("czero:sources", resultSources(items))
	if activity != nil {
		n.Set("prov:wasGeneratedBy", activity.ID)
	}
	return n
}

func resultSources(items []model.SourceResultItem) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, item := range items {
		if !seen[item.Source] {
			seen[item.Source] = true
			sources = append(sources, item.Source)
		}
	}
	return sources
}
