package governance

import (
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/model"
)

// InvoiceVault holds invoices between "issue" and "confirm/reject",
// a map+mutex shape holding an escrowed-fund-style lifecycle.
type InvoiceVault struct {
	mu       sync.Mutex
	invoices map[string]*model.Invoice
}

// NewInvoiceVault creates an empty vault.
func NewInvoiceVault() *InvoiceVault {
	return &InvoiceVault{invoices: make(map[string]*model.Invoice)}
}

// Add records a newly issued invoice.
func (v *InvoiceVault) Add(inv *model.Invoice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invoices[inv.ID] = inv
}

// Get returns the invoice by id, if still pending/known.
func (v *InvoiceVault) Get(id string) (*model.Invoice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	inv, ok := v.invoices[id]
	return inv, ok
}

// Resolve transitions an invoice out of pending status and stops
// tracking it.
func (v *InvoiceVault) Resolve(id string, status model.InvoiceStatus) (*model.Invoice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	inv, ok := v.invoices[id]
	if !ok {
		return nil, false
	}
	inv.Status = status
	delete(v.invoices, id)
	return inv, true
}

// ExpireStale marks and removes invoices past their expiry, mirroring
// a periodic expiry sweep over the pending map.
func (v *InvoiceVault) ExpireStale() []*model.Invoice {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	var expired []*model.Invoice
	for id, inv := range v.invoices {
		if now.After(inv.ExpiresAt) {
			inv.Status = model.InvoiceExpired
			expired = append(expired, inv)
			delete(v.invoices, id)
		}
	}
	return expired
}
