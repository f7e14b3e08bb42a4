package governance

import (
	"fmt"
	"sync"
)

// TaskGate enforces "one in-flight invoice at a time" per payer DID,
// an Acquire/Release pair over a map[string]string, so a payer can't
// race two concurrent payment flows against the same resource into a
// double debit.
type TaskGate struct {
	mu     sync.Mutex
	active map[string]string // payerDID -> invoiceID
}

// NewTaskGate creates an empty gate.
func NewTaskGate() *TaskGate {
	return &TaskGate{active: make(map[string]string)}
}

// Acquire locks payerDID to invoiceID, failing if another invoice is
// already in flight for that payer.
func (g *TaskGate) Acquire(payerDID, invoiceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, busy := g.active[payerDID]; busy {
		return fmt.Errorf("governance: payer %s already has invoice %s in flight", payerDID, existing)
	}
	g.active[payerDID] = invoiceID
	return nil
}

// Release frees payerDID to start a new payment flow.
func (g *TaskGate) Release(payerDID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, payerDID)
}
