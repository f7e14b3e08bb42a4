package governance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// minPaymentProofLength is the shortest proof ConfirmPayment accepts.
// A real settlement network would cryptographically verify the proof;
// here only its length is checked, matching a pay-facilitator that
// hands back an opaque settlement token of at least this length.
const minPaymentProofLength = 32

// invoiceRecipient is the DID every invoice is made payable to,
// standing in for the gateway operator's own settlement identity.
const invoiceRecipient = "did:hyprcat:treasury"

// PaymentPipeline implements the 402 invoice -> hold -> proof-verify ->
// debit -> receipt lifecycle, generalized from an escrowed-fund shape:
// HoldFunds becomes IssueInvoice, ReleaseFunds becomes ConfirmPayment
// (verify proof, debit wallet, emit receipt), RefundFunds becomes
// RejectInvoice.
type PaymentPipeline struct {
	vault   *InvoiceVault
	gate    *TaskGate
	wallets *wallet.Store
	secret  []byte
	ttl     time.Duration
}

// NewPaymentPipeline wires a PaymentPipeline over wallets, signing
// payment proofs with secret.
func NewPaymentPipeline(wallets *wallet.Store, secret string, ttl time.Duration) *PaymentPipeline {
	return &PaymentPipeline{
		vault:   NewInvoiceVault(),
		gate:    NewTaskGate(),
		wallets: wallets,
		secret:  []byte(secret),
		ttl:     ttl,
	}
}

// IssueInvoice opens a payment hold for a 402 response, rejecting a
// second concurrent invoice from the same payer (TaskGate).
func (p *PaymentPipeline) IssueInvoice(payerDID, resourceID string, amountMinor int64, currency string) (*model.Invoice, error) {
	inv := &model.Invoice{
		ID:            "urn:uuid:" + uuid.NewString(),
		ResourceID:    resourceID,
		PayerDID:      payerDID,
		Recipient:     invoiceRecipient,
		AmountMinor:   amountMinor,
		Currency:      currency,
		Bolt11:        "ln" + uuid.NewString(),
		PaymentHeader: "X-Payment",
		InvoiceHeader: "X-Invoice-Id",
		Status:        model.InvoicePending,
		IssuedAt:      time.Now(),
		ExpiresAt:     time.Now().Add(p.ttl),
	}

	if err := p.gate.Acquire(payerDID, inv.ID); err != nil {
		return nil, err
	}
	p.vault.Add(inv)
	return inv, nil
}

// SignProof produces one valid payment-proof a payer can present back
// to confirm an invoice: an HMAC over the invoice id bound to the
// pipeline's payment secret. It is not the only proof ConfirmPayment
// accepts — any proof at least minPaymentProofLength bytes settles,
// matching a facilitator that hands back an opaque settlement token
// rather than a value this gateway itself can re-derive.
func (p *PaymentPipeline) SignProof(invoiceID string) []byte {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(invoiceID))
	return mac.Sum(nil)
}

// ConfirmPayment verifies proof against invoiceID, debits the payer's
// wallet, resolves the invoice, and returns a Receipt.
func (p *PaymentPipeline) ConfirmPayment(invoiceID string, proof []byte) (*model.Receipt, error) {
	inv, ok := p.vault.Get(invoiceID)
	if !ok {
		return nil, fmt.Errorf("governance: invoice %s not found or already resolved", invoiceID)
	}
	defer p.gate.Release(inv.PayerDID)

	if time.Now().After(inv.ExpiresAt) {
		p.vault.Resolve(invoiceID, model.InvoiceExpired)
		return nil, fmt.Errorf("governance: invoice %s expired", invoiceID)
	}
	if len(proof) < minPaymentProofLength {
		return nil, fmt.Errorf("governance: invalid payment proof for invoice %s (length %d < %d)", invoiceID, len(proof), minPaymentProofLength)
	}

	if _, err := p.wallets.Debit(inv.PayerDID, inv.AmountMinor); err != nil {
		return nil, fmt.Errorf("governance: debit failed for invoice %s: %w", invoiceID, err)
	}

	p.vault.Resolve(invoiceID, model.InvoiceSettled)

	return &model.Receipt{
		ID:         "urn:uuid:" + uuid.NewString(),
		InvoiceID:  inv.ID,
		ResourceID: inv.ResourceID,
		PayerDID:   inv.PayerDID,
		Amount:     inv.AmountMinor,
		Currency:   inv.Currency,
		Proof:      base64.StdEncoding.EncodeToString(proof),
		Status:     model.ReceiptConfirmed,
		SettledAt:  time.Now(),
	}, nil
}

// RejectInvoice releases the hold on invoiceID without a debit.
func (p *PaymentPipeline) RejectInvoice(invoiceID string) error {
	inv, ok := p.vault.Resolve(invoiceID, model.InvoiceRejected)
	if !ok {
		return fmt.Errorf("governance: invoice %s not found or already resolved", invoiceID)
	}
	p.gate.Release(inv.PayerDID)
	return nil
}

// SweepExpiredInvoices releases stale holds; intended to run on a
// ticker.
func (p *PaymentPipeline) SweepExpiredInvoices() []*model.Invoice {
	expired := p.vault.ExpireStale()
	for _, inv := range expired {
		p.gate.Release(inv.PayerDID)
	}
	return expired
}
