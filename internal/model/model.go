// Package model defines the plain domain structs exchanged between
// HyprCAT's components: wallets, payment documents, identity challenges
// and sessions, provenance records, and federation query shapes.
package model

import "time"

// Wallet tracks an agent's spendable balance, issued access tokens, and
// active subscriptions. Held by internal/wallet behind per-DID sharded
// locks.
type Wallet struct {
	DID           string            `json:"did"`
	Balance       int64             `json:"balance_minor_units"`
	Currency      string            `json:"currency"`
	Tokens        map[string]Token  `json:"tokens"`
	Subscriptions map[string]Subscription `json:"subscriptions"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Token is a gate token granting access to a specific resource or scope.
type Token struct {
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Subscription grants recurring access until an expiry.
type Subscription struct {
	PlanID    string    `json:"plan_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvoiceStatus is the lifecycle state of a payment invoice.
type InvoiceStatus string

const (
	InvoicePending  InvoiceStatus = "pending"
	InvoiceSettled  InvoiceStatus = "settled"
	InvoiceRejected InvoiceStatus = "rejected"
	InvoiceExpired  InvoiceStatus = "expired"
)

// Invoice is issued in response to a 402 and held until a payment proof
// settles or rejects it.
type Invoice struct {
	ID            string        `json:"id"`
	ResourceID    string        `json:"resource_id"`
	PayerDID      string        `json:"payer_did"`
	Recipient     string        `json:"recipient"`
	AmountMinor   int64         `json:"amount_minor_units"`
	Currency      string        `json:"currency"`
	Bolt11        string        `json:"bolt11"`
	PaymentHeader string        `json:"payment_header"`
	InvoiceHeader string        `json:"invoice_header"`
	Status        InvoiceStatus `json:"status"`
	IssuedAt      time.Time     `json:"issued_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// ReceiptStatus is the settlement outcome recorded on a Receipt.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptFailed    ReceiptStatus = "failed"
)

// Receipt is emitted once an Invoice settles, and is the durable proof
// of payment handed back to the payer.
type Receipt struct {
	ID         string        `json:"id"`
	InvoiceID  string        `json:"invoice_id"`
	ResourceID string        `json:"resource_id"`
	PayerDID   string        `json:"payer_did"`
	Amount     int64         `json:"amount_minor_units"`
	Currency   string        `json:"currency"`
	Proof      string        `json:"proof"`
	Status     ReceiptStatus `json:"status"`
	SettledAt  time.Time     `json:"settled_at"`
}

// ChallengeStatus is the lifecycle state of a nonce-challenge identity
// handshake.
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeVerified ChallengeStatus = "verified"
	ChallengeExpired  ChallengeStatus = "expired"
)

// Challenge is a single-use nonce issued to an agent proving control of
// a DID.
type Challenge struct {
	Nonce     string          `json:"nonce"`
	DID       string          `json:"did"`
	Status    ChallengeStatus `json:"status"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SessionToken is the HMAC-signed, self-verifying token issued once a
// Challenge is verified.
type SessionToken struct {
	DID       string    `json:"did"`
	Scope     string    `json:"scope"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProvenanceEntity is a data node in an agent's append-only activity
// record (the PROV-O "Entity" concept).
type ProvenanceEntity struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Hash       string                 `json:"hash"`
	PrevHash   string                 `json:"prev_hash,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ProvenanceActivity is an action that consumed and/or generated
// entities (the PROV-O "Activity" concept).
type ProvenanceActivity struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	AgentDID    string                 `json:"agent_did"`
	UsedEntity  string                 `json:"used_entity,omitempty"`
	GeneratedID string                 `json:"generated_entity,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Hash        string                 `json:"hash"`
	PrevHash    string                 `json:"prev_hash,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// ChainItem is the union type appended to a ProvenanceChain: exactly one
// of Entity or Activity is set.
type ChainItem struct {
	Entity   *ProvenanceEntity   `json:"entity,omitempty"`
	Activity *ProvenanceActivity `json:"activity,omitempty"`
}

// ProvenanceChain is one agent's append-only, hash-chained activity
// record with a pointer to its current entity.
type ProvenanceChain struct {
	ID            string      `json:"id"`
	AgentDID      string      `json:"agent_did"`
	StartedAt     time.Time   `json:"started_at"`
	Items         []ChainItem `json:"items"`
	CurrentEntity string      `json:"current_entity,omitempty"`
	Sealed        bool        `json:"sealed"`
}

// FederatedQuery is a parsed HyprQL-subset query ready for planning.
type FederatedQuery struct {
	Text     string
	Select   []string
	From     []string
	Where    []Predicate
	OrderBy  []OrderTerm
	Limit    int
	Joins    []JoinClause
	UnionAll []*FederatedQuery
}

// Predicate is a single WHERE comparison.
type Predicate struct {
	Field string
	Op    string // = != < <= > >= LIKE
	Value interface{}
}

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Field string
	Desc  bool
}

// JoinClause describes a JOIN between two sources on equal fields.
type JoinClause struct {
	Source   string
	LeftKey  string
	RightKey string
}

// SourceProvenance records where a federated row came from and how
// long the source took to produce it.
type SourceProvenance struct {
	SourceNode    string `json:"source_node"`
	ExecutionTime string `json:"execution_time"`
}

// SourceResultItem is a single row returned by a federated source,
// tagged with its provenance.
type SourceResultItem struct {
	Source     string                 `json:"source"`
	Row        map[string]interface{} `json:"row"`
	Provenance SourceProvenance       `json:"provenance"`
}
