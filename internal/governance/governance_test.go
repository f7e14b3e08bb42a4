package governance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

func TestPaymentPipelineHappyPath(t *testing.T) {
	wallets := wallet.NewStore()
	wallets.Credit("did:key:alice", 500, "USD")

	pipeline := governance.NewPaymentPipeline(wallets, "secret", time.Minute)
	inv, err := pipeline.IssueInvoice("did:key:alice", "urn:resource:1", 200, "USD")
	require.NoError(t, err)

	proof := pipeline.SignProof(inv.ID)
	receipt, err := pipeline.ConfirmPayment(inv.ID, proof)
	require.NoError(t, err)
	require.Equal(t, int64(200), receipt.Amount)
	require.Equal(t, int64(300), wallets.Balance("did:key:alice"))
}

func TestPaymentPipelineRejectsDoubleInvoice(t *testing.T) {
	wallets := wallet.NewStore()
	wallets.Credit("did:key:bob", 500, "USD")
	pipeline := governance.NewPaymentPipeline(wallets, "secret", time.Minute)

	_, err := pipeline.IssueInvoice("did:key:bob", "urn:resource:1", 100, "USD")
	require.NoError(t, err)

	_, err = pipeline.IssueInvoice("did:key:bob", "urn:resource:2", 50, "USD")
	require.Error(t, err)
}

func TestPolicyCompositeConstraints(t *testing.T) {
	policy := &governance.Policy{
		Rules: []governance.Rule{
			{
				Kind:   governance.RulePermission,
				Action: "download",
				Constraint: governance.Constraint{
					And: []governance.Constraint{
						{LeftOperand: "tier", Operator: governance.OpEquals, RightValue: "gold"},
						{LeftOperand: "balance", Operator: governance.OpGreaterThan, RightValue: 0.0},
					},
				},
			},
		},
	}

	allowed, _, err := policy.Evaluate("download", map[string]interface{}{"tier": "gold", "balance": 10.0})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = policy.Evaluate("download", map[string]interface{}{"tier": "silver", "balance": 10.0})
	require.NoError(t, err)
	require.False(t, allowed)
}
