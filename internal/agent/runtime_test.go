package agent_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/agent"
	"github.com/hyprcat/hyprcat/internal/client"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
)

const testSecret = "test-payment-secret"

func signInvoice(id string) []byte {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(id))
	return mac.Sum(nil)
}

// retailMesh serves a single collection with one affordable, in-stock
// item whose buy operation round-trips through the 402 invoice/proof
// handshake, mirroring the gateway's checkout contract.
func retailMesh(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/store/products", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"@id":   "http://" + r.Host + "/store/products",
			"@type": "hydra:Collection",
			"hydra:member": []interface{}{
				map[string]interface{}{
					"@id":          "/store/products/widget",
					"@type":        "hyprcat:RetailItem",
					"schema:price": float64(500),
					"schema:stock": float64(2),
					"hydra:operation": []interface{}{
						map[string]interface{}{"hydra:method": "POST", "hydra:target": "http://" + r.Host + "/operations/checkout"},
					},
				},
			},
		})
	})
	mux.HandleFunc("/wallet", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"balance_minor_units": float64(1000)})
	})
	mux.HandleFunc("/operations/checkout", func(w http.ResponseWriter, r *http.Request) {
		invoiceID := r.Header.Get("X-Invoice-Id")
		proof := r.Header.Get("X-Payment-Proof")
		if invoiceID == "" || proof == "" {
			w.Header().Set("X-Invoice-Id", "urn:uuid:inv-1")
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "urn:uuid:inv-1", "amount_minor_units": 500})
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(proof)
		require.NoError(t, err)
		require.True(t, hmac.Equal(decoded, signInvoice(invoiceID)))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": "urn:uuid:receipt-1", "@type": "hyprcat:Receipt"})
	})
	return httptest.NewServer(mux)
}

func TestRuntimeCompletesRetailPurchaseWithAutopay(t *testing.T) {
	srv := retailMesh(t)
	defer srv.Close()

	nav := client.NewNavigator("did:key:agent1", "", nil)
	chain := provenance.NewChain("did:key:agent1")

	rt := agent.NewRuntime(agent.Config{
		AgentDID:         "did:key:agent1",
		StartURL:         srv.URL + "/store/products",
		WalletURL:        srv.URL + "/wallet",
		MaxIterations:    5,
		AutoPayEnabled:   true,
		AutoPayMaxAmount: 1000,
		AutoPaySecret:    testSecret,
	}, nav, chain, strategy.Retail{})

	err := rt.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, agent.StateCompleted, rt.State())

	snapshot := chain.Snapshot()
	require.NotEmpty(t, snapshot.Items)
}

func TestRuntimeCompletesWithNoMatchingStrategy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": "/catalog", "@type": "hydra:Collection"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	nav := client.NewNavigator("did:key:agent2", "", nil)
	chain := provenance.NewChain("did:key:agent2")

	rt := agent.NewRuntime(agent.Config{
		AgentDID:      "did:key:agent2",
		StartURL:      srv.URL + "/catalog",
		MaxIterations: 5,
	}, nav, chain, strategy.Retail{}, strategy.Analytics{})

	err := rt.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, agent.StateCompleted, rt.State())
}
