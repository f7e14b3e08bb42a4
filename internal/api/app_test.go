package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/api"
	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/events"
	"github.com/hyprcat/hyprcat/internal/federation"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/identity"
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/store"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

const testPaymentSecret = "test-payment-secret"

func newTestApp(t *testing.T) (*api.App, string) {
	t.Helper()
	backend := store.NewMemoryBackend()
	baseURL := "http://gateway.test"
	catalogSvc := catalog.NewService(backend, baseURL)
	require.NoError(t, catalogSvc.SeedMesh(t.Context()))

	wallets := wallet.NewStore()
	identitySvc := identity.NewService(time.Minute, time.Hour, "test-session-secret", false)
	payments := governance.NewPaymentPipeline(wallets, testPaymentSecret, time.Minute)
	tokenGate := governance.NewTokenGate(wallets)

	registry := federation.NewRegistry(federation.NewMockSource("catalog", []map[string]interface{}{
		{"id": "row-1", "name": "Sample Row"},
	}))
	dispatcher := federation.NewDispatcher(2, time.Second)
	fedEngine := federation.NewEngine(registry, dispatcher, nil, 0)

	provSvc := provenance.NewService()
	bus := events.NewEventBus()
	validator := jsonld.NewValidator(jsonld.DefaultNamespaces())
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{MaxCallsPerMinute: 1000, BurstSize: 100})

	app := api.NewApp(catalogSvc, identitySvc, wallets, payments, tokenGate, fedEngine, provSvc, bus, bus, validator, rateLimiter, baseURL)
	return app, baseURL
}

func TestCatalogDiscoveryTraversal(t *testing.T) {
	app, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var node jsonld.Node
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&node))
	require.True(t, node.HasType("hydra:Collection"))
	require.NotEmpty(t, node.Members())
}

func TestAuthChallengeVerifyProfileFlow(t *testing.T) {
	app, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	did := "did:sim:agent-42"
	body, _ := json.Marshal(map[string]string{"did": did})
	resp, err := http.Post(srv.URL+"/auth/challenge", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var challenge struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))
	resp.Body.Close()
	require.NotEmpty(t, challenge.Nonce)

	verifyBody, _ := json.Marshal(map[string]string{"nonce": challenge.Nonce, "signatureBase64": "", "scope": "agent"})
	resp, err = http.Post(srv.URL+"/auth/verify", "application/json", bytes.NewReader(verifyBody))
	require.NoError(t, err)
	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verified))
	resp.Body.Close()
	require.NotEmpty(t, verified.Token)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+verified.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckoutIssuesInvoiceThen402(t *testing.T) {
	app, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	did := "did:sim:buyer-1"
	token := authenticate(t, srv.URL, did)

	body, _ := json.Marshal(map[string]interface{}{"resourceId": "widget-standard", "amountMinor": 500, "currency": "USD"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/operations/checkout", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Invoice-Id"))
}

func TestCheckoutConfirmsPaymentAndReturnsOrder(t *testing.T) {
	app, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	did := "did:sim:buyer-2"
	token := authenticate(t, srv.URL, did)

	body, _ := json.Marshal(map[string]interface{}{"resourceId": "widget-standard", "amountMinor": 500, "currency": "USD"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/operations/checkout", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	invoiceID := resp.Header.Get("X-Invoice-Id")
	resp.Body.Close()
	require.NotEmpty(t, invoiceID)

	proof := app.Payments.SignProof(invoiceID)
	confirmReq, err := http.NewRequest(http.MethodPost, srv.URL+"/operations/checkout", bytes.NewReader(body))
	require.NoError(t, err)
	confirmReq.Header.Set("Authorization", "Bearer "+token)
	confirmReq.Header.Set("Content-Type", "application/json")
	confirmReq.Header.Set("X-Invoice-Id", invoiceID)
	confirmReq.Header.Set("X-Payment-Proof", base64.StdEncoding.EncodeToString(proof))

	confirmResp, err := http.DefaultClient.Do(confirmReq)
	require.NoError(t, err)
	defer confirmResp.Body.Close()
	require.Equal(t, http.StatusCreated, confirmResp.StatusCode)

	var order jsonld.Node
	require.NoError(t, json.NewDecoder(confirmResp.Body).Decode(&order))
	require.True(t, order.HasType("schema:Order"))
	receipt, ok := order.Get("x402:paymentReceipt")
	require.True(t, ok)
	require.NotNil(t, receipt)
}

func TestFederatedQueryReturnsRows(t *testing.T) {
	app, _ := newTestApp(t)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	did := "did:sim:analyst-1"
	token := authenticate(t, srv.URL, did)

	body, _ := json.Marshal(map[string]string{"query": "SELECT * FROM catalog LIMIT 10"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/operations/query", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func authenticate(t *testing.T, baseURL, did string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"did": did})
	resp, err := http.Post(baseURL+"/auth/challenge", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var challenge struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&challenge))
	resp.Body.Close()

	verifyBody, _ := json.Marshal(map[string]string{"nonce": challenge.Nonce, "signatureBase64": "", "scope": "agent"})
	resp, err = http.Post(baseURL+"/auth/verify", "application/json", bytes.NewReader(verifyBody))
	require.NoError(t, err)
	var verified struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verified))
	resp.Body.Close()
	return verified.Token
}
