package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/client"
	"github.com/hyprcat/hyprcat/internal/jsonld"
)

func TestFetchDecodesNodeAndRecordsVisit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": r.URL.String(), "@type": "hyprcat:DataProduct"})
	}))
	defer srv.Close()

	nav := client.NewNavigator("did:key:agent1", "", nil)
	node, err := nav.Fetch(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)
	require.True(t, node.HasType("hyprcat:DataProduct"))
	require.True(t, nav.Visited(srv.URL+"/catalog"))
}

func TestFetchCachesWithinMaxAge(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Cache-Control", "max-age=60")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": r.URL.String()})
	}))
	defer srv.Close()

	nav := client.NewNavigator("did:key:agent1", "", nil)
	_, err := nav.Fetch(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)
	_, err = nav.Fetch(context.Background(), srv.URL+"/catalog")
	require.NoError(t, err)
	require.Equal(t, 1, hits)
}

func TestFetch404TranslatesToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	nav := client.NewNavigator("did:key:agent1", "", nil)
	_, err := nav.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

func TestExecuteOperationRejectsMissingRequiredInput(t *testing.T) {
	op := jsonld.NewNode(map[string]interface{}{
		"hydra:method": "POST",
		"hydra:target": "http://example.invalid/operations/checkout",
		"hyprcat:expects": []interface{}{
			map[string]interface{}{"property": "resourceId", "required": true, "datatype": "string"},
		},
	})

	nav := client.NewNavigator("did:key:agent1", "", nil)
	_, err := nav.ExecuteOperation(context.Background(), op, map[string]interface{}{})
	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apierr.KindValidation, apiErr.Kind)
}

func TestExecuteOperationPostsToTarget(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"@id": "urn:uuid:receipt-1"})
	}))
	defer srv.Close()

	op := jsonld.NewNode(map[string]interface{}{
		"hydra:method": "POST",
		"hydra:target": srv.URL + "/operations/checkout",
	})

	nav := client.NewNavigator("did:key:agent1", "", nil)
	node, err := nav.ExecuteOperation(context.Background(), op, map[string]interface{}{"resourceId": "r1", "amountMinor": float64(500)})
	require.NoError(t, err)
	require.Equal(t, "urn:uuid:receipt-1", node.ID())
	require.Equal(t, "r1", gotBody["resourceId"])
}

func TestExecuteOperation402CarriesInvoiceMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Invoice-Id", "urn:uuid:inv-1")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "urn:uuid:inv-1", "amount_minor_units": 500})
	}))
	defer srv.Close()

	op := jsonld.NewNode(map[string]interface{}{
		"hydra:method": "POST",
		"hydra:target": srv.URL + "/operations/checkout",
	})

	nav := client.NewNavigator("did:key:agent1", "", nil)
	_, err := nav.ExecuteOperation(context.Background(), op, map[string]interface{}{})
	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apierr.KindPaymentRequired, apiErr.Kind)
	require.Equal(t, "urn:uuid:inv-1", apiErr.Meta["invoiceId"])
}
