package client

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/model"
)

// translateFailure maps an HTTP response's status code onto the typed
// failure taxonomy: 402 carries the invoice body, 403
// carries a token-gate hint when the body declares one, 404 -> NotFound,
// 429 carries Retry-After, 401 -> AuthenticationRequired. Any other
// non-2xx status becomes an upstream failure.
func translateFailure(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		inv := decodeInvoiceNode(body)
		return apierr.PaymentRequired("payment required").
			WithInstance(resp.Request.URL.String()).
			WithMeta("invoiceId", resp.Header.Get("X-Invoice-Id")).
			WithMeta("invoice", inv)
	case http.StatusForbidden:
		var gate map[string]interface{}
		_ = json.Unmarshal(body, &gate)
		e := apierr.Forbidden("token gate").WithInstance(resp.Request.URL.String())
		if gate != nil {
			e = e.WithMeta("gate", gate)
		}
		return e
	case http.StatusNotFound:
		return apierr.NotFound("resource not found").WithInstance(resp.Request.URL.String())
	case http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return apierr.TooManyRequests("rate limited").
			WithInstance(resp.Request.URL.String()).
			WithMeta("retryAfter", retryAfter)
	case http.StatusUnauthorized:
		return apierr.Unauthorized("authentication required").WithInstance(resp.Request.URL.String())
	default:
		return apierr.Wrap(apierr.KindUpstreamFailure, "unexpected upstream status", errStatus(resp.StatusCode)).
			WithInstance(resp.Request.URL.String())
	}
}

// decodeInvoiceNode translates the x402:PaymentRequired JSON-LD body a
// 402 response carries back into a model.Invoice. Decode failures leave
// the corresponding fields zero-valued rather than erroring, since a
// malformed 402 body shouldn't stop the caller from seeing the 402
// itself.
func decodeInvoiceNode(body []byte) model.Invoice {
	var n jsonld.Node
	if err := json.Unmarshal(body, &n); err != nil {
		return model.Invoice{}
	}

	inv := model.Invoice{
		ID:            n.ID(),
		Recipient:     n.GetString("x402:recipient"),
		Bolt11:        n.GetString("x402:bolt11"),
		PaymentHeader: n.GetString("x402:paymentHeader"),
		InvoiceHeader: n.GetString("x402:invoiceHeader"),
		Currency:      n.GetString("schema:priceCurrency"),
		Status:        model.InvoiceStatus(n.GetString("x402:status")),
	}
	if price, ok := n.GetFloat("schema:price"); ok {
		inv.AmountMinor = int64(price)
	}
	if issuedAt, err := time.Parse(time.RFC3339, n.GetString("x402:issuedAt")); err == nil {
		inv.IssuedAt = issuedAt
	}
	if expiresAt, err := time.Parse(time.RFC3339, n.GetString("x402:expiresAt")); err == nil {
		inv.ExpiresAt = expiresAt
	}
	return inv
}

type httpStatusError int

func (e httpStatusError) Error() string { return "unexpected status " + strconv.Itoa(int(e)) }

func errStatus(code int) error { return httpStatusError(code) }

func isTransient(status int) bool { return status >= 500 && status < 600 }
