// Package client implements the agent-facing navigator: fetch with
// caching and retry, operation execution against hydra:operation
// affordances, URI-Template expansion, discovery, and navigation
// history — the single surface internal/agent drives its Observe step
// through.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/events"
	"github.com/hyprcat/hyprcat/internal/jsonld"
)

// RetryConfig bounds the exponential backoff fetch applies to
// transient 5xx responses.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Navigator is the client-side HTTP surface an agent walks the
// hypermedia mesh through.
type Navigator struct {
	httpClient *http.Client
	cache      *responseCache
	retry      RetryConfig
	bus        events.EventEmitter
	agentDID   string
	bearer     string

	historyMu sync.Mutex
	history   []string
	visited   map[string]bool
}

// NewNavigator builds a Navigator that authenticates as agentDID (sent
// via X-Agent-DID, or as a Bearer token when bearer is non-empty) and
// emits lifecycle CloudEvents on bus (may be nil to disable).
func NewNavigator(agentDID, bearer string, bus events.EventEmitter) *Navigator {
	return &Navigator{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      newResponseCache(),
		retry:      defaultRetryConfig(),
		bus:        bus,
		agentDID:   agentDID,
		bearer:     bearer,
		visited:    make(map[string]bool),
	}
}

// Fetch issues a GET against url with JSON-LD accept, consulting the
// cache first and retrying transient 5xx with exponential backoff, per
// the fetch affordance.
func (n *Navigator) Fetch(ctx context.Context, url string) (jsonld.Node, error) {
	if entry, ok := n.cache.get(url); ok {
		n.recordVisit(url)
		var node jsonld.Node
		if err := json.Unmarshal(entry.body, &node); err != nil {
			return jsonld.Node{}, apierr.Internal("cached body decode failed").WithDetail(err.Error())
		}
		return node, nil
	}

	var lastErr error
	for attempt := 0; attempt <= n.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(n.retry, attempt)
			select {
			case <-ctx.Done():
				return jsonld.Node{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		node, status, cacheControl, body, err := n.doGet(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 200 && status < 300 {
			n.cache.put(url, body, status, maxAgeFromHeader(cacheControl))
			n.recordVisit(url)
			n.emit("hyprcat.navigator.fetched", url, map[string]interface{}{"status": status})
			return node, nil
		}
		if isTransient(status) {
			lastErr = apierr.Wrap(apierr.KindUpstreamFailure, "transient upstream failure", errStatus(status))
			continue
		}
		return jsonld.Node{}, n.translateFromBody(url, status, body)
	}
	return jsonld.Node{}, lastErr
}

func (n *Navigator) doGet(ctx context.Context, url string) (jsonld.Node, int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return jsonld.Node{}, 0, "", nil, err
	}
	n.attachIdentity(req)
	req.Header.Set("Accept", "application/ld+json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return jsonld.Node{}, 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return jsonld.Node{}, 0, "", nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var node jsonld.Node
		if err := json.Unmarshal(body, &node); err != nil {
			return jsonld.Node{}, 0, "", nil, fmt.Errorf("client: decode %s: %w", url, err)
		}
		return node, resp.StatusCode, resp.Header.Get("Cache-Control"), body, nil
	}
	return jsonld.Node{}, resp.StatusCode, "", body, nil
}

func (n *Navigator) translateFromBody(url string, status int, body []byte) error {
	resp := &http.Response{StatusCode: status, Header: http.Header{}, Request: mustRequest(url)}
	return translateFailure(resp, body)
}

func mustRequest(url string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	return req
}

// ExecuteOperation validates input against op's declared property
// shapes, builds the target URL (expanding a template if op carries
// one, else falling back to the operation's target/id), serializes
// input for non-GET methods, and executes the request.
func (n *Navigator) ExecuteOperation(ctx context.Context, op jsonld.Node, input map[string]interface{}) (jsonld.Node, error) {
	if err := validateOperationInput(op, input); err != nil {
		return jsonld.Node{}, err
	}

	method := strings.ToUpper(op.GetString("hydra:method"))
	if method == "" {
		method = http.MethodGet
	}
	target := op.GetString("hydra:target")
	if tmpl := op.GetString("hydra:template"); tmpl != "" {
		target = expandTemplate(tmpl, input)
	}
	if target == "" {
		target = op.ID()
	}

	var bodyReader io.Reader
	if method != http.MethodGet && method != http.MethodDelete && input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return jsonld.Node{}, apierr.BadRequest("encode operation input failed").WithDetail(err.Error())
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return jsonld.Node{}, err
	}
	n.attachIdentity(req)
	req.Header.Set("Accept", "application/ld+json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return jsonld.Node{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return jsonld.Node{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.emit("hyprcat.navigator.operation_failed", target, map[string]interface{}{"status": resp.StatusCode})
		return jsonld.Node{}, translateFailure(resp, body)
	}

	var node jsonld.Node
	if len(body) > 0 {
		if err := json.Unmarshal(body, &node); err != nil {
			return jsonld.Node{}, fmt.Errorf("client: decode operation response: %w", err)
		}
	}
	n.emit("hyprcat.navigator.operation_executed", target, map[string]interface{}{"status": resp.StatusCode})
	return node, nil
}

// ConfirmPayment retries op's checkout target carrying the invoice id
// and payment proof a prior 402 named, completing the two-step
// invoice -> proof round trip an autopaying agent drives.
func (n *Navigator) ConfirmPayment(ctx context.Context, op jsonld.Node, input map[string]interface{}, invoiceID string, proof []byte) (jsonld.Node, error) {
	target := op.GetString("hydra:target")
	if target == "" {
		target = op.ID()
	}

	data, err := json.Marshal(input)
	if err != nil {
		return jsonld.Node{}, apierr.BadRequest("encode operation input failed").WithDetail(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return jsonld.Node{}, err
	}
	n.attachIdentity(req)
	req.Header.Set("Accept", "application/ld+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Invoice-Id", invoiceID)
	req.Header.Set("X-Payment-Proof", base64.StdEncoding.EncodeToString(proof))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return jsonld.Node{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return jsonld.Node{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.emit("hyprcat.navigator.payment_failed", target, map[string]interface{}{"status": resp.StatusCode, "invoiceId": invoiceID})
		return jsonld.Node{}, translateFailure(resp, body)
	}

	var node jsonld.Node
	if len(body) > 0 {
		if err := json.Unmarshal(body, &node); err != nil {
			return jsonld.Node{}, fmt.Errorf("client: decode payment confirmation: %w", err)
		}
	}
	n.emit("hyprcat.navigator.payment_confirmed", target, map[string]interface{}{"invoiceId": invoiceID})
	return node, nil
}

// Discover fetches baseUrl's well-known service description and
// follows its declared entry point, falling back to baseUrl itself
// when no link is present.
func (n *Navigator) Discover(ctx context.Context, baseUrl string) (jsonld.Node, error) {
	wellKnown := strings.TrimRight(baseUrl, "/") + "/.well-known/hyprcat"
	desc, err := n.Fetch(ctx, wellKnown)
	if err != nil {
		return n.Fetch(ctx, baseUrl)
	}
	for _, l := range desc.Links() {
		if l.GetString("rel") == "entry-point" || l.GetString("rel") == "catalog" {
			return n.Fetch(ctx, l.ID())
		}
	}
	return desc, nil
}

// History returns the URLs visited so far, in visit order.
func (n *Navigator) History() []string {
	n.historyMu.Lock()
	defer n.historyMu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Visited reports whether url has already been fetched this run,
// letting the agent runtime bound exploration and detect cycles.
func (n *Navigator) Visited(url string) bool {
	n.historyMu.Lock()
	defer n.historyMu.Unlock()
	return n.visited[url]
}

func (n *Navigator) recordVisit(url string) {
	n.historyMu.Lock()
	defer n.historyMu.Unlock()
	n.history = append(n.history, url)
	n.visited[url] = true
}

func (n *Navigator) attachIdentity(req *http.Request) {
	if n.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+n.bearer)
		return
	}
	if n.agentDID != "" {
		req.Header.Set("X-Agent-DID", n.agentDID)
	}
}

func (n *Navigator) emit(eventType, subject string, data map[string]interface{}) {
	if n.bus == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["agent_did"] = n.agentDID
	n.bus.Emit(eventType, "hyprcat-navigator", subject, data)
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}
