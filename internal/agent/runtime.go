// Package agent implements the O.N.A. (Observe, Negotiate, Attest)
// loop: an autonomous consumer that walks the hypermedia mesh through
// an internal/client.Navigator, consults internal/strategy modules to
// decide its next move, and records every step to an
// internal/provenance.Chain.
package agent

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/client"
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/model"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
)

// Config parameterizes a single Runtime.
type Config struct {
	AgentDID       string
	StartURL       string
	WalletURL      string
	MaxIterations  int
	IterationDelay time.Duration

	// AutoPaySecret is the shared HMAC secret a 402 invoice is signed
	// against. This simulated payment network trusts any caller holding
	// the gateway's configured payment secret to produce a valid proof.
	AutoPayEnabled   bool
	AutoPayMaxAmount int64
	AutoPaySecret    string
}

// Runtime drives the O.N.A. loop for one agent identity.
type Runtime struct {
	cfg        Config
	nav        *client.Navigator
	chain      *provenance.Chain
	strategies []strategy.Strategy

	state         State
	iteration     int
	walletBalance int64
}

// NewRuntime wires a Runtime over nav, recording provenance to chain
// and consulting strategies each Negotiate step: the decision with the
// highest Decision.Priority wins, ties going to the strategy given
// first.
func NewRuntime(cfg Config, nav *client.Navigator, chain *provenance.Chain, strategies ...strategy.Strategy) *Runtime {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 50
	}
	return &Runtime{cfg: cfg, nav: nav, chain: chain, strategies: strategies, state: StateIdle}
}

// State reports the runtime's current lifecycle state.
func (r *Runtime) State() State { return r.state }

// Iteration reports how many Observe/Negotiate/Attest cycles have run.
func (r *Runtime) Iteration() int { return r.iteration }

// Pause requests the loop stop after its current iteration while
// preserving history (the provenance chain and the navigator's visited
// set). Run may be called again from the paused state; it starts over
// from cfg.StartURL with the iteration count reset, not from the
// resource it paused on. Resume only moves the state from paused to
// running and does not drive the loop; a Run called after Resume fails,
// since running cannot transition to running.
func (r *Runtime) Pause() error  { return r.transition(StatePaused) }
func (r *Runtime) Resume() error { return r.transition(StateRunning) }

func (r *Runtime) transition(to State) error {
	if !canTransition(r.state, to) {
		return fmt.Errorf("agent: cannot transition from %s to %s", r.state, to)
	}
	r.state = to
	return nil
}

// Run drives the loop from cfg.StartURL until the frontier is
// exhausted, MaxIterations is reached, the caller pauses it, or ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.transition(StateRunning); err != nil {
		return err
	}
	if r.cfg.AutoPayEnabled {
		r.refreshWallet(ctx)
	}

	current := r.cfg.StartURL
	for r.iteration = 0; r.iteration < r.cfg.MaxIterations; r.iteration++ {
		if current == "" {
			return r.transition(StateCompleted)
		}

		select {
		case <-ctx.Done():
			_ = r.transition(StateError)
			return ctx.Err()
		default:
		}

		resource, err := r.observe(ctx, current)
		if err != nil {
			_ = r.transition(StateError)
			return fmt.Errorf("agent: observe %s: %w", current, err)
		}

		decision, next := r.negotiate(resource)
		if decision == nil && next == "" {
			return r.transition(StateCompleted)
		}

		if decision != nil {
			if err := r.attest(ctx, *decision); err != nil {
				_ = r.transition(StateError)
				return fmt.Errorf("agent: attest: %w", err)
			}
			next = r.cfg.StartURL
		}
		current = next

		if r.state == StatePaused {
			return nil
		}
		if r.cfg.IterationDelay > 0 {
			select {
			case <-ctx.Done():
				_ = r.transition(StateError)
				return ctx.Err()
			case <-time.After(r.cfg.IterationDelay):
			}
		}
	}
	return r.transition(StateCompleted)
}

// observe fetches url and records it as a provenance entity.
func (r *Runtime) observe(ctx context.Context, url string) (jsonld.Node, error) {
	resource, err := r.nav.Fetch(ctx, url)
	if err != nil {
		return jsonld.Node{}, err
	}
	if r.chain != nil {
		_, _ = r.chain.AddEntity("hyprcat:Observation", map[string]interface{}{
			"url":   url,
			"types": resource.Types(),
		})
	}
	return resource, nil
}

// negotiate consults every matching strategy and returns the
// highest-priority executable decision, or else the next unvisited
// link/member/operation target to navigate to.
func (r *Runtime) negotiate(resource jsonld.Node) (*strategy.Decision, string) {
	sctx := strategy.Context{
		Resource:      resource,
		WalletBalance: r.walletBalance,
		MaxPrice:      r.cfg.AutoPayMaxAmount,
		Visited:       r.nav.Visited,
	}

	var best *strategy.Decision
	for _, s := range r.strategies {
		if !s.Matches(sctx) {
			continue
		}
		decision := s.Evaluate(sctx)
		if !decision.ShouldExecute {
			continue
		}
		if best == nil || decision.Priority > best.Priority {
			d := decision
			best = &d
		}
	}
	if best != nil {
		return best, ""
	}

	for _, l := range resource.Links() {
		if url := l.ID(); url != "" && !r.nav.Visited(url) {
			return nil, url
		}
	}
	for _, m := range resource.Members() {
		if url := m.ID(); url != "" && !r.nav.Visited(url) {
			return nil, url
		}
	}
	for _, op := range resource.Operations() {
		if op.GetString("hydra:method") != "GET" {
			continue
		}
		if url := op.GetString("hydra:target"); url != "" && !r.nav.Visited(url) {
			return nil, url
		}
	}
	return nil, ""
}

// attest executes decision's operation, autopaying a 402 when autopay
// is enabled and the invoice is within budget, and records the result
// as a provenance activity.
func (r *Runtime) attest(ctx context.Context, decision strategy.Decision) error {
	if decision.Operation == nil {
		return fmt.Errorf("agent: decision carries no operation")
	}
	op := *decision.Operation

	start := time.Now()
	result, execErr := r.nav.ExecuteOperation(ctx, op, decision.Input)

	var payErr *apierr.Error
	if execErr != nil && errors.As(execErr, &payErr) && payErr.Kind == apierr.KindPaymentRequired && r.cfg.AutoPayEnabled {
		result, execErr = r.autoPay(ctx, op, decision.Input, payErr)
	}
	duration := time.Since(start)

	statusCode := 200
	if execErr != nil {
		statusCode = 500
		var e *apierr.Error
		if errors.As(execErr, &e) {
			statusCode = e.HTTPStatus()
		}
	}

	if r.chain != nil {
		attrs := map[string]interface{}{
			"actionType": decision.Reason,
			"method":     op.GetString("hydra:method"),
			"targetUrl":  op.GetString("hydra:target"),
			"payload":    decision.Input,
			"statusCode": statusCode,
			"duration":   duration.String(),
		}
		if execErr != nil {
			_, _, _ = r.chain.AddActivity("hyprcat:AttestFailure", r.cfg.AgentDID, attrs, "hyprcat:Failure", map[string]interface{}{"error": execErr.Error()})
		} else {
			_, _, _ = r.chain.AddActivity("hyprcat:Attest", r.cfg.AgentDID, attrs, "hyprcat:Result", map[string]interface{}{"resourceId": result.ID()})
		}
	}

	if execErr != nil {
		return execErr
	}
	if r.cfg.AutoPayEnabled {
		r.refreshWallet(ctx)
	}
	return nil
}

// autoPay signs invoiceId from payErr's metadata and retries op as a
// payment confirmation, skipping invoices above AutoPayMaxAmount.
func (r *Runtime) autoPay(ctx context.Context, op jsonld.Node, input map[string]interface{}, payErr *apierr.Error) (jsonld.Node, error) {
	invoiceID, _ := payErr.Meta["invoiceId"].(string)
	if invoiceID == "" {
		return jsonld.Node{}, payErr
	}
	if amount, ok := invoiceAmount(payErr); ok && amount > r.cfg.AutoPayMaxAmount {
		return jsonld.Node{}, payErr
	}
	proof := r.signProof(invoiceID)
	return r.nav.ConfirmPayment(ctx, op, input, invoiceID, proof)
}

func invoiceAmount(payErr *apierr.Error) (int64, bool) {
	inv, ok := payErr.Meta["invoice"].(model.Invoice)
	if !ok {
		return 0, false
	}
	return inv.AmountMinor, true
}

func (r *Runtime) signProof(invoiceID string) []byte {
	mac := hmac.New(sha256.New, []byte(r.cfg.AutoPaySecret))
	mac.Write([]byte(invoiceID))
	return mac.Sum(nil)
}

func (r *Runtime) refreshWallet(ctx context.Context) {
	if r.cfg.WalletURL == "" {
		return
	}
	node, err := r.nav.Fetch(ctx, r.cfg.WalletURL)
	if err != nil {
		return
	}
	if balance, ok := node.GetFloat("balance_minor_units"); ok {
		r.walletBalance = int64(balance)
	}
}
