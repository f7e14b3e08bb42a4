// Package api wires the HTTP surface: routing, content negotiation,
// auth/rate-limit/log middleware, and the handlers for catalog,
// governance, federation, identity, and provenance operations, on
// gorilla/mux.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyprcat/hyprcat/internal/catalog"
	"github.com/hyprcat/hyprcat/internal/events"
	"github.com/hyprcat/hyprcat/internal/federation"
	"github.com/hyprcat/hyprcat/internal/governance"
	"github.com/hyprcat/hyprcat/internal/identity"
	"github.com/hyprcat/hyprcat/internal/jsonld"
	"github.com/hyprcat/hyprcat/internal/middleware"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/wallet"
)

// App bundles every domain service the HTTP surface dispatches to.
type App struct {
	Catalog     *catalog.Service
	Identity    *identity.Service
	Wallet      *wallet.Store
	Payments    *governance.PaymentPipeline
	TokenGate   *governance.TokenGate
	Federation  *federation.Engine
	Provenance  *provenance.Service
	Events      events.EventEmitter
	EventBus    *events.EventBus
	Validator   *jsonld.Validator
	RateLimiter *middleware.RateLimiter
	BaseURL     string

	upgrader websocket.Upgrader
}

// NewApp builds an App. eventBus is kept separately from Events because
// /events/ws subscribes directly to it (EventEmitter has no Subscribe
// method — PubSubEventBus and EventBus both embed/are one).
func NewApp(
	catalogSvc *catalog.Service,
	identitySvc *identity.Service,
	walletStore *wallet.Store,
	payments *governance.PaymentPipeline,
	tokenGate *governance.TokenGate,
	fedEngine *federation.Engine,
	provSvc *provenance.Service,
	emitter events.EventEmitter,
	bus *events.EventBus,
	validator *jsonld.Validator,
	rateLimiter *middleware.RateLimiter,
	baseURL string,
) *App {
	return &App{
		Catalog:     catalogSvc,
		Identity:    identitySvc,
		Wallet:      walletStore,
		Payments:    payments,
		TokenGate:   tokenGate,
		Federation:  fedEngine,
		Provenance:  provSvc,
		Events:      emitter,
		EventBus:    bus,
		Validator:   validator,
		RateLimiter: rateLimiter,
		BaseURL:     baseURL,
		upgrader:    websocket.Upgrader{HandshakeTimeout: 5 * time.Second},
	}
}

// identitySessionAdapter satisfies middleware.SessionVerifier over
// identity.Service, whose VerifySession returns a *model.SessionToken
// rather than a bare DID string.
type identitySessionAdapter struct{ svc *identity.Service }

func (a identitySessionAdapter) VerifySession(token string) (string, error) {
	sess, err := a.svc.VerifySession(token)
	if err != nil {
		return "", err
	}
	return sess.DID, nil
}

func (a identitySessionAdapter) VerifyDIDAuth(did, signature, nonce string) (bool, error) {
	return a.svc.VerifySignature(did, nonce, []byte(signature))
}

// Router builds the full route table plus middleware pipeline.
func (a *App) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/.well-known/{scheme}", a.handleServiceDescription).Methods(http.MethodGet)
	r.HandleFunc("/", a.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/catalog", a.handleCatalog).Methods(http.MethodGet)
	r.HandleFunc("/prompts", a.handlePrompts).Methods(http.MethodGet)
	r.HandleFunc("/nodes", a.handleRegisterNode).Methods(http.MethodPost)
	r.PathPrefix("/nodes/").HandlerFunc(a.handleFetchNode).Methods(http.MethodGet)
	r.HandleFunc("/operations/checkout", a.handleCheckout).Methods(http.MethodPost)
	r.HandleFunc("/operations/query", a.handleFederatedQuery).Methods(http.MethodPost)
	r.HandleFunc("/operations/lrs/export", a.handleLRSExport).Methods(http.MethodGet)
	r.HandleFunc("/operations/token/mint", a.handleTokenMint).Methods(http.MethodPost)
	r.HandleFunc("/operations/token/burn", a.handleTokenBurn).Methods(http.MethodDelete)
	r.HandleFunc("/auth/challenge", a.handleAuthChallenge).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", a.handleAuthVerify).Methods(http.MethodPost)
	r.HandleFunc("/auth/profile", a.handleAuthProfile).Methods(http.MethodGet)
	r.HandleFunc("/wallet", a.handleWallet).Methods(http.MethodGet)
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/events/ws", a.handleEventsWS)
	// Fallback: any other GET resolves against the catalog by its full
	// URL, so statically seeded mesh resources (e.g. /store, /data/graph)
	// are reachable without a dedicated route per resource.
	r.PathPrefix("/").HandlerFunc(a.handleFetchNode).Methods(http.MethodGet)

	verifier := identitySessionAdapter{svc: a.Identity}
	r.Use(middleware.Negotiate)
	r.Use(middleware.LinkHeaders(a.BaseURL))
	r.Use(middleware.Auth(verifier, false))
	r.Use(a.RateLimiter.Middleware)
	r.Use(middleware.Log)

	return r
}
