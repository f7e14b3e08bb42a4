package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleHealth reports basic liveness.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleReady reports readiness: the services a request actually
// depends on must be non-nil.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := a.Catalog != nil && a.Identity != nil && a.Wallet != nil && a.Federation != nil
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "not_ready"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ready"})
}

// handleStats returns a JSON summary alongside the Prometheus /metrics
// endpoint.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"rateLimiter": a.RateLimiter.Stats(),
	}
	if bus := a.EventBus; bus != nil {
		stats["eventSubscribers"] = bus.SubscriberCount()
	}
	_ = json.NewEncoder(w).Encode(stats)
}

// handleEventsWS upgrades to a websocket and streams every CloudEvent
// published on the in-process bus as JSON frames.
func (a *App) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if a.EventBus == nil {
		http.Error(w, "event bus not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := a.EventBus.Subscribe()
	defer a.EventBus.Unsubscribe(ch)

	for event := range ch {
		payload, err := event.JSON()
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
