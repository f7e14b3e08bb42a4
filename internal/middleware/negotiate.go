package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const apiVersion = "1.0"

// Negotiate enforces content negotiation: only
// application/ld+json, application/json, and */* are accepted Accept
// values; anything else gets 406. Every response gets
// Content-Type: application/ld+json and X-HyprCAT-Version.
func Negotiate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")
		if accept != "" && !acceptable(accept) {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}

		w.Header().Set("Content-Type", "application/ld+json")
		w.Header().Set("X-HyprCAT-Version", apiVersion)
		next.ServeHTTP(w, r)
	})
}

func acceptable(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mt {
		case "application/ld+json", "application/json", "*/*", "":
			return true
		}
	}
	return false
}

// LinkHeaders advertises the catalog and service-description endpoints
// on every response.
func LinkHeaders(baseURL string) func(http.Handler) http.Handler {
	link := fmt.Sprintf(`<%s/catalog>; rel="collection", <%s/.well-known/hyprcat>; rel="service-desc"`, baseURL, baseURL)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Link", link)
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes a standard linked-data error document:
// {type, statusCode, title, detail, instance}.
func WriteError(w http.ResponseWriter, r *http.Request, status int, kind, detail, instance string) {
	w.Header().Set("Content-Type", "application/ld+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"type":       kind,
		"statusCode": status,
		"title":      http.StatusText(status),
		"detail":     detail,
		"instance":   instance,
	})
}
