package client

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// responseCache is an in-memory fetch cache honoring Cache-Control:
// max-age, the same bounded-TTL map pattern identity.ChallengeStore and
// redisx.Adapter's Set-with-TTL use, applied to a client-side navigator
// cache instead of a server-side one.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	status    int
	expiresAt time.Time
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]cacheEntry)}
}

func (c *responseCache) get(url string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[url]
	if !ok {
		return cacheEntry{}, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, url)
		return cacheEntry{}, false
	}
	return e, true
}

func (c *responseCache) put(url string, body []byte, status int, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{body: body, status: status, expiresAt: time.Now().Add(maxAge)}
}

// maxAgeFromHeader parses "max-age=N" out of a Cache-Control header
// value, returning 0 if absent or unparseable.
func maxAgeFromHeader(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "max-age=") {
			continue
		}
		secs, err := strconv.Atoi(strings.TrimPrefix(part, "max-age="))
		if err != nil || secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	return 0
}
