package ratelimiter

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/zupervisor-project/zupervisor-go/internal/store"
	"github.com/zupervisor-project/zupervisor-go/internal/system"
	"github.com/zupervisor-project/zupervisor-go/pkg/logger"
)

const (
	defaultTTL        = 5 * time.Minute
	limiterStoreName  = "rate_limiter"
	activityKeyPrefix = "activity:"
)

// Limiter caps concurrent handler dispatches per route. Counts live in the
// shared store so that multiple host instances sharing a Redis or DynamoDB
// backend see each other's activity; entries older than the TTL are treated
// as leaked and ignored.
type Limiter struct {
	store      *store.Store
	instanceID string
	ttl        time.Duration
	mu         sync.Mutex
}

// activity is one instance's in-flight count for one route.
type activity struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	global   *Limiter
	globalMu sync.Mutex
)

// Global returns the process-wide limiter, initialising it on first use.
func Global() *Limiter {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New()
	}
	return global
}

func New() *Limiter {
	return &Limiter{
		store:      store.Open(limiterStoreName),
		instanceID: system.GenerateInstanceID(),
		ttl:        defaultTTL,
	}
}

// CheckAndIncrement reports whether another dispatch for routeKey fits under
// limit, incrementing this instance's count when it does. A limit of zero
// always admits.
func (l *Limiter) CheckAndIncrement(routeKey string, limit int) bool {
	if limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	entries := l.store.GetAllValues(activityKeyPrefix + routeKey + ":")
	cutoff := time.Now().Add(-l.ttl)
	for _, raw := range entries {
		act, ok := decodeActivity(raw)
		if !ok || act.Timestamp.Before(cutoff) {
			continue
		}
		total += act.Count
	}
	if total >= limit {
		logger.Debugf("route %s at concurrency limit (%d)", routeKey, limit)
		return false
	}

	l.adjust(routeKey, +1)
	return true
}

// Decrement releases one dispatch slot for routeKey.
func (l *Limiter) Decrement(routeKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.adjust(routeKey, -1)
}

func (l *Limiter) adjust(routeKey string, delta int) {
	key := activityKeyPrefix + routeKey + ":" + l.instanceID
	count := 0
	if raw, found := l.store.GetValue(key); found {
		if act, ok := decodeActivity(raw); ok {
			count = act.Count
		}
	}
	count += delta
	if count <= 0 {
		l.store.DeleteValue(key)
		return
	}
	l.store.StoreValue(key, activity{Count: count, Timestamp: time.Now()})
}

// decodeActivity tolerates both the in-memory representation and the JSON
// round-trip the Redis and DynamoDB backends apply.
func decodeActivity(raw interface{}) (activity, bool) {
	switch v := raw.(type) {
	case activity:
		return v, true
	case map[string]interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return activity{}, false
		}
		var act activity
		if err := json.Unmarshal(data, &act); err != nil {
			return activity{}, false
		}
		return act, true
	default:
		return activity{}, false
	}
}
