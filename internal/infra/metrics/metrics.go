package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts read-through cache hits per cache key prefix.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "cache_hits_total",
		Help:      "Read-through cache hits by key prefix.",
	}, []string{"prefix"})

	// CacheMisses counts read-through cache misses per cache key prefix.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "cache_misses_total",
		Help:      "Read-through cache misses by key prefix.",
	}, []string{"prefix"})

	// AccountLockouts counts accounts locked by the failed-attempt threshold.
	AccountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "account_lockouts_total",
		Help:      "Accounts locked after exceeding the failed attempt threshold.",
	})

	// LoginAttempts counts login attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// GrantsPurged counts soft-deleted relationship rows physically removed.
	GrantsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authz",
		Name:      "grants_purged_total",
		Help:      "Soft-deleted grant rows removed by the cleanup worker.",
	})
)
