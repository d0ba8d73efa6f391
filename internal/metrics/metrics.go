// Package metrics exposes prometheus instrumentation for the sync core.
// Counters register on the default registry; embedding applications can
// serve them via promhttp or scrape them programmatically.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FundRefreshes counts completed fund collection loads.
	FundRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundwise_fund_refreshes_total",
		Help: "Completed fund collection loads.",
	})

	// TransactionRefreshes counts completed transaction loads, both
	// selection-triggered and periodic.
	TransactionRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundwise_transaction_refreshes_total",
		Help: "Completed transaction collection loads.",
	})

	// SyncFailures counts remote loads that failed and were degraded to
	// a notification.
	SyncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundwise_sync_failures_total",
		Help: "Remote loads that failed, by collection.",
	}, []string{"collection"})

	// MutationFailures counts create/update/delete calls that failed.
	MutationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundwise_mutation_failures_total",
		Help: "Remote mutations that failed, by operation.",
	}, []string{"op"})

	// UserCacheHits / UserCacheMisses track synchronous profile lookups;
	// a miss is served with a placeholder.
	UserCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundwise_user_cache_hits_total",
		Help: "User cache lookups served from cache or session.",
	})
	UserCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundwise_user_cache_misses_total",
		Help: "User cache lookups served with a placeholder.",
	})

	// AuthInitTimeouts counts session initializations that were forced
	// by the timeout instead of a provider event.
	AuthInitTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundwise_auth_init_timeouts_total",
		Help: "Session initializations forced by the auth timeout.",
	})
)
