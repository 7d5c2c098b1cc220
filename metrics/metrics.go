package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntitlementChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neko_entitlement_checks_total",
			Help: "Completed entitlement checks by resolved tier",
		},
		[]string{"tier", "subscribed"},
	)

	EntitlementCheckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neko_entitlement_check_failures_total",
			Help: "Failed entitlement checks by error kind",
		},
		[]string{"kind"},
	)

	AccountDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neko_account_deletions_total",
			Help: "Account deletions by outcome",
		},
		[]string{"outcome"},
	)

	CascadeTableFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neko_cascade_table_failures_total",
			Help: "Per-table failures during best-effort deletion cascades",
		},
		[]string{"table"},
	)

	OrphanRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neko_orphan_rows",
			Help: "Rows whose owning identity no longer exists, as of the last sweep",
		},
		[]string{"table"},
	)

	SeedRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neko_seed_runs_total",
			Help: "Test-data seeding invocations by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)
