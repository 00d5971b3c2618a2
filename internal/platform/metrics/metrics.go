package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services take
// a *Metrics and tolerate nil so unit tests skip registration entirely.
type Metrics struct {
	RunsTotal     prometheus.Counter
	RunFailures   prometheus.Counter
	RowsProcessed prometheus.Counter
	MatchesByType *prometheus.CounterVec
	OrphanRecords prometheus.Counter
	Collisions    *prometheus.CounterVec
	FetchPages    *prometheus.CounterVec
	FetchRetries  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rosterboard_runs_total",
			Help: "Total number of completed pipeline runs",
		}),
		RunFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rosterboard_run_failures_total",
			Help: "Total number of pipeline runs that failed",
		}),
		RowsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rosterboard_roster_rows_processed_total",
			Help: "Total roster rows reconciled across all runs",
		}),
		MatchesByType: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterboard_matches_total",
			Help: "Resolved roster rows by match strategy",
		}, []string{"match_type"}),
		OrphanRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rosterboard_orphan_records_total",
			Help: "Contribution records not attributable to any roster entity",
		}),
		Collisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterboard_index_collisions_total",
			Help: "Directory index key collisions by kind",
		}, []string{"kind"}),
		FetchPages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rosterboard_remote_pages_fetched_total",
			Help: "Pages fetched from the records API by stream",
		}, []string{"stream"}),
		FetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rosterboard_remote_fetch_retries_total",
			Help: "Page fetch attempts that had to be retried",
		}),
	}
}
