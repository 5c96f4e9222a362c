package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skua_probes_total",
		Help: "Validation probes by outcome (alive or dead)",
	}, []string{"outcome"})

	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skua_probe_duration_seconds",
		Help:    "Duration of successful validation probes",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12.8s
	})

	SourceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skua_source_fetches_total",
		Help: "Candidate source fetches by outcome (ok or error)",
	}, []string{"outcome"})

	RacesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skua_races_total",
		Help: "Race-based fetches by outcome (won or exhausted)",
	}, []string{"outcome"})

	RaceAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skua_race_attempts_total",
		Help: "Individual race attempts by outcome (success, failure or abandoned)",
	}, []string{"outcome"})

	PoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skua_pool_size",
		Help: "Number of proxies in the in-run pool",
	})

	CachedProxies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skua_cached_proxies",
		Help: "Number of proxies in the persisted snapshot",
	})
)

// StartServer exposes /metrics on the given port. A serve error is logged
// rather than propagated: metrics must never take the collector down.
func StartServer(port int) {
	if port <= 0 {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()

	log.Info("metrics endpoint started", "port", port)
}
