// Package metrics holds the Prometheus collectors shared by the ledger, the
// spend service and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	minerPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "miner_points",
		Help: "Current spendable points balance.",
	})

	minerTier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "miner_tier",
		Help: "Current tier level.",
	})

	minerMiningActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "miner_mining_active",
		Help: "1 while a mining session is open.",
	})

	minerStakeMultiplier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "miner_stake_multiplier",
		Help: "Stake multiplier in effect.",
	})

	minerPointsCreditedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_points_credited_total",
		Help: "Points credited to the balance by source.",
	}, []string{"source"})

	minerPersistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miner_persist_failures_total",
		Help: "Ledger snapshot writes that failed.",
	})

	minerSpendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_spends_total",
		Help: "Spend operations by kind and outcome.",
	}, []string{"kind", "outcome"})

	minerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	minerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "miner_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// LedgerSnapshot is the subset of ledger state exported as gauges.
type LedgerSnapshot struct {
	Points          float64
	Tier            int
	MiningActive    bool
	StakeMultiplier float64
}

// SetLedgerGauges updates the ledger gauges.
func SetLedgerGauges(s LedgerSnapshot) {
	minerPoints.Set(s.Points)
	minerTier.Set(float64(s.Tier))
	if s.MiningActive {
		minerMiningActive.Set(1)
	} else {
		minerMiningActive.Set(0)
	}
	minerStakeMultiplier.Set(s.StakeMultiplier)
}

// RecordCredit records points added to the balance. source is one of
// "mining", "task" or "refund".
func RecordCredit(source string, points float64) {
	if points <= 0 {
		return
	}
	minerPointsCreditedTotal.WithLabelValues(source).Add(points)
}

// RecordPersistFailure records a failed snapshot write.
func RecordPersistFailure() {
	minerPersistFailuresTotal.Inc()
}

// RecordSpend records a spend attempt. kind names the flow, such as "swap" or "tier".
func RecordSpend(kind string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	minerSpendsTotal.WithLabelValues(kind, outcome).Inc()
}

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		minerRequestsTotal.WithLabelValues(method, path, status).Inc()
		minerRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// Handler returns a Gin handler that serves Prometheus metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
