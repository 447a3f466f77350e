package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics

	seasonMetricsOnce sync.Once
	seasonRegistry    *SeasonMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *OracleMetrics
)

// ModuleMetrics returns the lazily-initialised registry used by the HTTP
// layer to record API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bean",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// LedgerMetrics counts ledger operations by outcome.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bean",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Time spent inside the ledger write lock.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(ledgerRegistry.operations, ledgerRegistry.latency)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SeasonMetrics tracks the outcome of each sunrise.
type SeasonMetrics struct {
	height      prometheus.Gauge
	deltaB      prometheus.Gauge
	price       prometheus.Gauge
	soil        prometheus.Gauge
	temperature prometheus.Gauge
	caseID      prometheus.Gauge
	minted      prometheus.Counter
	shipments   *prometheus.CounterVec
	floods      prometheus.Counter
	excluded    *prometheus.CounterVec
}

func Season() *SeasonMetrics {
	seasonMetricsOnce.Do(func() {
		gauge := func(name, help string) prometheus.Gauge {
			return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "bean", Subsystem: "season", Name: name, Help: help})
		}
		seasonRegistry = &SeasonMetrics{
			height:      gauge("current", "Current season number."),
			deltaB:      gauge("delta_b", "Signed bean deltaB evaluated at the last sunrise."),
			price:       gauge("price", "Liquidity weighted bean price at the last sunrise (1e6 = $1)."),
			soil:        gauge("soil", "Soil issued at the last sunrise."),
			temperature: gauge("temperature", "Steady temperature after the last sunrise (1e6 = 1%)."),
			caseID:      gauge("case_id", "Weather case selected at the last sunrise."),
			minted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "season",
				Name:      "minted_beans_total",
				Help:      "Beans minted and delivered by sunrise shipments.",
			}),
			shipments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "season",
				Name:      "shipment_beans_total",
				Help:      "Beans accepted per shipment route.",
			}, []string{"route"}),
			floods: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "season",
				Name:      "floods_total",
				Help:      "Seasons of plenty executed.",
			}),
			excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "season",
				Name:      "excluded_wells_total",
				Help:      "Wells excluded from evaluation because of stale prices.",
			}, []string{"well"}),
		}
		prometheus.MustRegister(
			seasonRegistry.height,
			seasonRegistry.deltaB,
			seasonRegistry.price,
			seasonRegistry.soil,
			seasonRegistry.temperature,
			seasonRegistry.caseID,
			seasonRegistry.minted,
			seasonRegistry.shipments,
			seasonRegistry.floods,
			seasonRegistry.excluded,
		)
	})
	return seasonRegistry
}

// Shipment is the per-route slice of a sunrise observation.
type Shipment struct {
	Route    string
	Accepted *big.Int
}

// SunriseSample carries the values recorded after a committed sunrise.
type SunriseSample struct {
	Season      uint64
	CaseID      int
	DeltaB      *big.Int
	Price       *big.Int
	Soil        *big.Int
	Temperature *big.Int
	Minted      *big.Int
	Shipments   []Shipment
	Flood       bool
	Excluded    []string
}

func (m *SeasonMetrics) RecordSunrise(s SunriseSample) {
	if m == nil {
		return
	}
	m.height.Set(float64(s.Season))
	m.caseID.Set(float64(s.CaseID))
	m.deltaB.Set(bigToFloat(s.DeltaB))
	m.price.Set(bigToFloat(s.Price))
	m.soil.Set(bigToFloat(s.Soil))
	m.temperature.Set(bigToFloat(s.Temperature))
	m.minted.Add(bigToFloat(s.Minted))
	for _, shipment := range s.Shipments {
		m.shipments.WithLabelValues(shipment.Route).Add(bigToFloat(shipment.Accepted))
	}
	if s.Flood {
		m.floods.Inc()
	}
	for _, well := range s.Excluded {
		m.excluded.WithLabelValues(labelAsset(well)).Inc()
	}
}

// OracleMetrics reports the freshness of published pair prices.
type OracleMetrics struct {
	price     *prometheus.GaugeVec
	freshness *prometheus.GaugeVec
	failures  *prometheus.CounterVec
}

func Oracle() *OracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "bean",
				Subsystem: "oracle",
				Name:      "price_usd",
				Help:      "Latest aggregated USD price per pair token (1e6 precision).",
			}, []string{"token"}),
			freshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "bean",
				Subsystem: "oracle",
				Name:      "price_age_seconds",
				Help:      "Age of the latest published price per pair token.",
			}, []string{"token"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "oracle",
				Name:      "aggregation_failures_total",
				Help:      "Oracle aggregation rounds that failed per token.",
			}, []string{"token"}),
		}
		prometheus.MustRegister(oracleRegistry.price, oracleRegistry.freshness, oracleRegistry.failures)
	})
	return oracleRegistry
}

func (m *OracleMetrics) RecordPrice(token string, price *big.Int, age time.Duration) {
	if m == nil {
		return
	}
	m.price.WithLabelValues(labelAsset(token)).Set(bigToFloat(price))
	m.freshness.WithLabelValues(labelAsset(token)).Set(age.Seconds())
}

func (m *OracleMetrics) RecordFailure(token string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(labelAsset(token)).Inc()
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
