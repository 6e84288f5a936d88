package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type BillingMetrics struct {
	paymentsProcessed *prometheus.CounterVec
	overdueBacklog    prometheus.Gauge
	overdueOldest     prometheus.Gauge
	ingestRows        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func ResetBillingMetricsForTest() {
	billingMetricsOnce = sync.Once{}
	billingMetrics = nil
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "uniqbrio"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	paymentsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "uniqbrio_billing_payments_processed_total",
			Help:        "Recurring payment attempts by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // recorded | rejected | conflict | failed
	)

	overdueBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "uniqbrio_billing_overdue_plans_total",
			Help:        "Active plans whose next due date has passed, as of the last scan.",
			ConstLabels: constLabels,
		},
	)

	overdueOldest := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "uniqbrio_billing_overdue_oldest_seconds",
			Help:        "Age of the most overdue plan, as of the last scan.",
			ConstLabels: constLabels,
		},
	)

	ingestRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "uniqbrio_billing_ingest_rows_total",
			Help:        "Bulk-ingested ledger rows by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"status"}, // inserted | duplicate | invalid | error
	)

	scanDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "uniqbrio_billing_overdue_scan_duration_seconds",
			Help:        "Duration of one overdue-plan scan across all tenants.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		paymentsProcessed,
		overdueBacklog,
		overdueOldest,
		ingestRows,
		scanDuration,
	)

	return &BillingMetrics{
		paymentsProcessed: paymentsProcessed,
		overdueBacklog:    overdueBacklog,
		overdueOldest:     overdueOldest,
		ingestRows:        ingestRows,
		scanDuration:      scanDuration,
	}
}

func (m *BillingMetrics) IncPaymentProcessed(result string) {
	if m == nil {
		return
	}
	m.paymentsProcessed.WithLabelValues(result).Inc()
}

func (m *BillingMetrics) SetOverdueBacklog(value int) {
	if m == nil {
		return
	}
	m.overdueBacklog.Set(float64(value))
}

func (m *BillingMetrics) SetOverdueOldest(age time.Duration) {
	if m == nil {
		return
	}
	seconds := age.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.overdueOldest.Set(seconds)
}

func (m *BillingMetrics) AddIngestRows(status string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ingestRows.WithLabelValues(status).Add(float64(count))
}

func (m *BillingMetrics) ObserveScanDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.scanDuration.Observe(d.Seconds())
}
