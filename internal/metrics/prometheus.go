package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	sentCounter   prometheus.Counter
	failedCounter prometheus.Counter
	batchDuration prometheus.Histogram
	queueLag      prometheus.Histogram
	watchersGauge prometheus.Gauge
}

var (
	sentCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheltermail_emails_sent_total",
		Help: "Total number of emails delivered successfully",
	})
	failedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheltermail_emails_failed_total",
		Help: "Total number of email delivery attempts that failed",
	})
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheltermail_batch_duration_seconds",
		Help:    "Duration of delivery batch runs",
		Buckets: prometheus.DefBuckets,
	})
	queueLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheltermail_queue_lag_seconds",
		Help:    "Time between enqueue and the first dispatch attempt",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
	})
	watchersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sheltermail_stream_watchers",
		Help: "Number of connected delivery-event stream watchers",
	})
)

func NewPrometheusObserver() DeliveryObserver {
	return &prometheusObserver{
		sentCounter:   sentCounter,
		failedCounter: failedCounter,
		batchDuration: batchDuration,
		queueLag:      queueLag,
		watchersGauge: watchersGauge,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) RecordSent() {
	p.sentCounter.Inc()
}

func (p *prometheusObserver) RecordFailed() {
	p.failedCounter.Inc()
}

func (p *prometheusObserver) ObserveBatchDuration(seconds float64) {
	p.batchDuration.Observe(seconds)
}

func (p *prometheusObserver) ObserveQueueLag(seconds float64) {
	p.queueLag.Observe(seconds)
}

func (p *prometheusObserver) IncWatchers() {
	p.watchersGauge.Inc()
}

func (p *prometheusObserver) DecWatchers() {
	p.watchersGauge.Dec()
}
