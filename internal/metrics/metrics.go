package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsFn interface {
	IncEnqueued()
	ObserveRequest(status int, d time.Duration, traced bool, err error)

	IncActiveWorkers()
	DecActiveWorkers()

	SetQueueDepth(n int64)

	IncInflight()
	DecInflight()
}

// Snapshot is the JSON view served on /stats.
type Snapshot struct {
	Enqueued      uint64 `json:"enqueued"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	Traced        uint64 `json:"traced"`
	QueueDepth    int64  `json:"queue_depth"`
	Inflight      int64  `json:"inflight"`
	ActiveWorkers int64  `json:"active_workers"`
}

type Metrics struct {
	// counters
	enqueued  uint64
	completed uint64
	failed    uint64
	traced    uint64

	// gauges
	queueDepth int64
	inflight   int64
	activeW    int64

	reg         *prometheus.Registry
	enqueuedC   prometheus.Counter
	requestsC   *prometheus.CounterVec
	errorsC     prometheus.Counter
	tracedC     prometheus.Counter
	durationH   prometheus.Histogram
	queueDepthG prometheus.Gauge
	inflightG   prometheus.Gauge
	activeG     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		enqueuedC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinger_enqueued_total",
			Help: "Requests pushed onto the queue by the producer.",
		}),
		requestsC: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pinger_requests_total",
			Help: "Completed requests by HTTP status code.",
		}, []string{"status"}),
		errorsC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinger_request_errors_total",
			Help: "Requests that failed without an HTTP response.",
		}),
		tracedC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinger_traced_requests_total",
			Help: "Requests sent with synthetic trace headers.",
		}),
		durationH: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pinger_request_duration_seconds",
			Help:    "Request latency including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepthG: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pinger_queue_depth",
			Help: "Requests waiting in the queue, counted at the queue itself.",
		}),
		inflightG: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pinger_inflight",
			Help: "Requests currently being sent.",
		}),
		activeG: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pinger_active_workers",
			Help: "Running worker goroutines.",
		}),
	}
	m.reg.MustRegister(
		m.enqueuedC, m.requestsC, m.errorsC, m.tracedC, m.durationH,
		m.queueDepthG, m.inflightG, m.activeG,
	)
	return m
}

// counters
func (m *Metrics) IncEnqueued() {
	atomic.AddUint64(&m.enqueued, 1)
	m.enqueuedC.Inc()
}

func (m *Metrics) ObserveRequest(status int, d time.Duration, traced bool, err error) {
	m.durationH.Observe(d.Seconds())
	if traced {
		atomic.AddUint64(&m.traced, 1)
		m.tracedC.Inc()
	}
	if err != nil {
		atomic.AddUint64(&m.failed, 1)
		m.errorsC.Inc()
		return
	}
	atomic.AddUint64(&m.completed, 1)
	m.requestsC.WithLabelValues(strconv.Itoa(status)).Inc()
}

// gauges
func (m *Metrics) SetQueueDepth(n int64) {
	atomic.StoreInt64(&m.queueDepth, n)
	m.queueDepthG.Set(float64(n))
}

func (m *Metrics) IncInflight() { atomic.AddInt64(&m.inflight, 1); m.inflightG.Inc() }
func (m *Metrics) DecInflight() { atomic.AddInt64(&m.inflight, -1); m.inflightG.Dec() }

func (m *Metrics) IncActiveWorkers() { atomic.AddInt64(&m.activeW, 1); m.activeG.Inc() }
func (m *Metrics) DecActiveWorkers() { atomic.AddInt64(&m.activeW, -1); m.activeG.Dec() }

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Enqueued:      atomic.LoadUint64(&m.enqueued),
		Completed:     atomic.LoadUint64(&m.completed),
		Failed:        atomic.LoadUint64(&m.failed),
		Traced:        atomic.LoadUint64(&m.traced),
		QueueDepth:    atomic.LoadInt64(&m.queueDepth),
		Inflight:      atomic.LoadInt64(&m.inflight),
		ActiveWorkers: atomic.LoadInt64(&m.activeW),
	}
}

// Http handler

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncEnqueued()                                   {}
func (Nop) ObserveRequest(int, time.Duration, bool, error) {}
func (Nop) IncActiveWorkers()                              {}
func (Nop) DecActiveWorkers()                              {}
func (Nop) SetQueueDepth(int64)                            {}
func (Nop) IncInflight()                                   {}
func (Nop) DecInflight()                                   {}
