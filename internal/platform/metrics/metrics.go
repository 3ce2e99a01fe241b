package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service collectors. A private registry keeps tests
// independent of the global default one.
type Registry struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	paymentsBooked   *prometheus.CounterVec
	allocatedAmount  prometheus.Counter
	bankRowsImported *prometheus.CounterVec
	messagesSent     prometheus.Counter
	mailFailures     prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "verein",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		paymentsBooked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "payments_booked_total",
			Help:      "Payments booked by source.",
		}, []string{"source"}),
		allocatedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "allocated_amount_total",
			Help:      "Sum of amounts allocated to claims.",
		}),
		bankRowsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "bank_rows_imported_total",
			Help:      "Bank statement rows by import result.",
		}, []string{"result"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "messages_sent_total",
			Help:      "Member messages created by letter sends.",
		}),
		mailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "verein",
			Name:      "mail_failures_total",
			Help:      "E-mail deliveries that failed.",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests, r.latency,
		r.paymentsBooked, r.allocatedAmount, r.bankRowsImported, r.messagesSent, r.mailFailures,
	)
	return r
}

func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }

// Middleware records request count and latency keyed by the route template.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		r.latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
	return gin.WrapH(h)
}

// The recorders below accept a nil receiver so services can run without metrics.

func (r *Registry) PaymentBooked(source string, allocated float64) {
	if r == nil {
		return
	}
	r.paymentsBooked.WithLabelValues(source).Inc()
	if allocated > 0 {
		r.allocatedAmount.Add(allocated)
	}
}

func (r *Registry) Allocated(amount float64) {
	if r == nil || amount <= 0 {
		return
	}
	r.allocatedAmount.Add(amount)
}

func (r *Registry) BankRow(result string) {
	if r == nil {
		return
	}
	r.bankRowsImported.WithLabelValues(result).Inc()
}

func (r *Registry) MessagesSent(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.messagesSent.Add(float64(n))
}

func (r *Registry) MailFailed() {
	if r == nil {
		return
	}
	r.mailFailures.Inc()
}
