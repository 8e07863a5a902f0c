package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 进程内指标集合，方法均允许 nil 接收者
type Registry struct {
	reg *prometheus.Registry

	FeedImports        *prometheus.CounterVec
	FeedImportLatency  prometheus.Histogram
	FeedListings       prometheus.Counter
	BasketOps          *prometheus.CounterVec
	OrderTransitions   *prometheus.CounterVec
	NotifySent         prometheus.Counter
	NotifyFailed       prometheus.Counter
	NotifyDropped      prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	feedImports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_feed_imports_total",
		Help: "价目表导入次数",
	}, []string{"source", "status"})
	feedLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "market_feed_import_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	feedListings := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_feed_listings_imported_total"})
	basketOps := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_basket_ops_total"}, []string{"op"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_order_transitions_total"}, []string{"status"})
	notifySent := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_notify_sent_total"})
	notifyFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_notify_failed_total"})
	notifyDropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_notify_dropped_total"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_http_requests_total",
	}, []string{"method", "route", "code"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(feedImports, feedLatency, feedListings, basketOps, transitions,
		notifySent, notifyFailed, notifyDropped, httpRequests, httpLatency)

	return &Registry{
		reg:                r,
		FeedImports:        feedImports,
		FeedImportLatency:  feedLatency,
		FeedListings:       feedListings,
		BasketOps:          basketOps,
		OrderTransitions:   transitions,
		NotifySent:         notifySent,
		NotifyFailed:       notifyFailed,
		NotifyDropped:      notifyDropped,
		HTTPRequests:       httpRequests,
		HTTPRequestLatency: httpLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ==================== 业务埋点 ====================

func (r *Registry) ObserveImport(source, status string, listings int, d time.Duration) {
	if r == nil {
		return
	}
	r.FeedImports.WithLabelValues(source, status).Inc()
	r.FeedImportLatency.Observe(d.Seconds())
	if listings > 0 {
		r.FeedListings.Add(float64(listings))
	}
}

func (r *Registry) IncBasketOp(op string) {
	if r == nil {
		return
	}
	r.BasketOps.WithLabelValues(op).Inc()
}

func (r *Registry) IncTransition(status string) {
	if r == nil {
		return
	}
	r.OrderTransitions.WithLabelValues(status).Inc()
}

func (r *Registry) IncNotify(result string) {
	if r == nil {
		return
	}
	switch result {
	case "sent":
		r.NotifySent.Inc()
	case "failed":
		r.NotifyFailed.Inc()
	case "dropped":
		r.NotifyDropped.Inc()
	}
}

// GinMiddleware 按路由模板统计请求，避免路径参数导致标签爆炸
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.HTTPRequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
