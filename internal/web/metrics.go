package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	ordersPlaced  prometheus.Counter
	productsAdded prometheus.Counter
	chatRequests  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vegbox_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vegbox_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ordersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "vegbox_orders_placed_total",
			Help: "Orders created by checkout.",
		}),
		productsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "vegbox_products_added_total",
			Help: "Products listed through the farmer form.",
		}),
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vegbox_chat_requests_total",
			Help: "Chat relay calls by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		start := time.Now()
		rr := &responseRecorder{w: w}
		next.ServeHTTP(rr, r)

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rr.code())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
