// Package web serves the VegBox storefront: server-rendered pages for the
// three roles, a small JSON read API, health and metrics endpoints.
package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/images"
	"github.com/safar/vegbox/internal/session"
	"github.com/safar/vegbox/internal/shop"
	"github.com/sirupsen/logrus"
)

const recentOrdersLimit = 10

// Asker answers chat prompts with displayable text.
type Asker interface {
	Ask(ctx context.Context, prompt string) string
}

type Options struct {
	DB       *database.DB
	Images   images.Store
	Sessions session.Store
	Chat     Asker
	Checkout *shop.Service
	Logger   *logrus.Logger

	// Registry receives the server's collectors and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry

	CookieName string
	SessionTTL time.Duration
}

type Server struct {
	db         *database.DB
	images     images.Store
	sessions   session.Store
	chat       Asker
	checkout   *shop.Service
	log        *logrus.Logger
	metrics    *metrics
	templates  *template.Template
	cookieName string
	sessionTTL time.Duration
	handler    http.Handler
}

func New(opts Options) (*Server, error) {
	if opts.DB == nil || opts.Images == nil || opts.Sessions == nil || opts.Chat == nil {
		return nil, fmt.Errorf("web: database, images, sessions and chat are required")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:         opts.DB,
		images:     opts.Images,
		sessions:   opts.Sessions,
		chat:       opts.Chat,
		checkout:   opts.Checkout,
		log:        opts.Logger,
		templates:  tmpl,
		cookieName: opts.CookieName,
		sessionTTL: opts.SessionTTL,
	}
	if s.checkout == nil {
		s.checkout = shop.NewService(opts.DB)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.cookieName == "" {
		s.cookieName = "vegbox_session"
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(reg)
	if err := reg.Register(collectors.NewDBStatsCollector(opts.DB.DB, "vegbox")); err != nil {
		return nil, fmt.Errorf("register db stats collector: %w", err)
	}

	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", s.apiListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", s.apiGetProduct).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.apiListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", s.apiGetOrder).Methods(http.MethodGet)

	r.HandleFunc("/products/{id:[0-9]+}/image", s.productImageHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/orders/{id:[0-9]+}/receipt.csv", s.receiptHandler).Methods(http.MethodGet)

	// Pages keep per-visitor state, so only they get a session.
	ui := r.PathPrefix("/").Subrouter()
	ui.Use(s.ensureSession)
	ui.HandleFunc("/", s.homeHandler).Methods(http.MethodGet, http.MethodHead)
	ui.HandleFunc("/role", s.setRoleHandler).Methods(http.MethodPost)
	ui.HandleFunc("/products", s.addProductHandler).Methods(http.MethodPost)
	ui.HandleFunc("/cart/add", s.addToCartHandler).Methods(http.MethodPost)
	ui.HandleFunc("/cart/clear", s.clearCartHandler).Methods(http.MethodPost)
	ui.HandleFunc("/checkout", s.checkoutHandler).Methods(http.MethodPost)
	ui.HandleFunc("/chat", s.chatHandler).Methods(http.MethodPost)

	s.handler = &logHandler{log: s.log, next: r}
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		requestLogger(r).WithError(err).Warn("health check failed")
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
