package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/safar/vegbox/internal/chat"
	"github.com/safar/vegbox/internal/config"
	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/images"
	"github.com/safar/vegbox/internal/session"
	"github.com/safar/vegbox/internal/shop"
	"github.com/safar/vegbox/internal/store"
	"github.com/safar/vegbox/internal/web"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const sessionSweepInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web storefront",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.WithField("driver", cfg.Database.Driver).Info("connected to database")

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, db, database.MigrateUp)
		if err != nil {
			return err
		}
		log.WithField("count", len(applied)).Info("migrations completed")
	}
	if cfg.Database.SeedDemo {
		inserted, err := store.SeedDemoProducts(ctx, db)
		if err != nil {
			return err
		}
		if inserted > 0 {
			log.WithField("inserted", inserted).Info("seeded demo products")
		}
	}

	imageStore, err := images.Open(ctx, cfg.Images)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}
	log.WithField("driver", imageStore.Driver()).Info("image store ready")

	sessions, closeSessions, err := openSessions(ctx, cfg.Session, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	relay := chat.New(cfg.Chat.Endpoint, cfg.Chat.Model, cfg.Chat.Timeout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := web.New(web.Options{
		DB:         db,
		Images:     imageStore,
		Sessions:   sessions,
		Chat:       relay,
		Checkout:   shop.NewService(db, shop.WithStrictStock(cfg.Checkout.StrictStock)),
		Logger:     log,
		Registry:   registry,
		CookieName: cfg.Session.CookieName,
		SessionTTL: cfg.Session.TTL,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openSessions(ctx context.Context, cfg config.SessionConfig, log logrus.FieldLogger) (session.Store, func(), error) {
	switch cfg.Driver {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis session store")
		return session.NewRedisStore(client, session.WithTTL(cfg.TTL)), func() { client.Close() }, nil
	default:
		mem := session.NewMemoryStore(cfg.TTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepSessions(sweepCtx, mem, log)
		return mem, cancel, nil
	}
}

func sweepSessions(ctx context.Context, mem *session.MemoryStore, log logrus.FieldLogger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := mem.Sweep(); removed > 0 {
				log.WithField("removed", removed).Debug("expired sessions swept")
			}
		}
	}
}
