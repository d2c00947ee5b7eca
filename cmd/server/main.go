package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sdko-org/uptime-dashboard/internal/cache"
	"github.com/sdko-org/uptime-dashboard/internal/config"
	"github.com/sdko-org/uptime-dashboard/internal/database"
	"github.com/sdko-org/uptime-dashboard/internal/handlers"
	httpserver "github.com/sdko-org/uptime-dashboard/internal/http"
	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/logging"
	"github.com/sdko-org/uptime-dashboard/internal/metrics"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()

	var db *gorm.DB
	if cfg.PostgresEnabled() {
		db, err = database.NewPostgresDB(ctx, logger, database.ConfigFrom(cfg))
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
	}

	provider, err := identity.NewCognito(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create identity provider")
	}

	var store session.Store = session.NewFileStore(cfg.SessionFile)
	if db != nil {
		store = database.NewSessionStore(db, cfg.SessionKey)
	}

	states := []string{
		session.StateLoading.String(),
		session.StateAuthenticated.String(),
		session.StateAnonymous.String(),
	}
	sessions := session.NewManager(logger, provider, store,
		session.WithListener(func(s session.State) {
			m.SetSessionState(s.String(), states...)
		}),
	)
	status := sessions.Restore(ctx)
	logger.WithField("state", status.State.String()).Info("Session initialised")

	client, err := monitorapi.NewClient(logger, cfg.APIBaseURL, sessions,
		monitorapi.WithTimeout(cfg.APITimeout),
		monitorapi.WithRateLimit(cfg.APIRateLimit),
		monitorapi.WithMetrics(m),
		monitorapi.WithOnExpired(sessions.Expire),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create monitoring API client")
	}

	proxies, err := handlers.NewProxyTrust(cfg.TrustedProxies)
	if err != nil {
		logger.WithError(err).Fatal("Invalid trusted proxy list")
	}

	opts := []handlers.Option{handlers.WithProxyTrust(proxies)}
	if cfg.ExportArchiveEnabled() {
		objects, err := storage.NewS3Store(cfg)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create export object store")
		}
		archive := storage.NewArchive(logger, objects, storage.NewGormIndex(db), cfg.ExportTTL, m)
		go cache.NewArchivePurger(logger, archive, cfg.ExportPurgeEvery, m).Start(ctx)
		opts = append(opts, handlers.WithArchive(archive))
		logger.WithField("bucket", cfg.ExportBucket).Info("Export archive enabled")
	}

	h := handlers.NewDashboardHandler(logger, sessions, client.Endpoints, client.Logs, opts...)

	var sink handlers.AccessLogSink
	if db != nil {
		sink = database.NewAccessLogStore(db)
	}
	limiter := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow, proxies, m)
	go limiter.Cleanup(ctx)

	r := mux.NewRouter()
	r.Use(handlers.RequestIDMiddleware)
	r.Use(handlers.LoggingMiddleware(logger, sink, proxies, m))
	r.Use(limiter.Middleware)
	handlers.RegisterRoutes(r, h, m.Handler())

	err = httpserver.Run(ctx, logger, httpserver.Options{
		HTTPAddr:  cfg.HTTPAddr,
		HTTPSAddr: cfg.HTTPSAddr,
		Handler:   r,
	})
	if err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
	logger.Info("Server stopped")
}
