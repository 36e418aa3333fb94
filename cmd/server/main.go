package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/codewithtanvir/find-your-ride-partner/internal/admin"
	"github.com/codewithtanvir/find-your-ride-partner/internal/backend"
	"github.com/codewithtanvir/find-your-ride-partner/internal/cache"
	"github.com/codewithtanvir/find-your-ride-partner/internal/config"
	httpapi "github.com/codewithtanvir/find-your-ride-partner/internal/http"
	"github.com/codewithtanvir/find-your-ride-partner/internal/ingest"
	"github.com/codewithtanvir/find-your-ride-partner/internal/kv"
	"github.com/codewithtanvir/find-your-ride-partner/internal/logging"
	"github.com/codewithtanvir/find-your-ride-partner/internal/offline"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger)
	}

	var store backend.Store
	if cfg.PGDSN != "" {
		ps, err := backend.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = backend.NewMemoryStore()
	}

	var kvStore kv.Store
	if cfg.RedisAddr != "" {
		rs := kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
		defer rs.Close()
		kvStore = rs
	} else {
		logger.Warn("REDIS_ADDR not set, snapshot cache will not survive restarts")
		kvStore = kv.NewMemory()
	}

	var publisher admin.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewAuditProducer(cfg.KafkaBrokers, cfg.AuditTopic)
		defer producer.Close()
		publisher = producer
	}

	origin, err := url.Parse(cfg.AssetOrigin)
	if err != nil {
		logger.Error("invalid ASSET_ORIGIN", "error", err)
		os.Exit(1)
	}

	watch := offline.NewWatcher(true)
	gateway := offline.NewGateway(
		offline.NewHTTPClient(cfg.FetchTimeout),
		offline.NewMemoryResponseCache(),
		origin, cfg.CacheVersion, cfg.PrecachePaths, logger,
	)
	gateway.Watch = watch

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// precaching is best effort at boot; assets fill in on first fetch
	if err := gateway.Install(ctx); err != nil {
		logger.Warn("precache incomplete", "error", err)
	}
	gateway.Activate(ctx)

	blobs := &backend.DiskBlobStore{Dir: cfg.AvatarDir, BaseURL: cfg.AvatarBaseURL}
	manager := cache.NewManager(kvStore, cache.SystemClock(), logger)
	moderation := admin.NewService(store, publisher, logger)

	handler := httpapi.NewServer(store, blobs, manager, gateway, moderation, watch, origin, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open error", "error", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_init.sql"))
	if err != nil {
		logger.Error("migration read error", "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec error", "error", err)
		return
	}
	logger.Info("migration applied", "file", "001_init.sql")
}
