// Command server runs the loan application record service: the wizard's
// draft/submit endpoints, the reviewer surface, and the periodic cleanup
// sweep over the ephemeral store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendo/internal/application/handler"
	"lendo/internal/application/service"
	"lendo/internal/application/store"
	"lendo/internal/audit"
	"lendo/internal/crypto"
	"lendo/internal/jwtauth"
	"lendo/internal/notify"
	"lendo/internal/platform/config"
	"lendo/internal/platform/httpserver"
	"lendo/internal/platform/logger"
	"lendo/internal/platform/metrics"
	"lendo/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	cryptoSvc, err := crypto.New(cfg.RecordKey)
	if err != nil {
		return fmt.Errorf("init crypto: %w", err)
	}

	m := metrics.New()
	auditLogger := audit.NewLogger(audit.NewRedisStore(redisClient.Client, cfg.AuditTTL), log)
	recordStore := store.NewRedisStore(redisClient.Client, log)

	svc := service.New(recordStore, cryptoSvc, log,
		service.WithAudit(auditLogger),
		service.WithNotifier(&notify.LogNotifier{Logger: log}),
		service.WithMetrics(m),
		service.WithTTLs(cfg.DraftTTL, cfg.ApplicationTTL),
	)

	jwtSvc := jwtauth.New(cfg.ReviewerSigningKey)

	router := chi.NewRouter()
	handler.New(svc, log, jwtSvc).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Health(r.Context()); err != nil {
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	server := httpserver.New(cfg.Addr, router)

	go runCleanup(ctx, svc, log, cfg.CleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runCleanup sweeps expired pending records until the context ends. Sweep
// errors are logged and retried on the next tick; the store's native expiry
// still bounds data retention if sweeps keep failing.
func runCleanup(ctx context.Context, svc *service.Service, log *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.CleanupExpired(ctx)
			if err != nil {
				log.ErrorContext(ctx, "cleanup sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.InfoContext(ctx, "cleanup sweep removed expired records", "removed", removed)
			}
		}
	}
}
