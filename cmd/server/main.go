package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"laudo/internal/aggregate"
	aggregatehandler "laudo/internal/aggregate/handler"
	"laudo/internal/audit"
	auditkafka "laudo/internal/audit/kafka"
	auditmem "laudo/internal/audit/store/memory"
	auditpg "laudo/internal/audit/store/postgres"
	"laudo/internal/circuit"
	"laudo/internal/directory"
	httpapi "laudo/internal/http"
	jwttoken "laudo/internal/jwt_token"
	"laudo/internal/notification"
	"laudo/internal/platform/config"
	"laudo/internal/platform/httpserver"
	"laudo/internal/platform/logger"
	"laudo/internal/platform/metrics"
	"laudo/internal/platform/middleware"
	"laudo/internal/platform/postgres"
	platformredis "laudo/internal/platform/redis"
	"laudo/internal/ratelimit"
	ratelimitmem "laudo/internal/ratelimit/store/memory"
	ratelimitredis "laudo/internal/ratelimit/store/redis"
	"laudo/internal/report"
	"laudo/internal/submission"
	submissionhandler "laudo/internal/submission/handler"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx := context.Background()
	m := metrics.New()

	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to in-memory when the backend is not configured.
	var (
		auditStore audit.Store   = auditmem.New()
		dir        directory.Directory
		reports    report.Store
		notifier   notification.Sink
	)
	if pool != nil {
		auditStore = auditpg.New(pool)
		dir = directory.NewPostgres(pool)
		reports = report.NewPostgres(pool)
		notifier = notification.NewPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		dir = directory.NewMemory()
		reports = report.NewMemory()
		notifier = notification.NewMemory()
	}

	var limiterStore ratelimit.Store = ratelimitmem.New()
	if redisClient != nil {
		limiterStore = ratelimitredis.New(redisClient.Client)
	}

	recorderOpts := []audit.RecorderOption{
		audit.WithLogger(log),
		audit.WithMetrics(m),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(cfg.KafkaBrokers, auditkafka.WithLogger(log))
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		recorderOpts = append(recorderOpts, audit.WithPublisher(publisher))
	}
	recorder := audit.NewRecorder(auditStore, recorderOpts...)

	breaker := circuit.New(circuit.WithMetrics(m))

	limiterSvc, err := ratelimit.New(limiterStore,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(m),
	)
	if err != nil {
		log.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}
	limiter := ratelimit.NewMiddleware(limiterSvc,
		ratelimit.WithDisabled(cfg.RateLimitDisabled))
	if cfg.RateLimitDisabled {
		log.Warn("rate limiting disabled by RATE_LIMIT_DISABLED")
	}

	submissionSvc, err := submission.New(dir, reports, notifier, recorder, breaker,
		submission.WithLogger(log),
		submission.WithMetrics(m),
	)
	if err != nil {
		log.Error("submission service setup failed", "error", err)
		os.Exit(1)
	}

	aggregateSvc, err := aggregate.New(auditStore, reports, dir,
		aggregate.WithLogger(log))
	if err != nil {
		log.Error("aggregate service setup failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "laudo", "laudo-portal")
	auth := middleware.RequireAuth(jwtSvc, log)

	checks := map[string]httpapi.HealthChecker{}
	if pool != nil {
		checks["postgres"] = poolHealth{pool: pool}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Submissions: submissionhandler.New(submissionSvc, breaker, limiter, recorder, log),
		Documents:   aggregatehandler.New(aggregateSvc, auth, log),
		Logger:      log,
		Checks:      checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting laudo server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// poolHealth adapts the pgx pool to the router's health probe.
type poolHealth struct {
	pool *pgxpool.Pool
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
