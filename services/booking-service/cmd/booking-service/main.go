package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/hotelbook/libs/config"
	"github.com/md-rashed-zaman/hotelbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/hotelbook/libs/otel"
	"github.com/md-rashed-zaman/hotelbook/libs/runtime"
	"github.com/md-rashed-zaman/hotelbook/libs/session"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/blocks"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/search"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	be, err := openBackend(ctx, config.String("STORAGE_DRIVER", "postgres"), logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer be.close()

	checks := be.checks
	// stays nil without REDIS_ADDR so the cache passes through
	var cacheClient redis.Cmdable
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0, 0),
		})
		defer func() { _ = rdb.Close() }()
		cacheClient = rdb
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	store := blocks.WithTracing(be.blocks)
	rooms := catalog.NewClassCache(be.rooms, cacheClient, config.Seconds("CLASS_CACHE_TTL_SECONDS", 5*time.Minute), logger)

	roomHandler := handlers.NewRoomHandler(
		search.NewService(be.rooms),
		availability.NewView(store, rooms),
		rooms,
		logger,
	)
	blockHandler := handlers.NewBlockHandler(store, logger)
	userHandler := handlers.NewUserHandler(be.users, logger)

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Routes(mux, roomHandler, blockHandler, userHandler)

	grpcSrv, err := startGRPC(ctx, service, logger, checks)
	if err != nil {
		logger.Error("grpc server init failed", "err", err)
		panic(err)
	}
	defer grpcSrv.Wait()

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader, "Retry-After", "Idempotent-Replayed"},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit(rdb, logger),
		session.Middleware,
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20, 1))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "storage", config.String("STORAGE_DRIVER", "postgres"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimit shares counters across replicas when redis is configured and
// falls back to a per-process limiter otherwise.
func rateLimit(rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120, 0)
	if limit == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "hotel:ratelimit", session.RateLimitKey).Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute, session.RateLimitKey).Middleware()
}
