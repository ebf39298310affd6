package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/config"
	dbRedis "github.com/kailas-cloud/obstore/internal/db/redis"
	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/domain/envelope"
	domobj "github.com/kailas-cloud/obstore/internal/domain/object"
	"github.com/kailas-cloud/obstore/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/obstore/internal/logger"
	"github.com/kailas-cloud/obstore/internal/metrics"
	objectrepo "github.com/kailas-cloud/obstore/internal/repository/object"
	chiTransport "github.com/kailas-cloud/obstore/internal/transport/chi"
	healthuc "github.com/kailas-cloud/obstore/internal/usecase/health"
	objectuc "github.com/kailas-cloud/obstore/internal/usecase/object"
	"github.com/kailas-cloud/obstore/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting obstore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey with the search and JSON modules speaks the same commands,
	// so both drivers share the rueidis store.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:     cfg.Database.Addrs,
		Username:  cfg.Database.Username,
		Password:  cfg.Database.Password,
		KeyPrefix: cfg.Index.KeyPrefix,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterStoreMetrics()
	metrics.RegisterHTTPMetrics()

	registry := domobj.Default()
	codec := envelope.NewCodec(registry, logger.Named("envelope"))

	policy, err := access.NewPolicy(
		access.FilterBy(cfg.Access.FilterBy), cfg.Access.AdminRoles, cfg.Access.AdminAccess == "all",
	)
	if err != nil {
		logger.Fatal("Invalid access policy", zap.Error(err))
	}

	objectRepo, err := objectrepo.New(store, codec,
		objectrepo.WithIndexNames(cfg.Index.Name, cfg.Index.Legacy()),
		objectrepo.WithOperationTimeout(time.Duration(cfg.Database.OperationTimeoutMs)*time.Millisecond),
		objectrepo.WithLogger(logger.Named("repository")),
	)
	if err != nil {
		logger.Fatal("Failed to create object repository", zap.Error(err))
	}

	// Migrate eagerly; every gateway call retries if this fails.
	if err := objectRepo.EnsureIndex(ctx); err != nil {
		logger.Warn("Index migration deferred", zap.Error(err))
	}

	builder := query.NewBuilder(registry,
		query.WithPageSize(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize),
	)
	objectSvc := objectuc.New(objectRepo, builder, policy)
	healthSvc := healthuc.New(store, objectRepo)

	server := chiTransport.NewServer(objectSvc, healthSvc, codec, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(usersByKey(cfg.Auth)))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func usersByKey(auth config.AuthConfig) map[string]access.User {
	out := make(map[string]access.User, len(auth.Users))
	for key, u := range auth.UsersByKey() {
		out[key] = access.User{
			Name:         u.Name,
			Tenant:       u.Tenant,
			Roles:        u.Roles,
			BackendRoles: u.BackendRoles,
		}
	}
	return out
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
