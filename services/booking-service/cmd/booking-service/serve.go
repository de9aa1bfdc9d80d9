package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/slotdesk/libs/auth"
	"github.com/md-rashed-zaman/slotdesk/libs/config"
	"github.com/md-rashed-zaman/slotdesk/libs/db"
	"github.com/md-rashed-zaman/slotdesk/libs/grpcx"
	"github.com/md-rashed-zaman/slotdesk/libs/httpx"
	"github.com/md-rashed-zaman/slotdesk/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotdesk/libs/otel"
	"github.com/md-rashed-zaman/slotdesk/libs/runtime"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/accounts"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/service"
	"github.com/md-rashed-zaman/slotdesk/services/booking-service/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, gRPC health endpoint and outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving (postgres store only)")
	return cmd
}

func runServer(migrate bool) error {
	serviceName := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(serviceName, config.String("LOG_LEVEL", "info"))

	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = func(context.Context) error { return nil }
	}

	var checks []runtime.ReadyCheck

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	store, closeStore, storeChecks, err := openStore(ctx, logger, rdb, migrate)
	if err != nil {
		return err
	}
	defer closeStore()
	checks = append(checks, storeChecks...)

	svc, tokens, err := buildService(store, logger)
	if err != nil {
		return err
	}

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	publisher := outbox.NewPublisher(store, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	limit, err := publicLimiter(rdb, logger)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.Handle("/healthz", runtime.HealthHandler()).Methods(http.MethodGet)
	router.Handle("/readyz", runtime.ReadyHandler(checks...)).Methods(http.MethodGet)
	handlers.New(svc, logger).Routes(router, tokens, limit)

	corsMaxAge, err := config.Duration("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		return err
	}
	httpHandler := httpx.Chain(router,
		httpx.WithRecovery(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			MaxAge:         corsMaxAge,
		}),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	runtime.GracefulStop(logger, 10*time.Second,
		runtime.Stopper{Name: "grpc health", Stop: func(context.Context) error { health.Shutdown(); return nil }},
		runtime.Stopper{Name: "http server", Stop: srv.Shutdown},
		runtime.Stopper{Name: "grpc server", Stop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() { grpcSrv.GracefulStop(); close(done) }()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				grpcSrv.Stop()
				return ctx.Err()
			}
		}},
		runtime.Stopper{Name: "tracing", Stop: otelShutdown},
	)
	return nil
}

// openStore picks the backing store from STORE. The memory store persists its
// snapshot to Redis when a client is available.
func openStore(ctx context.Context, logger *slog.Logger, rdb *redis.Client, migrate bool) (storage.Store, func(), []runtime.ReadyCheck, error) {
	switch kind := config.String("STORE", "memory"); kind {
	case "memory":
		var snap storage.Snapshot[storage.State] = &storage.MemorySnapshot[storage.State]{}
		if rdb != nil {
			snap = storage.NewRedisSnapshot[storage.State](rdb, config.String("SNAPSHOT_KEY", "slotdesk:booking:state"))
		} else {
			logger.Warn("memory store without redis; state is lost on restart")
		}
		store, err := storage.NewMemoryStore(ctx, snap)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, func() {}, nil, nil

	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, nil, nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.PoolOptions{})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if migrate {
			n, err := db.NewMigrator(pool, storage.Migrations()).Up(ctx)
			if err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
			logger.Info("migrations applied", "count", n)
		}
		sqlDB := pool.SQL()
		closeFn := func() {
			_ = sqlDB.Close()
			pool.Close()
		}
		return storage.NewPostgresStore(sqlDB), closeFn, []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}, nil

	default:
		return nil, nil, nil, fmt.Errorf("STORE must be memory or postgres (got %q)", kind)
	}
}

func buildService(store storage.Store, logger *slog.Logger) (*service.Service, *auth.Issuer, error) {
	secret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return nil, nil, err
	}
	ttlMinutes, err := config.Int("TOKEN_TTL_MINUTES", 720)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewIssuer(secret, "slotdesk", time.Duration(ttlMinutes)*time.Minute)
	if err != nil {
		return nil, nil, err
	}
	trialDays, err := config.Int("TRIAL_DAYS", 30)
	if err != nil {
		return nil, nil, err
	}
	bcryptCost, err := config.Int("BCRYPT_COST", 0)
	if err != nil {
		return nil, nil, err
	}

	hasher := accounts.NewBcryptVerifier(bcryptCost)
	adminEmail := config.String("ADMIN_EMAIL", "")
	adminHash := config.String("ADMIN_PASSWORD_HASH", "")
	if adminEmail == "" || adminHash == "" {
		logger.Warn("admin login disabled (ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set)")
	}
	authn, err := accounts.NewAuthenticator(hasher, adminEmail, adminHash)
	if err != nil {
		return nil, nil, err
	}
	return service.New(store, authn, hasher, tokens, logger, service.Options{TrialDays: trialDays}), tokens, nil
}

// publicLimiter shares counters through Redis when available so every replica
// enforces the same budget.
func publicLimiter(rdb *redis.Client, logger *slog.Logger) (httpx.Middleware, error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}
	if perMinute <= 0 {
		return nil, nil
	}
	var l httpx.Limiter
	if rdb != nil {
		l = httpx.NewRedisLimiter(rdb, perMinute, time.Minute, "slotdesk:ratelimit:")
	} else {
		l = httpx.NewMemoryLimiter(perMinute, time.Minute)
	}
	return httpx.RateLimit(l, logger, true), nil
}
