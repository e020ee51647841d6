package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/vendor-request-system/internal/domain/application"
	"github.com/xenking/vendor-request-system/internal/domain/auth"
	"github.com/xenking/vendor-request-system/internal/domain/message"
	"github.com/xenking/vendor-request-system/internal/domain/order"
	"github.com/xenking/vendor-request-system/internal/domain/product"
	"github.com/xenking/vendor-request-system/internal/domain/reference"
	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/events"
	"github.com/xenking/vendor-request-system/internal/handler"
	"github.com/xenking/vendor-request-system/internal/repository"
	"github.com/xenking/vendor-request-system/pkg/health"
	"github.com/xenking/vendor-request-system/pkg/httpmiddleware"
)

const serviceName = "vrs-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New(health.Options{Logger: lg.Named("health")})
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Domain events.
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(lg.Named("events"), cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		healthSvc.Add(health.Readiness, "kafka", 5*time.Second, health.PingCheck(kp))
		publisher = kp
		lg.Info("Publishing events", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	healthSvc.Start(ctx)
	healthSvc.SetReady(true)

	router, err := newRouter(ctx, pool, healthSvc, m.MeterProvider(), publisher, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           withMiddleware(ctx, router, m, cfg),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// withMiddleware applies the cross-cutting middleware chain around the
// router. Recovery is outermost.
func withMiddleware(ctx context.Context, router http.Handler, t httpmiddleware.Telemetry, cfg *Config) http.Handler {
	return httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			Headers:          []string{"Content-Type", "Authorization", "x-auth-token"},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, t),
		httpmiddleware.Gzip(),
	)
}

// newRouter wires repositories and domain services over pool into the API
// router.
func newRouter(
	ctx context.Context,
	pool *pgxpool.Pool,
	probes handler.Probes,
	mp metric.MeterProvider,
	publisher events.Publisher,
	cfg *Config,
) (http.Handler, error) {
	var (
		userRepo        = repository.NewUserRepository(pool)
		applicationRepo = repository.NewApplicationRepository(pool)
		referenceRepo   = repository.NewReferenceRepository(pool)
		productRepo     = repository.NewProductRepository(pool)
		orderRepo       = repository.NewOrderRepository(pool)
		messageRepo     = repository.NewMessageRepository(pool)
	)

	referenceService := reference.NewService(referenceRepo)
	applicationService := application.NewService(applicationRepo, referenceService, publisher)
	orderService, err := order.NewService(orderRepo, productRepo, applicationService, publisher,
		mp.Meter("github.com/xenking/vendor-request-system/internal/domain/order"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(handler.Services{
		Auth:         auth.NewService(userRepo, auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)),
		Users:        user.NewService(userRepo),
		Reference:    referenceService,
		Applications: applicationService,
		Products:     product.NewService(productRepo),
		Orders:       orderService,
		Messages:     message.NewService(messageRepo, userRepo, publisher),
	})

	return handler.NewRouter(h, handler.RouterOptions{
		Probes: probes,
		AuthLimit: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		Middlewares: []httpmiddleware.Middleware{
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		},
	}), nil
}
