package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/sales-api/internal/cache"
	"github.com/xenking/sales-api/internal/domain/sale"
	"github.com/xenking/sales-api/internal/handler"
	"github.com/xenking/sales-api/internal/storage/postgres"
	"github.com/xenking/sales-api/internal/validation"
	"github.com/xenking/sales-api/pkg/health"
	"github.com/xenking/sales-api/pkg/httpmiddleware"
)

// Service is the assembled application: the HTTP handler plus the resources
// it owns.
type Service struct {
	Handler http.Handler
	Health  *health.Health

	closers []func()
}

// Close releases the resources opened by Build in reverse order.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build creates all dependencies and the middleware-wrapped handler. Health
// checks are started; the caller owns Close.
func Build(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) (_ *Service, rerr error) {
	svc := &Service{}
	defer func() {
		if rerr != nil {
			svc.Close()
		}
	}()

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	svc.closers = append(svc.closers, pool.Close)

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}

	// Optional Redis shared by the product cache and the rate limiter.
	rdb, err := openRedis(ctx, lg, m, cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "open redis")
	}
	if rdb != nil {
		svc.closers = append(svc.closers, func() { _ = rdb.Close() })
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	if rdb != nil {
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(rdb), health.Optional())
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second), health.Thresholds(3, 1))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)
	svc.closers = append(svc.closers, healthSvc.Stop)
	svc.Health = healthSvc

	// Storage, cache and domain services.
	productRepo := postgres.NewProductRepository(pool)
	productCache := cache.NewProductCache(cache.Config{
		TTL:  cfg.Cache.TTL,
		Size: cfg.Cache.Size,
	}, redisOrNil(rdb))
	catalog := cache.NewCatalog(productRepo, productCache)
	saleService := sale.NewService(postgres.NewSaleStore(pool), catalog, cfg.Pagination.DefaultLimit)

	// HTTP handlers.
	h := handler.New(
		handler.Config{MaxBodyBytes: cfg.MaxBodyBytes},
		saleService,
		catalog,
		validation.NewChecker(),
	)
	router := handler.NewRouter(h, healthSvc,
		httpmiddleware.Labeler(),
		httpmiddleware.LogRequests(),
	)

	svc.Handler = httpmiddleware.Wrap(router, httpmiddleware.Server(ctx, lg, m, httpmiddleware.ServerConfig{
		CORS: httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{"Location", httpmiddleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		},
		RateLimit: httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Redis:  redisOrNil(rdb),
		},
	})...)
	return svc, nil
}

// Run builds the service, starts the HTTP server, and handles graceful
// shutdown.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	svc, err := Build(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.Handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		svc.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// openRedis connects to Redis when url is set. An unreachable server is not
// fatal: the cache and rate limiter degrade to local state until it returns.
func openRedis(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, url string) (*redis.Client, error) {
	if url == "" {
		lg.Info("Redis not configured, using in-process cache and rate limiter")
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)

	if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(m.TracerProvider())); err != nil {
		lg.Warn("Instrument redis tracing", zap.Error(err))
	}
	if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(m.MeterProvider())); err != nil {
		lg.Warn("Instrument redis metrics", zap.Error(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		lg.Warn("Redis unreachable, continuing with local fallbacks", zap.Error(err))
	}
	return client, nil
}

// redisOrNil keeps a nil *redis.Client from becoming a non-nil interface.
func redisOrNil(c *redis.Client) redis.UniversalClient {
	if c == nil {
		return nil
	}
	return c
}
