package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/atelier/internal"
	"github.com/dukerupert/atelier/internal/address"
	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/checkout"
	"github.com/dukerupert/atelier/internal/cookie"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/handler/admin"
	"github.com/dukerupert/atelier/internal/handler/storefront"
	"github.com/dukerupert/atelier/internal/jobs"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/pricing"
	"github.com/dukerupert/atelier/internal/router"
	"github.com/dukerupert/atelier/internal/routes"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/internal/telemetry"
	"github.com/dukerupert/atelier/internal/worker"
	"github.com/dukerupert/atelier/web"
)

// adminProbeTTL is how long a positive or negative staff check is trusted.
const adminProbeTTL = 5 * time.Minute

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Error tracking
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Metrics share one registry so /metrics exposes HTTP, business and runtime series
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewMetrics("atelier", registry)
	telemetry.Business = telemetry.NewBusinessMetrics("atelier", registry)

	// ==========================================================================
	// Sessions and events
	// ==========================================================================

	store, closeStore, err := newSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cookies := cookie.NewConfig(cfg.Session.BaseDomain, cfg.Session.Secure)
	sessions := session.NewManager(store, cookies, cfg.Session.CookieName, cfg.Session.TTL, logger)

	bus, err := newBus(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	cartCounter, err := events.NewCartCounter(bus)
	if err != nil {
		return fmt.Errorf("failed to subscribe cart counter: %w", err)
	}
	defer cartCounter.Close()

	// ==========================================================================
	// Upstream clients
	// ==========================================================================

	logger.Info("Initializing shop API client...", slog.String("base_url", cfg.API.BaseURL))
	client, err := api.New(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: &telemetry.HTTPTransport{},
		}),
		api.WithObserver(telemetry.Business),
		api.WithBreaker(api.BreakerSettings{
			ConsecutiveFailures: cfg.API.BreakerFailures,
			OpenTimeout:         cfg.API.BreakerTimeout,
			OnStateChange: func(from, to string) {
				logger.Warn("shop api circuit breaker changed state", slog.String("from", from), slog.String("to", to))
				telemetry.Business.BreakerStateChanged(from, to)
			},
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize api client: %w", err)
	}
	// client serves public reads and sign-in; shop carries the shopper's token.
	shop := client.WithTokenSource(session.NewTokenSource(store))

	divisions := address.NewLookup(cfg.Address.BaseURL, cfg.Address.CacheTTL, &http.Client{
		Timeout:   10 * time.Second,
		Transport: &telemetry.HTTPTransport{},
	})

	// ==========================================================================
	// Housekeeping
	// ==========================================================================

	bg := worker.NewWorker(worker.Config{WorkerID: "housekeeping"}, logger)
	if sweeper, ok := store.(jobs.Sweeper); ok {
		if err := bg.Register(jobs.SweepSessions(sweeper, 10*time.Minute, logger)); err != nil {
			return err
		}
	}
	if cfg.Address.CacheTTL > 0 {
		if err := bg.Register(jobs.WarmProvinces(divisions, cfg.Address.CacheTTL/2)); err != nil {
			return err
		}
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		bg.Start(ctx)
	}()

	// ==========================================================================
	// Checkout
	// ==========================================================================

	policy := pricing.Policy{
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		FlatShippingFee:       cfg.Checkout.FlatShippingFee,
	}

	var buyNowPlacer checkout.OrderPlacer = checkout.SwapSaga{API: shop, Logger: logger, Observer: telemetry.Business}
	if cfg.Checkout.BuyNowMode == "direct" {
		buyNowPlacer = checkout.DirectPlacer{API: shop}
	}
	logger.Info("Checkout configured", slog.String("buy_now_mode", cfg.Checkout.BuyNowMode))

	checkoutService := checkout.NewService(checkout.Deps{
		Sessions:     store,
		Orders:       shop,
		Coupons:      shop,
		Addresses:    divisions,
		CartPlacer:   checkout.CartPlacer{API: shop},
		BuyNowPlacer: buyNowPlacer,
		Bus:          bus,
		Metrics:      telemetry.Business,
		Logger:       logger,
	}, checkout.Config{
		Policy:            policy,
		WalletQRTTL:       cfg.Checkout.WalletQRTTL,
		WalletVerifyDelay: cfg.Checkout.WalletVerifyDelay,
		BuyNowTTL:         cfg.Checkout.BuyNowTTL,
	})

	// ==========================================================================
	// Build route dependencies
	// ==========================================================================

	logger.Info("Loading templates...")
	renderer, err := handler.NewRenderer(web.Templates(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	logger.Info("Templates loaded successfully")

	rs := handler.NewResponder(renderer, sessions, logger)

	authRateLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	defer authRateLimiter.Stop()

	storefrontDeps := routes.StorefrontDeps{
		HomeHandler:     storefront.NewHomeHandler(client, rs),
		ProductHandler:  storefront.NewProductHandler(client, shop, shop, bus, rs),
		CartHandler:     storefront.NewCartHandler(shop, policy, bus, rs),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, divisions, client, cfg.Checkout.BuyNowMode, rs),
		OrderHandler:    storefront.NewOrderHandler(shop, rs),
		WishlistHandler: storefront.NewWishlistHandler(shop, rs),
		CouponHandler:   storefront.NewCouponHandler(shop, rs),
		ReviewHandler:   storefront.NewReviewHandler(shop, rs),
		AuthHandler:     storefront.NewAuthHandler(client, shop, rs),
		AuthLimit:       authRateLimiter.Middleware,
	}

	adminDeps := routes.AdminDeps{
		RequireAdmin:     middleware.RequireAdmin(shop, sessions, adminProbeTTL),
		DashboardHandler: admin.NewDashboardHandler(shop, rs),
		ProductHandler:   admin.NewProductHandler(shop, rs),
		OrderHandler:     admin.NewOrderHandler(shop, rs),
		UserHandler:      admin.NewUserHandler(shop, rs),
		StockHandler:     admin.NewStockHandler(shop, rs),
	}

	// ==========================================================================
	// Initialize middleware
	// ==========================================================================

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.Session.Secure)
	csrfConfig := middleware.DefaultCSRFConfig(cookies)
	defaultRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer defaultRateLimiter.Stop()

	// ==========================================================================
	// Create routers and register routes
	// ==========================================================================

	// Base router: assets, probes and metrics carry no session
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		telemetry.SentryMiddleware(func(req *http.Request) map[string]string {
			return map[string]string{"request_id": middleware.GetRequestID(req.Context())}
		}),
		httpMetrics.Middleware,
		middleware.SecurityHeaders(securityConfig),
		router.AccessLog(logger),
	)
	r.NotFound(rs.NotFound)

	r.Static("/static/", web.Static())

	// Metrics endpoint (no auth required, but should be protected in production via firewall)
	r.Get("/metrics", httpMetrics.Handler().ServeHTTP)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Pages: sessions, CSRF and the bag badge
	pages := r.Group(
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		defaultRateLimiter.Middleware,
		middleware.WithSession(sessions),
		middleware.CSRF(csrfConfig),
		middleware.WithCartCount(cartCounter, shop),
	)
	routes.RegisterStorefrontRoutes(pages, storefrontDeps)
	routes.RegisterAdminRoutes(pages, adminDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting storefront server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	<-workerDone
	return nil
}

// newSessionStore builds the configured session store.
func newSessionStore(ctx context.Context, cfg internal.SessionConfig, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Session store: redis")
		return session.NewRedisStore(rdb, cfg.TTL), func() { rdb.Close() }, nil
	default:
		logger.Info("Session store: memory")
		return session.NewMemoryStore(cfg.TTL), func() {}, nil
	}
}

// newBus connects to NATS when configured and otherwise keeps events in process.
func newBus(cfg internal.EventsConfig, logger *slog.Logger) (events.Bus, error) {
	if cfg.NATSURL == "" {
		logger.Info("Event bus: local")
		return events.NewLocalBus(), nil
	}
	bus, err := events.ConnectNATS(cfg.NATSURL, cfg.Subject, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event bus: %w", err)
	}
	logger.Info("Event bus: nats", slog.String("url", cfg.NATSURL))
	return bus, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
