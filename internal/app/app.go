package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tably/ordercore/internal/api"
	"github.com/tably/ordercore/internal/cache"
	"github.com/tably/ordercore/internal/domain/discount"
	"github.com/tably/ordercore/internal/domain/inventory"
	"github.com/tably/ordercore/internal/domain/menu"
	"github.com/tably/ordercore/internal/domain/order"
	"github.com/tably/ordercore/internal/domain/payment"
	"github.com/tably/ordercore/internal/event"
	"github.com/tably/ordercore/internal/kafka"
	"github.com/tably/ordercore/internal/outbox"
	"github.com/tably/ordercore/internal/storage/postgres"
	"github.com/tably/ordercore/pkg/health"
	"github.com/tably/ordercore/pkg/httpmiddleware"
)

// Consumer group names. Each group sees every message once, so the
// orchestrator and the inventory consumer each get their own.
const (
	groupOrchestrator = "ordercore-orchestrator"
	groupInventory    = "ordercore-inventory"
)

// Run creates all dependencies, starts the HTTP server, the outbox
// relay, and the event consumers, and handles graceful shutdown. It is
// the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Kafka bus behind a durable outbox: request handlers append to
	// postgres, the relay forwards to the broker.
	bus := kafka.NewBus(cfg.KafkaBrokers, lg.Named("kafka"))
	defer bus.Close() //nolint:errcheck

	outboxStore := postgres.NewOutboxStore(pool)
	publisher := outbox.NewPublisher(outboxStore)
	relay := outbox.NewRelay(outboxStore, bus, cfg.Outbox.Interval, cfg.Outbox.BatchSize, lg.Named("outbox"))

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("kafka", 5*time.Second, kafkaReachable(cfg.KafkaBrokers))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	tenantRepo := postgres.NewTenantRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	processedEvents := postgres.NewProcessedEventsStore(pool)

	var menuRepo menu.Repository = postgres.NewMenuRepository(pool)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close() //nolint:errcheck
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		menuRepo = cache.NewMenuCache(menuRepo, rdb, cfg.MenuCacheTTL, lg.Named("cache"))
	}

	// Domain services.
	engine := discount.NewEngine(lg.Named("discount"))
	orderService := order.NewService(tenantRepo, menuRepo, customerRepo, orderRepo, engine, publisher, lg.Named("order"))
	gateway := payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Mock)
	paymentService := payment.NewService(paymentRepo, orderRepo, gateway, publisher, lg.Named("payment"))
	inventoryService := inventory.NewService(inventoryRepo, publisher, lg.Named("inventory"))

	// Event consumers.
	paymentCompleted := order.NewPaymentCompletedHandler(orderService, lg.Named("order.consumer"))
	orderCompleted := inventory.NewOrderCompletedHandler(inventoryService, processedEvents, lg.Named("inventory.consumer"))

	// HTTP handlers: health endpoints + API routes on one server.
	h := api.NewHandler(orderService, paymentService, engine, inventoryService)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	handler := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", "X-Tenant-ID"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.Logging(zctx.From(ctx)),
	)
	handler = otelhttp.NewHandler(handler, "ordercore",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := relay.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := bus.Consume(gctx, []string{event.TopicPaymentCompleted}, groupOrchestrator, paymentCompleted.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := bus.Consume(gctx, []string{event.TopicOrderCompleted}, groupInventory, orderCompleted.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
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
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// kafkaReachable dials the first reachable broker to confirm the
// cluster is up.
func kafkaReachable(brokers []string) health.CheckFunc {
	return func(ctx context.Context) error {
		var d net.Dialer
		var lastErr error
		for _, addr := range brokers {
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				lastErr = err
				continue
			}
			_ = conn.Close()
			return nil
		}
		return errors.Wrap(lastErr, "no kafka broker reachable")
	}
}
