package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafe-orders/internal/config"
	"cafe-orders/internal/database"
	"cafe-orders/internal/httpapi"
	"cafe-orders/internal/idempotency"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/messaging"
	"cafe-orders/internal/metrics"
	"cafe-orders/internal/models"
	"cafe-orders/internal/observability"
	"cafe-orders/internal/services/audit"
	"cafe-orders/internal/services/catalog"
	"cafe-orders/internal/services/inventory"
	"cafe-orders/internal/services/order"
	"cafe-orders/internal/services/tracking"
	"cafe-orders/migrations"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		mode       = flag.String("mode", "order-service", "Service mode (order-service, event-logger)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		port       = flag.Int("port", 0, "HTTP port, overrides the config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_starting", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": cfg.Server.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Otel)
	if err != nil {
		log.Error("tracing_setup_failed", "Failed to set up tracing", requestID, err, nil)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Error("tracing_shutdown_failed", "Failed to flush traces", requestID, err, nil)
		}
	}()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log)
	case "event-logger":
		err = runEventLogger(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService serves the HTTP API until ctx is cancelled
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New("orders", reg)

	// Events are optional; without a broker orders are still placed.
	var events order.EventPublisher
	var statusEvents tracking.EventPublisher
	if cfg.MessagingEnabled() {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()

		publisher := messaging.NewPublisher(conn, log)
		events, statusEvents = publisher, publisher
	} else {
		log.Warn("messaging_disabled", "RabbitMQ not configured, order events will not be published", requestID, nil)
	}

	var keys idempotency.Store
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		keys = idempotency.NewRedisStore(client, cfg.Redis.PendingTTL, cfg.Redis.IdempotencyTTL)
		log.Info("redis_connected", "Connected to Redis", requestID, map[string]interface{}{
			"addr": cfg.Redis.Addr,
		})
	}

	records := idempotency.NewRecords(db)
	menu := catalog.NewReader(db)
	ledger := inventory.NewLedger(db)
	orderRepo := tracking.NewRepository(db)

	coordinator := order.NewCoordinator(order.Deps{
		Tx:      db,
		Catalog: menu,
		Stock:   ledger,
		Orders:  order.NewRepository(),
		Keys:    records,
		Events:  events,
		Metrics: m,
		Limits:  models.Limits{MaxLines: cfg.Orders.MaxLines, MaxQuantity: cfg.Orders.MaxQuantity},
		Logger:  log,
	})
	statuses := tracking.NewService(tracking.Deps{
		Tx:      db,
		Status:  orderRepo,
		Reader:  orderRepo,
		Events:  statusEvents,
		Metrics: m,
		Strict:  cfg.Orders.StrictStatusTransitions,
		Logger:  log,
	})

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.RouterOptions{
			Logger:         log,
			Metrics:        m,
			Gatherer:       reg,
			DB:             db,
			RequestTimeout: cfg.Server.RequestTimeout,
			Services: []httpapi.Registrar{
				catalog.NewHandler(menu, log),
				inventory.NewHandler(ledger, log),
				order.NewHandler(coordinator, statuses, keys, records, log),
				tracking.NewHandler(statuses, log),
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Order service listening on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":          cfg.Server.Port,
			"messaging":     cfg.MessagingEnabled(),
			"redis":         keys != nil,
			"strict_status": cfg.Orders.StrictStatusTransitions,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runEventLogger writes the order event audit trail to stdout
func runEventLogger(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if !cfg.MessagingEnabled() {
		return errors.New("event-logger requires rabbitmq configuration")
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.QueueOrderEventsAudit, "event-logger", cfg.RabbitMQ.Prefetch)
	return audit.NewSubscriber(consumer, log, os.Stdout).Start(ctx)
}
