package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/prudhivi99/order-management/internal/client"
	"github.com/prudhivi99/order-management/internal/config"
	"github.com/prudhivi99/order-management/internal/consumer"
	"github.com/prudhivi99/order-management/internal/discovery"
	"github.com/prudhivi99/order-management/internal/handlers"
	"github.com/prudhivi99/order-management/internal/logging"
	"github.com/prudhivi99/order-management/internal/messaging"
	"github.com/prudhivi99/order-management/internal/observability"
	"github.com/prudhivi99/order-management/internal/publisher"
)

const workerName = "stock-alert-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, workerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}

	shutdownTracing, err := observability.SetupTracing(ctx, workerName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	mq, err := messaging.NewRabbitMQ(cfg.AMQPURL, logger)
	if err != nil {
		return err
	}
	defer mq.Close()

	if err := mq.DeclareQueue(publisher.OrderPlacedQueue); err != nil {
		return err
	}

	catalog := client.NewProductClient(orderServiceURL(cfg, logger))
	stockAlerts := consumer.NewStockAlertConsumer(catalog, cfg.LowStockThreshold,
		consumer.RetryPolicy{Delay: cfg.ConsumerRetryDelay, MaxAttempts: cfg.ConsumerMaxAttempts},
		logger, otel.Tracer(workerName))

	messages, err := mq.Consume(publisher.OrderPlacedQueue, workerName)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		stockAlerts.ProcessOrderPlaced(ctx, messages)
	}()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logging.Recovery(logger))
	router.GET("/health", handlers.NewHealthHandler(workerName, map[string]handlers.Pinger{"rabbitmq": mq}).HealthCheck)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health endpoint failed", zap.Error(err))
		}
	}()

	logger.Info("stock alert worker started",
		zap.String("queue", publisher.OrderPlacedQueue),
		zap.Int("threshold", cfg.LowStockThreshold),
	)

	select {
	case <-ctx.Done():
	case <-done:
		return errors.New("delivery channel closed")
	}

	logger.Info("shutting down")
	if err := mq.Cancel(workerName); err != nil {
		logger.Warn("failed to cancel consumer", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// orderServiceURL prefers a healthy ORDER_SERVICE_NAME instance registered in
// Consul and falls back to ORDER_SERVICE_URL.
func orderServiceURL(cfg *config.Config, logger *zap.Logger) string {
	if cfg.ConsulAddr == "" {
		return cfg.OrderServiceURL
	}

	consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
	if err != nil {
		logger.Warn("consul unavailable, using ORDER_SERVICE_URL", zap.Error(err))
		return cfg.OrderServiceURL
	}
	url, err := consul.GetServiceURL(cfg.OrderServiceName)
	if err != nil {
		logger.Warn("order service lookup failed, using ORDER_SERVICE_URL",
			zap.String("service", cfg.OrderServiceName), zap.Error(err))
		return cfg.OrderServiceURL
	}
	logger.Info("resolved order service", zap.String("url", url))
	return url
}
