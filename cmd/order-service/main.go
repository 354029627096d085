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

	"github.com/prudhivi99/order-management/internal/cache"
	"github.com/prudhivi99/order-management/internal/config"
	"github.com/prudhivi99/order-management/internal/db"
	"github.com/prudhivi99/order-management/internal/discovery"
	"github.com/prudhivi99/order-management/internal/handlers"
	"github.com/prudhivi99/order-management/internal/logging"
	"github.com/prudhivi99/order-management/internal/messaging"
	"github.com/prudhivi99/order-management/internal/observability"
	"github.com/prudhivi99/order-management/internal/publisher"
	"github.com/prudhivi99/order-management/internal/service"
	"github.com/prudhivi99/order-management/internal/store"
	"github.com/prudhivi99/order-management/internal/store/memstore"
	"github.com/prudhivi99/order-management/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("order service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
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
	tracer := otel.Tracer(cfg.ServiceName)

	checks := map[string]handlers.Pinger{}

	st, stockCache, closeStore, err := openStore(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	// Events are optional; the API keeps working without a broker.
	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		mq, err := messaging.NewRabbitMQ(cfg.AMQPURL, logger)
		if err != nil {
			return err
		}
		defer mq.Close()

		orderPublisher, err := publisher.NewOrderPublisher(mq)
		if err != nil {
			return err
		}
		events = orderPublisher
		checks["rabbitmq"] = mq
	} else {
		logger.Info("AMQP_URL not set, order events disabled")
	}

	v := validation.New()
	paging := service.Paging{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize}

	productService := service.NewProductService(st.Products(), v, paging, logger)
	customerService := service.NewCustomerService(st.Customers(), v, paging, logger)
	orderService := service.NewOrderService(st, v, paging, stockCache, events, logger, tracer)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		logging.Recovery(logger),
		logging.RequestLogger(logger),
		observability.Tracing(tracer),
	)
	handlers.RegisterRoutes(router,
		handlers.NewHealthHandler(cfg.ServiceName, checks),
		handlers.NewProductHandler(productService, logger),
		handlers.NewCustomerHandler(customerService, logger),
		handlers.NewOrderHandler(orderService, logger),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("order service starting", zap.Int("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if cfg.ConsulAddr != "" {
		consul, err := discovery.NewConsulClient(cfg.ConsulAddr, logger)
		if err != nil {
			logger.Warn("service registration skipped", zap.Error(err))
		} else if err := consul.Register(discovery.ServiceConfig{
			Name: cfg.ServiceName,
			ID:   cfg.ServiceID,
			Port: cfg.HTTPPort,
			Tags: []string{"api", "orders"},
		}); err != nil {
			logger.Warn("service registration failed", zap.Error(err))
		} else {
			// Deregister on shutdown
			defer func() {
				if err := consul.Deregister(cfg.ServiceID); err != nil {
					logger.Warn("failed to deregister", zap.Error(err))
				}
			}()
		}
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the configured store. With PostgreSQL and REDIS_ADDR
// set, product reads go through Redis and the returned StockCache evicts
// entries after order transactions.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handlers.Pinger) (store.Store, service.StockCache, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		st := memstore.New()
		return st, nil, func() { st.Close() }, nil
	}

	database, err := db.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	checks["postgres"] = database

	if cfg.RedisAddr == "" {
		st := db.NewStore(database, nil)
		return st, nil, func() { st.Close() }, nil
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.CacheTTL, logger)
	if err != nil {
		logger.Warn("product cache disabled", zap.Error(err))
		st := db.NewStore(database, nil)
		return st, nil, func() { st.Close() }, nil
	}
	checks["redis"] = redisCache

	cached := db.NewCachedProductRepository(db.NewProductRepository(database), redisCache, logger)
	st := db.NewStore(database, cached)
	return st, cached, func() {
		st.Close()
		redisCache.Close()
	}, nil
}
