package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gestistock/config"
	"gestistock/internal/api"
	"gestistock/internal/auth"
	"gestistock/internal/broker"
	"gestistock/internal/redisclient"
	"gestistock/internal/service"
	"gestistock/internal/store"
	"gestistock/internal/store/memstore"
	"gestistock/internal/util"
	"gestistock/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting gestistock")

	// Money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	tp, err := util.InitTracer("gestistock", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	repo, closeRepo, err := openRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeRepo()

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)
	policy := service.PolicyFromConfig(cfg.Business)

	saleService := service.NewSaleService(repo, redisClient, eventPublisher, policy)
	stockService := service.NewStockService(repo, redisClient, eventPublisher, policy)
	catalogService := service.NewCatalogService(repo, eventPublisher)
	notificationService := service.NewNotificationService(repo)
	reportService := service.NewReportService(repo, redisClient, policy)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	alertConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	alertWorker := worker.NewAlertWorker(alertConsumer, notificationService)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Alert worker error", zap.Error(err))
		}
	}()

	scanner := worker.NewStockScanner(notificationService, time.Duration(cfg.Business.AlertScanIntervalSeconds)*time.Second)
	go func() {
		if err := scanner.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Stock scanner error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		saleService,
		stockService,
		catalogService,
		notificationService,
		reportService,
		auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		redisClient,
	)
	if err := handler.SetupRoutes(router, cfg.Server.RateLimit); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := alertWorker.Stop(); err != nil {
		logger.Error("Error stopping alert worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openRepository connects the configured store. "memory" keeps everything in
// process; anything else is Postgres with the schema applied on start.
func openRepository(cfg config.DatabaseConfig) (store.Repository, func() error, error) {
	logger := util.GetLogger()

	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		repo := memstore.New()
		return repo, repo.Close, nil
	}

	db, err := store.NewStore(cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("Database connected")
	return db, db.Close, nil
}
