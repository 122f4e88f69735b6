package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/splitledger/backend/internal/config"
	"github.com/splitledger/backend/internal/database"
	"github.com/splitledger/backend/internal/events"
	"github.com/splitledger/backend/internal/handlers"
	"github.com/splitledger/backend/internal/metrics"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/internal/storage"
	"github.com/splitledger/backend/pkg/logger"
	"github.com/splitledger/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var store storage.ObjectStore = storage.NewMemoryStore()
	if cfg.MinIO.Enabled {
		minioClient, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := minioClient.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
		store = minioClient
	} else {
		logger.Warn("object_store_in_memory", map[string]interface{}{"reason": "MINIO_ENABLED=false"})
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("amqp initialization failed: %v", err)
		}
		publisher = amqpPublisher
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("publisher_close_failed", err, nil)
		}
	}()

	var gatherer prometheus.Gatherer
	var ledgerMetrics *metrics.Ledger
	if cfg.Metrics.Enabled {
		ledgerMetrics = metrics.NewLedger(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:         db,
		Membership: services.NewMembershipService(db),
		Ledger:     services.NewLedgerService(db, publisher, ledgerMetrics),
		Summary:    services.NewSummaryService(db),
		Store:      store,
		Gatherer:   gatherer,
	})

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server_starting", map[string]interface{}{
		"port":      cfg.Server.Port,
		"address":   listenAddr,
		"db_driver": cfg.DB.Driver,
		"events":    cfg.AMQP.URL != "",
		"metrics":   cfg.Metrics.Enabled,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("server_shutting_down", map[string]interface{}{"signal": sig.String()})
		if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			_ = publisher.Close()
			log.Fatalf("server error: %v", err)
		}
	}
}
