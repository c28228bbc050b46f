package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	grpcapi "rentdesk-backend/internal/api/grpc"
	httpapi "rentdesk-backend/internal/api/http"
	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/events"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/service"
	"rentdesk-backend/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to optional .env file")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentDesk Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetHTTPAddress(), "grpc", cfg.GetGRPCAddress(), "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Store
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize Event Publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// Initialize Services
	repos := store.Repositories()
	svcs := httpapi.Services{
		Rental:    service.NewRentalService(store, publisher, cfg.TaxPercent(), nil),
		Inventory: service.NewInventoryService(repos.Products),
		Report:    service.NewReportService(repos.Returns, repos.Orders),
	}

	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(svcs, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := grpcapi.NewHealthReporter(store, 15*time.Second)
	grpcServer := grpcapi.NewServer(health)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			return err
		}
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
