package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/chatnotify/internal/config"
	"github.com/prudhvinik1/chatnotify/internal/database"
	"github.com/prudhvinik1/chatnotify/internal/events"
	"github.com/prudhvinik1/chatnotify/internal/handlers"
	"github.com/prudhvinik1/chatnotify/internal/logger"
	"github.com/prudhvinik1/chatnotify/internal/realtime"
	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"github.com/prudhvinik1/chatnotify/internal/rpc"
	"github.com/prudhvinik1/chatnotify/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	hubShutdownTimeout    = 5 * time.Second
	serverShutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logr.Sync()

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, logr)
	if err != nil {
		logr.Fatal("Failed to create postgres pool", zap.Error(err))
	}
	defer postgresPool.Close()

	if err := database.EnsureSchema(ctx, postgresPool); err != nil {
		logr.Fatal("Failed to apply schema", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, logr)
	if err != nil {
		logr.Fatal("Failed to create redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize repositories
	var registry repositories.ConnectionRegistry
	switch cfg.RegistryBackend {
	case config.RegistryRedis:
		registry = repositories.NewRedisConnectionRegistry(redisClient, cfg.ConnectionTTL, logr)
	default:
		registry = repositories.NewMemoryConnectionRegistry(cfg.ConnectionTTL, logr)
	}
	history := repositories.NewPostgresNotificationRepository(postgresPool)
	users := repositories.NewCachedUserDirectory(
		repositories.NewPostgresUserDirectory(postgresPool),
		redisClient,
		repositories.UserCacheTTL,
		logr,
	)

	// Initialize services
	hub := realtime.NewHub(registry, logr)
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	notificationService := services.NewNotificationService(registry, history, users, hub, logr)

	cleanupService := services.NewCleanupService(registry, cfg.CleanupInterval, logr)
	go cleanupService.Start(ctx)

	// Initialize HTTP server
	router := handlers.NewRouter(handlers.RouterConfig{
		Notifications:   handlers.NewNotificationHandler(notificationService, logr),
		Realtime:        realtime.NewHandler(hub, authService, notificationService, cfg.AllowedOrigins, logr),
		Auth:            authService,
		Redis:           redisClient,
		RateLimit:       cfg.RateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
		AllowedOrigins:  cfg.AllowedOrigins,
		Logger:          logr,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	rpc.RegisterNotificationServiceServer(grpcServer, rpc.NewServer(notificationService, logr))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		logr.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logr.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logr.Info("Starting gRPC server", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if cfg.KafkaEnabled() {
		consumer := events.NewConsumer(
			events.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID),
			notificationService,
			users,
			logr,
		)
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(gctx) })
	}

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logr.Info("Shutting down server...")

		cleanupService.Stop()
		if err := hub.Shutdown(hubShutdownTimeout); err != nil {
			logr.Warn("Realtime hub shutdown incomplete", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Warn("HTTP server shutdown incomplete", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logr.Error("Server error", zap.Error(err))
		return
	}

	logr.Info("Server stopped gracefully")
}
