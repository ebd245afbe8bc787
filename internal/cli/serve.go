package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"messaging-service/internal/adapters/kafka"
	"messaging-service/internal/api/routes"
	"messaging-service/internal/config"
	"messaging-service/internal/database"
	"messaging-service/internal/repositories/postgres"
	"messaging-service/internal/services"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run the schema migration before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)

	if migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	var redisService *services.RedisService
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		redisService = services.NewRedisService(redisClient)
	}

	sink, closeSink, err := notificationSink(cfg, postgres.NewNotificationRepository(db), redisService)
	if err != nil {
		return err
	}
	defer closeSink()

	dispatcher := services.NewDispatcher(sink, cfg.Notification.Workers, cfg.Notification.QueueSize, cfg.Notification.Timeout)
	dispatcher.Run()

	router := routes.NewRouter(routes.Options{
		DB:             db,
		Redis:          redisService,
		Notifier:       dispatcher,
		JWTSecret:      cfg.JWT.Secret,
		TokenTTL:       cfg.JWT.ExpirationTime,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.RateLimit,
	})
	router.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	// Handlers are done, so nothing enqueues after this point.
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		slog.Warn("Pending notifications were not delivered", "error", err)
	}

	slog.Info("Server stopped")
	return nil
}

// notificationSink picks where the dispatcher delivers. With brokers
// configured events go to kafka and notify-worker persists them; otherwise
// they are stored and published in-process.
func notificationSink(cfg *config.Config, repo *postgres.NotificationRepository, redis *services.RedisService) (services.Sink, func(), error) {
	if cfg.KafkaEnabled() {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		sink := kafka.NewSink(producer, cfg.Kafka.Topic)
		slog.Info("Notifications routed through kafka", "topic", cfg.Kafka.Topic)
		return sink, func() {
			if err := sink.Close(); err != nil {
				slog.Warn("Failed to close kafka producer", "error", err)
			}
		}, nil
	}
	return localSink(repo, redis), func() {}, nil
}

func localSink(repo *postgres.NotificationRepository, redis *services.RedisService) services.Sink {
	sinks := services.MultiSink{services.NewStoreSink(repo)}
	if redis != nil {
		sinks = append(sinks, services.BestEffortSink{Sink: services.NewRedisSink(redis)})
	}
	return sinks
}
