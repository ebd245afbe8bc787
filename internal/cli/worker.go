package cli

import (
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"messaging-service/internal/adapters/kafka"
	"messaging-service/internal/database"
	"messaging-service/internal/repositories/postgres"
	"messaging-service/internal/services"

	"github.com/spf13/cobra"
)

func newNotifyWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-worker",
		Short: "Consume notification events from kafka and persist them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			if !cfg.KafkaEnabled() {
				return errors.New("KAFKA_BROKERS must be set for notify-worker")
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

			target := localSink(postgres.NewNotificationRepository(db), redisService)
			worker := kafka.NewWorker(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, target, cfg.Notification.Timeout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("Consuming notifications", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
			return worker.Run(ctx)
		},
	}
}
