package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"messaging-service/internal/database"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *database.RedisClient
}

func NewRedisService(client *database.RedisClient) *RedisService {
	return &RedisService{
		client: client,
	}
}

// =============================================================================
// PubSub Operations
// =============================================================================

func UserNotificationChannel(userID string) string {
	return fmt.Sprintf("user:%s:notifications", userID)
}

func (r *RedisService) PublishUserNotification(ctx context.Context, userID string, notification interface{}) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = r.client.GetClient().Publish(ctx, UserNotificationChannel(userID), data).Err()
	if err != nil {
		slog.Error("Failed to publish user notification", "userID", userID, "error", err)
		return err
	}

	slog.Debug("Published user notification", "userID", userID)
	return nil
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit records one hit under key and reports whether the caller is
// still under limit within the trailing window.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	count := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}

func (r *RedisService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
