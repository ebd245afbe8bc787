package services

import (
	"context"
	"fmt"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"
)

// StoreSink persists events as Notification rows.
type StoreSink struct {
	repo *postgres.NotificationRepository
}

func NewStoreSink(repo *postgres.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Deliver(ctx context.Context, event models.Event) error {
	title := event.Title
	if title == "" {
		title = string(event.Kind)
	}
	n := &models.Notification{
		UserID:    event.UserID,
		Kind:      event.Kind,
		Title:     title,
		Body:      event.Body,
		Payload:   string(event.Payload),
		CreatedAt: event.OccurredAt,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store sink: %w", err)
	}
	return nil
}

// RedisSink publishes events on the per-user notification channel.
type RedisSink struct {
	redis *RedisService
}

func NewRedisSink(redis *RedisService) *RedisSink {
	return &RedisSink{redis: redis}
}

func (s *RedisSink) Deliver(ctx context.Context, event models.Event) error {
	return s.redis.PublishUserNotification(ctx, event.UserID, event)
}

type NotificationService struct {
	repo *postgres.NotificationRepository
}

func NewNotificationService(repo *postgres.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID string, page models.Page) ([]models.NotificationResponse, error) {
	items, err := s.repo.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, storeError("notifications.list", err)
	}
	out := make([]models.NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, models.NewNotificationResponse(&items[i]))
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeError("notifications.unread_count", err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	found, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return storeError("notifications.mark_read", err)
	}
	if !found {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, storeError("notifications.mark_all_read", err)
	}
	return n, nil
}
