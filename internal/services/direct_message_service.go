package services

import (
	"context"
	"log/slog"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"
)

type DirectMessageService struct {
	messages *postgres.DirectMessageRepository
	users    ActiveUserResolver
	notifier Notifier
	now      func() time.Time
}

func NewDirectMessageService(messages *postgres.DirectMessageRepository, users ActiveUserResolver, notifier Notifier) *DirectMessageService {
	return &DirectMessageService{
		messages: messages,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// Send stores a message between two active users and notifies the receiver.
func (s *DirectMessageService) Send(ctx context.Context, senderID string, req *models.SendMessageRequest) (*models.MessageResponse, error) {
	if req.ReceiverID == "" {
		return nil, apperrors.Validation("receiverId", "receiverId is required")
	}
	if req.ReceiverID == senderID {
		return nil, apperrors.ErrSendToSelf
	}
	body, err := validateBody(req.Body)
	if err != nil {
		return nil, err
	}

	// A token outlives deactivation, so the sender is rechecked on every write.
	ok, err := s.users.IsActiveUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrSenderInactive
	}

	ok, err = s.users.IsActiveUser(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrReceiverInactive
	}

	msg := &models.DirectMessage{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Body:       body,
		SentAt:     s.now().UTC(),
		IsRead:     false,
		State:      models.StateActive,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, storeError("messages.send", err)
	}

	slog.Debug("Direct message sent", "message_id", msg.ID, "sender_id", senderID, "receiver_id", req.ReceiverID)
	s.notifier.Notify(msg.ReceiverID, models.KindDirectMessage, models.DirectMessagePayload{
		MessageID: msg.ID,
		SenderID:  senderID,
		Preview:   preview(body),
	})

	resp := models.NewMessageResponse(msg)
	return &resp, nil
}

// GetMessage returns a message visible to userID as sender or receiver.
func (s *DirectMessageService) GetMessage(ctx context.Context, userID string, id uint) (*models.MessageResponse, error) {
	msg, err := s.messages.FindVisibleByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr("messages.get", err, apperrors.ErrMessageNotFound)
	}
	resp := models.NewMessageResponse(msg)
	return &resp, nil
}

// SoftDelete hides a message from both parties. Only the sender may do it;
// anyone else gets NotFound.
func (s *DirectMessageService) SoftDelete(ctx context.Context, requesterID string, id uint) error {
	n, err := s.messages.SoftDelete(ctx, id, requesterID)
	if err != nil {
		return storeError("messages.delete", err)
	}
	if n == 0 {
		return apperrors.ErrMessageNotFound
	}
	slog.Debug("Direct message deleted", "message_id", id, "sender_id", requesterID)
	return nil
}
