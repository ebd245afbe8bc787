package services

import (
	"context"
	"log/slog"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"
)

// GroupMessageService is the membership-gated group stream. Group messages
// carry no read state.
type GroupMessageService struct {
	store    *postgres.Store
	gate     *AccessGate
	notifier Notifier
	now      func() time.Time
}

func NewGroupMessageService(store *postgres.Store, gate *AccessGate, notifier Notifier) *GroupMessageService {
	return &GroupMessageService{
		store:    store,
		gate:     gate,
		notifier: notifier,
		now:      time.Now,
	}
}

// activeGroup resolves the group and applies the membership gate. A
// deactivated group is reported as missing before membership is checked.
func (s *GroupMessageService) activeGroup(ctx context.Context, userID string, groupID uint) (*models.Group, error) {
	group, err := s.store.Groups.FindActiveByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOr("group_messages.group", err, apperrors.ErrGroupNotFound)
	}
	if err := s.gate.RequireGroupMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupMessageService) SendGroupMessage(ctx context.Context, groupID uint, userID string, req *models.SendGroupMessageRequest) (*models.GroupMessageResponse, error) {
	body, err := validateBody(req.Body)
	if err != nil {
		return nil, err
	}
	active, err := s.store.Users.IsActive(ctx, userID)
	if err != nil {
		return nil, storeError("group_messages.sender", err)
	}
	if !active {
		return nil, apperrors.ErrSenderInactive
	}
	group, err := s.activeGroup(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	msg := &models.GroupMessage{
		GroupID: groupID,
		UserID:  userID,
		Body:    body,
		SentAt:  s.now().UTC(),
		State:   models.StateActive,
	}
	if err := s.store.GroupMessages.Create(ctx, msg); err != nil {
		return nil, storeError("group_messages.send", err)
	}

	var username string
	if u, err := s.store.Users.FindByID(ctx, userID); err == nil {
		username = u.Username
	}

	slog.Debug("Group message sent", "message_id", msg.ID, "group_id", groupID, "user_id", userID)
	s.notifyMembers(ctx, group, msg)

	return &models.GroupMessageResponse{
		ID:       msg.ID,
		GroupID:  msg.GroupID,
		UserID:   msg.UserID,
		UserName: username,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
	}, nil
}

// notifyMembers fans out to every other active member. A lookup failure
// only costs the notifications.
func (s *GroupMessageService) notifyMembers(ctx context.Context, group *models.Group, msg *models.GroupMessage) {
	ids, err := s.store.Memberships.ActiveMemberIDs(ctx, group.ID)
	if err != nil {
		slog.Warn("Skipping group message notifications", "group_id", group.ID, "error", err)
		return
	}
	payload := models.GroupMessagePayload{
		GroupID:   group.ID,
		GroupName: group.Name,
		MessageID: msg.ID,
		SenderID:  msg.UserID,
		Preview:   preview(msg.Body),
	}
	for _, id := range ids {
		if id == msg.UserID {
			continue
		}
		s.notifier.Notify(id, models.KindGroupMessage, payload)
	}
}

// ListGroupMessages returns one page of the stream, newest first.
func (s *GroupMessageService) ListGroupMessages(ctx context.Context, groupID uint, userID string, page models.Page) ([]models.GroupMessageResponse, error) {
	if _, err := s.activeGroup(ctx, userID, groupID); err != nil {
		return nil, err
	}
	msgs, err := s.store.GroupMessages.ListPage(ctx, groupID, page)
	if err != nil {
		return nil, storeError("group_messages.list", err)
	}
	return msgs, nil
}
