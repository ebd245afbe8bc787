package postgres

import (
	"context"
	"fmt"
	"time"

	"messaging-service/internal/models"

	"gorm.io/gorm"
)

type GroupMessageRepository struct {
	db *gorm.DB
}

func NewGroupMessageRepository(db *gorm.DB) *GroupMessageRepository {
	return &GroupMessageRepository{db: db}
}

func (r *GroupMessageRepository) Create(ctx context.Context, msg *models.GroupMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create group message: %w", err)
	}
	return nil
}

type groupMessageRow struct {
	ID       uint
	GroupID  uint
	UserID   string
	Username string
	Body     string
	SentAt   time.Time
}

// ListPage returns one page of a group's visible stream newest first, with
// the sender's username resolved.
func (r *GroupMessageRepository) ListPage(ctx context.Context, groupID uint, page models.Page) ([]models.GroupMessageResponse, error) {
	var rows []groupMessageRow
	err := r.db.WithContext(ctx).Table("group_messages").
		Select("group_messages.id, group_messages.group_id, group_messages.user_id, users.username, group_messages.body, group_messages.sent_at").
		Joins("LEFT JOIN users ON users.id = group_messages.user_id").
		Where("group_messages.group_id = ? AND group_messages.state = ?", groupID, models.StateActive).
		Order("group_messages.sent_at DESC").Order("group_messages.id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list group messages: %w", err)
	}

	out := make([]models.GroupMessageResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, models.GroupMessageResponse{
			ID:       m.ID,
			GroupID:  m.GroupID,
			UserID:   m.UserID,
			UserName: m.Username,
			Body:     m.Body,
			SentAt:   m.SentAt,
		})
	}
	return out, nil
}
