package postgres

import (
	"context"
	"fmt"

	"messaging-service/internal/models"

	"gorm.io/gorm"
)

// markReadBatch bounds the IN list of a single mark-read statement.
const markReadBatch = 500

type DirectMessageRepository struct {
	db *gorm.DB
}

func NewDirectMessageRepository(db *gorm.DB) *DirectMessageRepository {
	return &DirectMessageRepository{db: db}
}

func (r *DirectMessageRepository) Create(ctx context.Context, msg *models.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindVisibleByID returns a non-deleted message that userID sent or received.
func (r *DirectMessageRepository) FindVisibleByID(ctx context.Context, id uint, userID string) (*models.DirectMessage, error) {
	var msg models.DirectMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND state = ?", id, models.StateActive).
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDelete flips the message to deleted when senderID sent it. Zero rows
// means the message is missing, already deleted or not the caller's.
func (r *DirectMessageRepository) SoftDelete(ctx context.Context, id uint, senderID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("id = ? AND sender_id = ? AND state = ?", id, senderID, models.StateActive).
		Update("state", models.StateDeleted)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete message: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListForUser returns every visible message userID is party to, newest
// first.
func (r *DirectMessageRepository) ListForUser(ctx context.Context, userID string) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.WithContext(ctx).
		Where("state = ?", models.StateActive).
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID).
		Order("sent_at DESC").Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// ThreadPage returns one page of the visible thread between a and b,
// newest first.
func (r *DirectMessageRepository) ThreadPage(ctx context.Context, a, b string, page models.Page) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.WithContext(ctx).
		Where("state = ?", models.StateActive).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))", a, b, b, a).
		Order("sent_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	return msgs, nil
}

// UnreadIDs lists visible unread messages from sender to receiver.
func (r *DirectMessageRepository) UnreadIDs(ctx context.Context, receiverID, senderID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ? AND state = ?",
			receiverID, senderID, false, models.StateActive).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unread messages: %w", err)
	}
	return ids, nil
}

// MarkRead sets is_read on exactly ids, restricted to rows still unread and
// addressed to receiverID. Re-running it is a no-op.
func (r *DirectMessageRepository) MarkRead(ctx context.Context, receiverID string, ids []uint) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += markReadBatch {
		end := min(start+markReadBatch, len(ids))
		res := r.db.WithContext(ctx).Model(&models.DirectMessage{}).
			Where("id IN ? AND receiver_id = ? AND is_read = ?", ids[start:end], receiverID, false).
			Update("is_read", true)
		if res.Error != nil {
			return total, fmt.Errorf("failed to mark messages read: %w", res.Error)
		}
		total += res.RowsAffected
	}
	return total, nil
}
