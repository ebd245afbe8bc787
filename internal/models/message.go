package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// DirectMessage is a message between two users. Only the sender may move
// it to StateDeleted.
type DirectMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   string    `gorm:"size:36;not null;index:idx_dm_sender_receiver,priority:1" json:"senderId"`
	ReceiverID string    `gorm:"size:36;not null;index:idx_dm_sender_receiver,priority:2;index" json:"receiverId"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	SentAt     time.Time `gorm:"not null;index" json:"sentAt"`
	IsRead     bool      `gorm:"not null;default:false" json:"isRead"`
	State      State     `gorm:"size:16;not null;default:active;index" json:"-"`
}

func (m *DirectMessage) IsDeleted() bool {
	return m.State == StateDeleted
}

// Counterpart returns the other participant relative to userID.
func (m *DirectMessage) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// GroupMessage is a message in a group stream. It is never edited.
type GroupMessage struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	GroupID uint      `gorm:"not null;index:idx_gm_group_sent,priority:1" json:"groupId"`
	UserID  string    `gorm:"size:36;not null;index" json:"userId"`
	Body    string    `gorm:"type:text;not null" json:"body"`
	SentAt  time.Time `gorm:"not null;index:idx_gm_group_sent,priority:2" json:"sentAt"`
	State   State     `gorm:"size:16;not null;default:active" json:"-"`
}

/** -------------------- DTOs -------------------- */
// Request
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Body       string `json:"body"`
}

type SendGroupMessageRequest struct {
	Body string `json:"body"`
}

// Response
type MessageResponse struct {
	ID         uint      `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
	IsRead     bool      `json:"isRead"`
}

type ConversationSummary struct {
	CounterpartID string          `json:"counterpartId"`
	LastMessage   MessageResponse `json:"lastMessage"`
	UnreadCount   int             `json:"unreadCount"`
}

type GroupMessageResponse struct {
	ID       uint      `json:"id"`
	GroupID  uint      `json:"groupId"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}

func NewMessageResponse(m *DirectMessage) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		SentAt:     m.SentAt,
		IsRead:     m.IsRead,
	}
}
