package models

import (
	"encoding/json"
	"time"
)

type NotificationKind string

const (
	KindGroupMemberAdded NotificationKind = "group.member_added"
	KindGroupMessage     NotificationKind = "group.message"
	KindDirectMessage    NotificationKind = "direct.message"
)

/** --------------------ENTITIES-------------------- */
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    string           `gorm:"size:36;not null;index" json:"userId"`
	Kind      NotificationKind `gorm:"size:32;not null" json:"kind"`
	Title     string           `gorm:"size:500;not null" json:"title"`
	Body      string           `gorm:"size:1000" json:"body"`
	Payload   string           `gorm:"type:text" json:"-"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Event is what the messaging core hands to a notification sink.
type Event struct {
	UserID     string           `json:"userId"`
	Kind       NotificationKind `json:"kind"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	Payload    json.RawMessage  `json:"payload"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// Summarizer lets a payload render its own notification text.
type Summarizer interface {
	Summary() (title, body string)
}

type GroupMemberAddedPayload struct {
	GroupID   uint   `json:"groupId"`
	GroupName string `json:"groupName"`
	AddedBy   string `json:"addedBy"`
}

func (p GroupMemberAddedPayload) Summary() (string, string) {
	return "Added to group", "You were added to the group '" + p.GroupName + "'."
}

type GroupMessagePayload struct {
	GroupID   uint   `json:"groupId"`
	GroupName string `json:"groupName"`
	MessageID uint   `json:"messageId"`
	SenderID  string `json:"senderId"`
	Preview   string `json:"preview"`
}

func (p GroupMessagePayload) Summary() (string, string) {
	return "New message in " + p.GroupName, p.Preview
}

type DirectMessagePayload struct {
	MessageID uint   `json:"messageId"`
	SenderID  string `json:"senderId"`
	Preview   string `json:"preview"`
}

func (p DirectMessagePayload) Summary() (string, string) {
	return "New message", p.Preview
}

/** -------------------- DTOs -------------------- */
type NotificationResponse struct {
	ID        uint             `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

func NewNotificationResponse(n *Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Payload != "" && json.Valid([]byte(n.Payload)) {
		resp.Payload = json.RawMessage(n.Payload)
	}
	return resp
}
