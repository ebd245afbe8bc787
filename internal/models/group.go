package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// Group is a named set of members with its own message stream.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description *string   `gorm:"size:500" json:"description"`
	CreatedBy   string    `gorm:"size:36;not null;index" json:"createdBy"`
	State       State     `gorm:"size:16;not null;default:active;index" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (g *Group) IsActive() bool {
	return g.State.Visible()
}

// Membership is one edge of the group/user relation. At most one active row
// exists per (UserID, GroupID); the partial unique index is created in the
// database package because its syntax differs per dialect.
type Membership struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   string    `gorm:"size:36;not null;index:idx_memberships_user_group,priority:1" json:"userId"`
	GroupID  uint      `gorm:"not null;index;index:idx_memberships_user_group,priority:2" json:"groupId"`
	JoinedAt time.Time `gorm:"not null" json:"joinedAt"`
	State    State     `gorm:"size:16;not null;default:active;index" json:"-"`
}

func (m *Membership) IsActive() bool {
	return m.State.Visible()
}

// MemberSummary is a membership joined with its user row.
type MemberSummary struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	IsActive bool      `json:"isActive"`
	JoinedAt time.Time `json:"joinedAt"`
}

/** -------------------- DTOs -------------------- */
// Request
type GroupRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	MemberIDs   []string `json:"memberIds"`
}

// Response
type GroupResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description"`
	CreatedBy     string          `json:"createdBy"`
	CreatedByName string          `json:"createdByName"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	IsActive      bool            `json:"isActive"`
	MemberCount   int             `json:"memberCount"`
	Members       []MemberSummary `json:"members"`
}
