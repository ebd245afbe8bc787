package postgres

import (
	"context"
	"fmt"
	"time"

	"messaging-service/internal/models"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// IsActiveMember is the membership half of the access gate.
func (r *MembershipRepository) IsActiveMember(ctx context.Context, userID string, groupID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ? AND state = ?", userID, groupID, models.StateActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// DeactivateAll ends every active membership of the group and returns the
// number of rows changed.
func (r *MembershipRepository) DeactivateAll(ctx context.Context, groupID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("group_id = ? AND state = ?", groupID, models.StateActive).
		Update("state", models.StateInactive)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate memberships: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MembershipRepository) CreateBatch(ctx context.Context, memberships []models.Membership) error {
	if len(memberships) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&memberships).Error; err != nil {
		return fmt.Errorf("failed to create memberships: %w", err)
	}
	return nil
}

// ActiveMemberIDs lists user ids holding an active membership.
func (r *MembershipRepository) ActiveMemberIDs(ctx context.Context, groupID uint) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("group_id = ? AND state = ?", groupID, models.StateActive).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list member ids: %w", err)
	}
	return ids, nil
}

type memberRow struct {
	UserID    string
	Username  string
	Email     string
	UserState models.State
	JoinedAt  time.Time
}

// ActiveMembers joins active memberships with their user rows.
func (r *MembershipRepository) ActiveMembers(ctx context.Context, groupID uint) ([]models.MemberSummary, error) {
	var members []memberRow
	err := r.db.WithContext(ctx).Table("memberships").
		Select("memberships.user_id, users.username, users.email, users.state AS user_state, memberships.joined_at").
		Joins("LEFT JOIN users ON users.id = memberships.user_id").
		Where("memberships.group_id = ? AND memberships.state = ?", groupID, models.StateActive).
		Order("memberships.joined_at ASC").Order("memberships.user_id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	out := make([]models.MemberSummary, 0, len(members))
	for _, m := range members {
		out = append(out, models.MemberSummary{
			UserID:   m.UserID,
			Username: m.Username,
			Email:    m.Email,
			IsActive: m.UserState.Visible(),
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}
