package postgres

import (
	"context"
	"fmt"

	"messaging-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// FindByID returns the group in any state.
func (r *GroupRepository) FindByID(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// FindActiveByID returns gorm.ErrRecordNotFound for deactivated groups.
func (r *GroupRepository) FindActiveByID(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	err := r.db.WithContext(ctx).
		Where("id = ? AND state = ?", id, models.StateActive).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LockActiveByID is FindActiveByID plus a row lock held until the
// transaction ends; concurrent membership writers for the same group queue
// behind it.
func (r *GroupRepository) LockActiveByID(ctx context.Context, id uint) (*models.Group, error) {
	var g models.Group
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND state = ?", id, models.StateActive).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateMetadata writes name, description and updated_at.
func (r *GroupRepository) UpdateMetadata(ctx context.Context, group *models.Group) error {
	err := r.db.WithContext(ctx).Model(group).
		Select("name", "description", "updated_at").
		Updates(group).Error
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

func (r *GroupRepository) SetState(ctx context.Context, group *models.Group) error {
	err := r.db.WithContext(ctx).Model(group).
		Select("state", "updated_at").
		Updates(group).Error
	if err != nil {
		return fmt.Errorf("failed to update group state: %w", err)
	}
	return nil
}

// ListActive returns active groups newest-first.
func (r *GroupRepository) ListActive(ctx context.Context, page models.Page) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Where("state = ?", models.StateActive).
		Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// ListActiveForUser returns active groups where userID holds an active
// membership.
func (r *GroupRepository) ListActiveForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ? AND memberships.state = ? AND groups.state = ?",
			userID, models.StateActive, models.StateActive).
		Order("groups.created_at DESC").Order("groups.id DESC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	return groups, nil
}
