package postgres

import (
	"context"
	"fmt"

	"messaging-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) SetState(ctx context.Context, id string, state models.State) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("state", state)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update user state: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// IsActive reports whether id resolves to an active user.
func (r *UserRepository) IsActive(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND state = ?", id, models.StateActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to resolve user: %w", err)
	}
	return count > 0, nil
}

// ActiveIDs returns the subset of ids that resolve to active users. With
// lock set, the matched rows are share-locked until the surrounding
// transaction ends so they cannot be deactivated underneath it.
func (r *UserRepository) ActiveIDs(ctx context.Context, ids []string, lock bool) (map[string]struct{}, error) {
	active := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return active, nil
	}

	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ? AND state = ?", ids, models.StateActive)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "SHARE"})
	}

	var found []string
	if err := q.Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	for _, id := range found {
		active[id] = struct{}{}
	}
	return active, nil
}
