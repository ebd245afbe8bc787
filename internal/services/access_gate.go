package services

import (
	"context"

	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"
)

// ActiveUserResolver answers whether ids belong to active accounts.
type ActiveUserResolver interface {
	IsActiveUser(ctx context.Context, id string) (bool, error)
	AreActiveUsers(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// AccessGate is consulted before every group read or write and every
// thread read. It never mutates state.
type AccessGate struct {
	memberships *postgres.MembershipRepository
}

func NewAccessGate(memberships *postgres.MembershipRepository) *AccessGate {
	return &AccessGate{memberships: memberships}
}

func (g *AccessGate) IsGroupMember(ctx context.Context, userID string, groupID uint) (bool, error) {
	ok, err := g.memberships.IsActiveMember(ctx, userID, groupID)
	if err != nil {
		return false, storeError("access.is_group_member", err)
	}
	return ok, nil
}

// IsThreadParty is always true: any two users may exchange direct messages.
func (g *AccessGate) IsThreadParty(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

// RequireGroupMember turns a failed membership check into Forbidden.
func (g *AccessGate) RequireGroupMember(ctx context.Context, userID string, groupID uint) error {
	ok, err := g.IsGroupMember(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotGroupMember
	}
	return nil
}
