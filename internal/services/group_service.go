package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"

	"gorm.io/gorm"
)

// GroupService owns group lifecycle and the replace-all membership policy.
type GroupService struct {
	store    *postgres.Store
	uow      *postgres.UnitOfWork
	users    ActiveUserResolver
	gate     *AccessGate
	notifier Notifier
	now      func() time.Time
}

func NewGroupService(store *postgres.Store, uow *postgres.UnitOfWork, users ActiveUserResolver, gate *AccessGate, notifier Notifier) *GroupService {
	return &GroupService{
		store:    store,
		uow:      uow,
		users:    users,
		gate:     gate,
		notifier: notifier,
		now:      time.Now,
	}
}

type groupInput struct {
	name        string
	description *string
	memberIDs   []string
}

// prepare runs every check that needs no transaction: field validation and
// the first active-user resolution.
func (s *GroupService) prepare(ctx context.Context, req *models.GroupRequest) (*groupInput, error) {
	name, err := validateGroupName(req.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(req.Description)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeMemberIDs(req.MemberIDs)
	if err != nil {
		return nil, err
	}

	active, err := s.users.AreActiveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	if invalid := missingIDs(ids, active); len(invalid) > 0 {
		return nil, apperrors.InvalidMembers(invalid)
	}
	return &groupInput{name: name, description: desc, memberIDs: ids}, nil
}

// revalidate repeats the active-user resolution inside tx, share-locking
// the matched user rows so none can be deactivated before commit.
func revalidate(ctx context.Context, tx *postgres.Store, ids []string) error {
	active, err := tx.Users.ActiveIDs(ctx, ids, true)
	if err != nil {
		return err
	}
	if invalid := missingIDs(ids, active); len(invalid) > 0 {
		return apperrors.InvalidMembers(invalid)
	}
	return nil
}

func missingIDs(ids []string, active map[string]struct{}) []string {
	var invalid []string
	for _, id := range ids {
		if _, ok := active[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return invalid
}

func newMemberships(groupID uint, ids []string, joinedAt time.Time) []models.Membership {
	rows := make([]models.Membership, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.Membership{
			UserID:   id,
			GroupID:  groupID,
			JoinedAt: joinedAt,
			State:    models.StateActive,
		})
	}
	return rows
}

// CreateGroup inserts the group and one active membership per member id in
// a single transaction. The creator is a member only if listed.
func (s *GroupService) CreateGroup(ctx context.Context, requesterID string, req *models.GroupRequest) (*models.GroupResponse, error) {
	in, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	group := &models.Group{
		Name:        in.name,
		Description: in.description,
		CreatedBy:   requesterID,
		State:       models.StateActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.uow.Do(ctx, func(tx *postgres.Store) error {
		if err := revalidate(ctx, tx, in.memberIDs); err != nil {
			return err
		}
		if err := tx.Groups.Create(ctx, group); err != nil {
			return err
		}
		return tx.Memberships.CreateBatch(ctx, newMemberships(group.ID, in.memberIDs, now))
	})
	if err != nil {
		return nil, storeError("groups.create", err)
	}

	slog.Info("Group created", "group_id", group.ID, "created_by", requesterID, "members", len(in.memberIDs))
	s.notifyAdded(group, requesterID, in.memberIDs)

	return s.hydrate(ctx, group)
}

// UpdateGroup rewrites metadata and replaces the whole active membership
// set. The group row is locked for the duration so concurrent updates of
// the same group serialize.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID uint, requesterID string, req *models.GroupRequest) (*models.GroupResponse, error) {
	in, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		group    *models.Group
		previous []string
	)
	err = s.uow.Do(ctx, func(tx *postgres.Store) error {
		var err error
		group, err = tx.Groups.LockActiveByID(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return err
		}
		if err := revalidate(ctx, tx, in.memberIDs); err != nil {
			return err
		}
		if previous, err = tx.Memberships.ActiveMemberIDs(ctx, groupID); err != nil {
			return err
		}

		now := s.now().UTC()
		group.Name = in.name
		group.Description = in.description
		group.UpdatedAt = now
		if err := tx.Groups.UpdateMetadata(ctx, group); err != nil {
			return err
		}
		if _, err := tx.Memberships.DeactivateAll(ctx, groupID); err != nil {
			return err
		}
		return tx.Memberships.CreateBatch(ctx, newMemberships(groupID, in.memberIDs, now))
	})
	if err != nil {
		return nil, storeError("groups.update", err)
	}

	slog.Info("Group updated", "group_id", groupID, "members", len(in.memberIDs))
	s.notifyAdded(group, requesterID, added(previous, in.memberIDs))

	return s.hydrate(ctx, group)
}

// added returns ids in next that were not in prev.
func added(prev, next []string) []string {
	had := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		had[id] = struct{}{}
	}
	var out []string
	for _, id := range next {
		if _, ok := had[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *GroupService) notifyAdded(group *models.Group, by string, ids []string) {
	payload := models.GroupMemberAddedPayload{GroupID: group.ID, GroupName: group.Name, AddedBy: by}
	for _, id := range ids {
		if id == by {
			continue
		}
		s.notifier.Notify(id, models.KindGroupMemberAdded, payload)
	}
}

// DeactivateGroup hides the group. Memberships and messages are kept.
func (s *GroupService) DeactivateGroup(ctx context.Context, groupID uint) error {
	err := s.uow.Do(ctx, func(tx *postgres.Store) error {
		group, err := tx.Groups.LockActiveByID(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return err
		}
		group.State = models.StateInactive
		group.UpdatedAt = s.now().UTC()
		return tx.Groups.SetState(ctx, group)
	})
	if err != nil {
		return storeError("groups.deactivate", err)
	}
	slog.Info("Group deactivated", "group_id", groupID)
	return nil
}

// GetGroup is the administrative view; deactivated groups are not found.
func (s *GroupService) GetGroup(ctx context.Context, groupID uint) (*models.GroupResponse, error) {
	group, err := s.store.Groups.FindActiveByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOr("groups.get", err, apperrors.ErrGroupNotFound)
	}
	return s.hydrate(ctx, group)
}

func (s *GroupService) ListGroups(ctx context.Context, page models.Page) ([]models.GroupResponse, error) {
	groups, err := s.store.Groups.ListActive(ctx, page)
	if err != nil {
		return nil, storeError("groups.list", err)
	}
	return s.hydrateAll(ctx, groups)
}

// MyGroups lists the active groups userID belongs to.
func (s *GroupService) MyGroups(ctx context.Context, userID string) ([]models.GroupResponse, error) {
	groups, err := s.store.Groups.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, storeError("groups.mine", err)
	}
	return s.hydrateAll(ctx, groups)
}

// GetMyGroup is the member view: NotFound for a missing or deactivated
// group, Forbidden for a non-member.
func (s *GroupService) GetMyGroup(ctx context.Context, userID string, groupID uint) (*models.GroupResponse, error) {
	group, err := s.store.Groups.FindActiveByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOr("groups.get_mine", err, apperrors.ErrGroupNotFound)
	}
	if err := s.gate.RequireGroupMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.hydrate(ctx, group)
}

func (s *GroupService) hydrateAll(ctx context.Context, groups []models.Group) ([]models.GroupResponse, error) {
	out := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		resp, err := s.hydrate(ctx, &groups[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

// hydrate re-reads committed membership state for the response.
func (s *GroupService) hydrate(ctx context.Context, group *models.Group) (*models.GroupResponse, error) {
	members, err := s.store.Memberships.ActiveMembers(ctx, group.ID)
	if err != nil {
		return nil, storeError("groups.hydrate", err)
	}

	var creatorName string
	creator, err := s.store.Users.FindByID(ctx, group.CreatedBy)
	switch {
	case err == nil:
		creatorName = creator.Username
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeError("groups.hydrate", err)
	}

	return &models.GroupResponse{
		ID:            group.ID,
		Name:          group.Name,
		Description:   group.Description,
		CreatedBy:     group.CreatedBy,
		CreatedByName: creatorName,
		CreatedAt:     group.CreatedAt,
		UpdatedAt:     group.UpdatedAt,
		IsActive:      group.IsActive(),
		MemberCount:   len(members),
		Members:       members,
	}, nil
}
