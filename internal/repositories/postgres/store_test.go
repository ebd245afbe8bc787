package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"messaging-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUnitOfWork_DoCommits(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	uow := NewUnitOfWork(db)
	owner := createUser(t, store, "owner", models.StateActive)

	var groupID uint
	err := uow.Do(context.Background(), func(tx *Store) error {
		g := &models.Group{Name: "g", CreatedBy: owner.ID, State: models.StateActive}
		if err := tx.Groups.Create(context.Background(), g); err != nil {
			return err
		}
		groupID = g.ID
		return tx.Memberships.CreateBatch(context.Background(), []models.Membership{
			{UserID: owner.ID, GroupID: g.ID, JoinedAt: time.Now(), State: models.StateActive},
		})
	})
	require.NoError(t, err)

	ok, err := store.Memberships.IsActiveMember(context.Background(), owner.ID, groupID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnitOfWork_DoRollsBackOnError(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	uow := NewUnitOfWork(db)
	owner := createUser(t, store, "owner", models.StateActive)

	boom := errors.New("boom")
	err := uow.Do(context.Background(), func(tx *Store) error {
		g := &models.Group{Name: "g", CreatedBy: owner.ID, State: models.StateActive}
		if err := tx.Groups.Create(context.Background(), g); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnitOfWork_DoRollsBackOnPanic(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	uow := NewUnitOfWork(db)
	owner := createUser(t, store, "owner", models.StateActive)

	assert.Panics(t, func() {
		_ = uow.Do(context.Background(), func(tx *Store) error {
			g := &models.Group{Name: "g", CreatedBy: owner.ID, State: models.StateActive}
			_ = tx.Groups.Create(context.Background(), g)
			panic("boom")
		})
	})

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnitOfWork_DoRollsBackOnCancelledContext(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	uow := NewUnitOfWork(db)
	owner := createUser(t, store, "owner", models.StateActive)

	ctx, cancel := context.WithCancel(context.Background())
	err := uow.Do(ctx, func(tx *Store) error {
		g := &models.Group{Name: "g", CreatedBy: owner.ID, State: models.StateActive}
		if err := tx.Groups.Create(context.Background(), g); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTx_CommitTwice(t *testing.T) {
	db := setupDB(t)
	tx, err := NewUnitOfWork(db).Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, tx.Commit(), ErrTxDone)
	assert.ErrorIs(t, tx.Rollback(), ErrTxDone)
}

func TestUserRepository_ActiveIDs(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	b := createUser(t, store, "bob", models.StateInactive)

	got, err := store.Users.ActiveIDs(context.Background(), []string{a.ID, b.ID, "missing"}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{a.ID: {}}, got)

	// Locking is a no-op on sqlite but must still resolve the same set.
	got, err = store.Users.ActiveIDs(context.Background(), []string{a.ID}, true)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	empty, err := store.Users.ActiveIDs(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	createUser(t, store, "alice", models.StateActive)

	err := store.Users.Create(context.Background(), &models.User{
		ID: "other", Username: "alice2", Email: "alice@example.com", Password: "x",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestGroupRepository_ActiveVisibility(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	owner := createUser(t, store, "owner", models.StateActive)
	g := createGroup(t, store, "g", owner.ID)

	_, err := store.Groups.LockActiveByID(context.Background(), g.ID)
	require.NoError(t, err)

	g.State = models.StateInactive
	require.NoError(t, store.Groups.SetState(context.Background(), g))

	_, err = store.Groups.FindActiveByID(context.Background(), g.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := store.Groups.FindByID(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInactive, found.State)
}

func TestGroupRepository_ListActiveForUser(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	owner := createUser(t, store, "owner", models.StateActive)
	g1 := createGroup(t, store, "one", owner.ID)
	g2 := createGroup(t, store, "two", owner.ID)
	createGroup(t, store, "three", owner.ID)
	addMember(t, store, g1.ID, owner.ID)
	addMember(t, store, g2.ID, owner.ID)

	g2.State = models.StateInactive
	require.NoError(t, store.Groups.SetState(context.Background(), g2))

	groups, err := store.Groups.ListActiveForUser(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g1.ID, groups[0].ID)

	all, err := store.Groups.ListActive(context.Background(), models.NewPage(1, 10, models.DefaultGroupListPageSize))
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMembershipRepository_DeactivateAllThenReinsert(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	b := createUser(t, store, "bob", models.StateActive)
	g := createGroup(t, store, "g", a.ID)
	addMember(t, store, g.ID, a.ID)
	addMember(t, store, g.ID, b.ID)

	n, err := store.Memberships.DeactivateAll(context.Background(), g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// Re-adding b after deactivation must not trip the active-row index.
	addMember(t, store, g.ID, b.ID)

	ids, err := store.Memberships.ActiveMemberIDs(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	members, err := store.Memberships.ActiveMembers(context.Background(), g.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "bob", members[0].Username)
	assert.True(t, members[0].IsActive)

	var total int64
	require.NoError(t, db.Model(&models.Membership{}).Where("group_id = ?", g.ID).Count(&total).Error)
	assert.EqualValues(t, 3, total)
}

func TestMembershipRepository_DuplicateActiveRowConflicts(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	g := createGroup(t, store, "g", a.ID)
	addMember(t, store, g.ID, a.ID)

	err := store.Memberships.CreateBatch(context.Background(), []models.Membership{
		{UserID: a.ID, GroupID: g.ID, JoinedAt: time.Now(), State: models.StateActive},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDirectMessageRepository_ThreadAndMarkRead(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	b := createUser(t, store, "bob", models.StateActive)
	c := createUser(t, store, "carol", models.StateActive)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m1 := sendDM(t, store, b.ID, a.ID, base)
	m2 := sendDM(t, store, b.ID, a.ID, base.Add(time.Minute))
	sendDM(t, store, a.ID, b.ID, base.Add(2*time.Minute))
	sendDM(t, store, c.ID, a.ID, base.Add(3*time.Minute))

	page, err := store.DirectMessages.ThreadPage(context.Background(), a.ID, b.ID, models.NewPage(1, 2, models.DefaultThreadPageSize))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].SentAt.After(page[1].SentAt))

	ids, err := store.DirectMessages.UnreadIDs(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{m1.ID, m2.ID}, ids)

	n, err := store.DirectMessages.MarkRead(context.Background(), a.ID, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = store.DirectMessages.MarkRead(context.Background(), a.ID, ids)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Carol's message to alice is untouched.
	ids, err = store.DirectMessages.UnreadIDs(context.Background(), a.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestDirectMessageRepository_MarkReadIgnoresOtherReceiver(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	b := createUser(t, store, "bob", models.StateActive)
	m := sendDM(t, store, a.ID, b.ID, time.Now())

	n, err := store.DirectMessages.MarkRead(context.Background(), a.ID, []uint{m.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectMessageRepository_SoftDeleteSenderOnly(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	b := createUser(t, store, "bob", models.StateActive)
	m := sendDM(t, store, a.ID, b.ID, time.Now())

	n, err := store.DirectMessages.SoftDelete(context.Background(), m.ID, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DirectMessages.SoftDelete(context.Background(), m.ID, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.DirectMessages.FindVisibleByID(context.Background(), m.ID, b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	msgs, err := store.DirectMessages.ListForUser(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	ids, err := store.DirectMessages.UnreadIDs(context.Background(), b.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGroupMessageRepository_ListPage(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	a := createUser(t, store, "alice", models.StateActive)
	g := createGroup(t, store, "g", a.ID)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.GroupMessages.Create(context.Background(), &models.GroupMessage{
			GroupID: g.ID, UserID: a.ID, Body: "m", SentAt: base.Add(time.Duration(i) * time.Minute), State: models.StateActive,
		}))
	}

	page, err := store.GroupMessages.ListPage(context.Background(), g.ID, models.NewPage(1, 2, models.DefaultGroupMessagePageSize))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "alice", page[0].UserName)
	assert.True(t, page[0].SentAt.After(page[1].SentAt))

	page, err = store.GroupMessages.ListPage(context.Background(), g.ID, models.NewPage(2, 2, models.DefaultGroupMessagePageSize))
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestNotificationRepository(t *testing.T) {
	db := setupDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Notifications.Create(ctx, &models.Notification{
			UserID: "u1", Kind: models.KindDirectMessage, Title: "t",
		}))
	}
	require.NoError(t, store.Notifications.Create(ctx, &models.Notification{
		UserID: "u2", Kind: models.KindDirectMessage, Title: "t",
	}))

	count, err := store.Notifications.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	items, err := store.Notifications.ListForUser(ctx, "u1", models.NewPage(1, 0, models.DefaultNotificationPageSize))
	require.NoError(t, err)
	require.Len(t, items, 3)

	found, err := store.Notifications.MarkRead(ctx, items[0].ID, "u2")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.Notifications.MarkRead(ctx, items[0].ID, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = store.Notifications.MarkRead(ctx, items[0].ID, "u1")
	require.NoError(t, err)
	assert.True(t, found)

	n, err := store.Notifications.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err = store.Notifications.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
