package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"messaging-service/internal/config"
	"messaging-service/internal/database"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorded struct {
	UserID  string
	Kind    models.NotificationKind
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recordingNotifier) Notify(userID string, kind models.NotificationKind, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{UserID: userID, Kind: kind, Payload: payload})
}

func (r *recordingNotifier) recipients(kind models.NotificationKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, e := range r.events {
		if e.Kind == kind {
			ids = append(ids, e.UserID)
		}
	}
	return ids
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// stepClock advances one second per reading so insert order is sentAt order.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	db       *gorm.DB
	store    *postgres.Store
	uow      *postgres.UnitOfWork
	notifier *recordingNotifier
	clock    *stepClock

	users         *UserService
	gate          *AccessGate
	groups        *GroupService
	conversations *ConversationService
	directs       *DirectMessageService
	groupMessages *GroupMessageService
	notifications *NotificationService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "services.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	store := postgres.NewStore(db)
	uow := postgres.NewUnitOfWork(db)
	notifier := &recordingNotifier{}
	clock := newStepClock()

	users := NewUserService(store.Users, "test-secret", time.Hour)
	users.now = clock.Now
	gate := NewAccessGate(store.Memberships)

	groups := NewGroupService(store, uow, users, gate, notifier)
	groups.now = clock.Now
	directs := NewDirectMessageService(store.DirectMessages, users, notifier)
	directs.now = clock.Now
	groupMessages := NewGroupMessageService(store, gate, notifier)
	groupMessages.now = clock.Now

	return &testEnv{
		db:            db,
		store:         store,
		uow:           uow,
		notifier:      notifier,
		clock:         clock,
		users:         users,
		gate:          gate,
		groups:        groups,
		conversations: NewConversationService(store, uow, gate),
		directs:       directs,
		groupMessages: groupMessages,
		notifications: NewNotificationService(store.Notifications),
	}
}

func (e *testEnv) user(t *testing.T, name string) string {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Username: name,
		Email:    name + "@example.com",
		Password: "x",
		Role:     models.RoleUser,
		State:    models.StateActive,
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) deactivate(t *testing.T, id string) {
	t.Helper()
	_, err := e.store.Users.SetState(context.Background(), id, models.StateInactive)
	require.NoError(t, err)
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (e *testEnv) send(t *testing.T, from, to, body string) *models.MessageResponse {
	t.Helper()
	msg, err := e.directs.Send(context.Background(), from, &models.SendMessageRequest{ReceiverID: to, Body: body})
	require.NoError(t, err)
	return msg
}

func memberIDs(g *models.GroupResponse) []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
