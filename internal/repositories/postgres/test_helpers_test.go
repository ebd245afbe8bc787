package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"messaging-service/internal/config"
	"messaging-service/internal/database"
	"messaging-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "store.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func createUser(t *testing.T, s *Store, username string, state models.State) *models.User {
	t.Helper()
	u := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     models.RoleUser,
		State:    state,
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func createGroup(t *testing.T, s *Store, name, createdBy string) *models.Group {
	t.Helper()
	g := &models.Group{Name: name, CreatedBy: createdBy, State: models.StateActive}
	require.NoError(t, s.Groups.Create(context.Background(), g))
	return g
}

func addMember(t *testing.T, s *Store, groupID uint, userID string) {
	t.Helper()
	require.NoError(t, s.Memberships.CreateBatch(context.Background(), []models.Membership{
		{UserID: userID, GroupID: groupID, JoinedAt: time.Now(), State: models.StateActive},
	}))
}

func sendDM(t *testing.T, s *Store, from, to string, at time.Time) *models.DirectMessage {
	t.Helper()
	m := &models.DirectMessage{SenderID: from, ReceiverID: to, Body: "hi", SentAt: at, State: models.StateActive}
	require.NoError(t, s.DirectMessages.Create(context.Background(), m))
	return m
}
