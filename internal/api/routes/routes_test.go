package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"messaging-service/internal/config"
	"messaging-service/internal/database"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	"messaging-service/internal/services"
	"messaging-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
}

func setupAPI(t *testing.T, notifier services.Notifier) *apiClient {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	router := NewRouter(Options{
		DB:        db,
		Notifier:  notifier,
		JWTSecret: testSecret,
		TokenTTL:  time.Hour,
	})
	router.SetupRoutes()
	return &apiClient{t: t, engine: router.GetEngine(), db: db}
}

func (a *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type account struct {
	ID    string
	Token string
}

// register signs a user up through the API and logs them in.
func (a *apiClient) register(name string) account {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret1",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(name)
}

func (a *apiClient) admin(name string) account {
	a.t.Helper()
	users := services.NewUserService(postgres.NewUserRepository(a.db), testSecret, time.Hour)
	_, err := users.CreateAdmin(context.Background(), &models.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret1",
	})
	require.NoError(a.t, err)
	return a.login(name)
}

func (a *apiClient) login(name string) account {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Email: name + "@example.com", Password: "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.LoginResponse](a.t, w)
	return account{ID: resp.User.ID, Token: resp.Token}
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	api := setupAPI(t, nil)
	alice := api.register("alice")
	assert.NotEmpty(t, alice.Token)

	w := api.do(http.MethodPost, "/auth/register", "", models.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroups_AdminOnly(t *testing.T) {
	api := setupAPI(t, nil)
	alice := api.register("alice")

	w := api.do(http.MethodGet, "/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/groups", alice.Token, models.GroupRequest{Name: "team"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode[response.ErrorResponse](t, w).Code)

	w = api.do(http.MethodPost, "/groups", "not-a-jwt", models.GroupRequest{Name: "team"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGroups_LifecycleAndMessaging(t *testing.T) {
	api := setupAPI(t, nil)
	root := api.admin("root")
	alice := api.register("alice")
	bob := api.register("bob")
	carol := api.register("carol")

	// Unknown member ids are reported and nothing is created.
	w := api.do(http.MethodPost, "/groups", root.Token, models.GroupRequest{Name: "team", MemberIDs: []string{alice.ID, "ghost"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"ghost"}, decode[response.ErrorResponse](t, w).InvalidIDs)

	w = api.do(http.MethodPost, "/groups", root.Token, models.GroupRequest{Name: "team", MemberIDs: []string{alice.ID, bob.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	group := decode[models.GroupResponse](t, w)
	assert.Equal(t, 2, group.MemberCount)

	w = api.do(http.MethodGet, "/me/groups", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.GroupResponse](t, w), 1)

	msgPath := fmt.Sprintf("/groups/%d/messages", group.ID)
	w = api.do(http.MethodPost, msgPath, alice.Token, models.SendGroupMessageRequest{Body: "hello team"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodGet, msgPath, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]models.GroupMessageResponse](t, w)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].UserName)

	w = api.do(http.MethodGet, msgPath, carol.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(http.MethodGet, "/groups/999/messages", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodGet, "/groups/abc/messages", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Replace-all: bob out, carol in.
	w = api.do(http.MethodPut, fmt.Sprintf("/groups/%d", group.ID), root.Token, models.GroupRequest{Name: "team", MemberIDs: []string{alice.ID, carol.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodGet, msgPath, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = api.do(http.MethodGet, msgPath, carol.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodDelete, fmt.Sprintf("/groups/%d", group.ID), root.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodPost, msgPath, alice.Token, models.SendGroupMessageRequest{Body: "anyone?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodGet, fmt.Sprintf("/me/groups/%d", group.ID), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectMessages(t *testing.T) {
	api := setupAPI(t, nil)
	alice := api.register("alice")
	bob := api.register("bob")

	w := api.do(http.MethodPost, "/messages", alice.Token, models.SendMessageRequest{ReceiverID: bob.ID, Body: "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decode[models.MessageResponse](t, w)

	w = api.do(http.MethodPost, "/messages", alice.Token, models.SendMessageRequest{ReceiverID: alice.ID, Body: "me"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/conversations", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decode[[]models.ConversationSummary](t, w)
	require.Len(t, convs, 1)
	assert.Equal(t, alice.ID, convs[0].CounterpartID)
	assert.Equal(t, 1, convs[0].UnreadCount)

	w = api.do(http.MethodGet, "/conversations/"+alice.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	thread := decode[[]models.MessageResponse](t, w)
	require.Len(t, thread, 1)
	assert.True(t, thread[0].IsRead)

	w = api.do(http.MethodGet, "/conversations", bob.Token, nil)
	assert.Equal(t, 0, decode[[]models.ConversationSummary](t, w)[0].UnreadCount)

	msgPath := fmt.Sprintf("/messages/%d", sent.ID)
	w = api.do(http.MethodDelete, msgPath, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodDelete, msgPath, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodGet, msgPath, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Ids past the signed 64-bit range are rejected before reaching the store.
	for _, id := range []string{"9223372036854775808", "18446744073709551615", "0", "abc"} {
		w = api.do(http.MethodGet, "/messages/"+id, bob.Token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestAdmin_DeactivateUser(t *testing.T) {
	api := setupAPI(t, nil)
	root := api.admin("root")
	alice := api.register("alice")
	bob := api.register("bob")

	w := api.do(http.MethodPut, "/admin/users/"+bob.ID+"/active", alice.Token, map[string]bool{"active": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPut, "/admin/users/"+bob.ID+"/active", root.Token, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[models.UserResponse](t, w).IsActive)

	w = api.do(http.MethodPost, "/messages", alice.Token, models.SendMessageRequest{ReceiverID: bob.ID, Body: "there?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bob's token is still unexpired, but writes recheck the account.
	w = api.do(http.MethodPost, "/messages", bob.Token, models.SendMessageRequest{ReceiverID: alice.ID, Body: "still me"})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = api.do(http.MethodPut, "/admin/users/nobody/active", root.Token, map[string]bool{"active": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotifications_FromDispatcher(t *testing.T) {
	// The sink needs the router's database, so wire it after setup.
	var sink services.MultiSink
	dispatcher := services.NewDispatcher(&sink, 1, 16, time.Second)
	api := setupAPI(t, dispatcher)
	sink = services.MultiSink{services.NewStoreSink(postgres.NewNotificationRepository(api.db))}
	dispatcher.Run()

	alice := api.register("alice")
	bob := api.register("bob")
	w := api.do(http.MethodPost, "/messages", alice.Token, models.SendMessageRequest{ReceiverID: bob.ID, Body: "ping"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Stop drains the queue.
	require.NoError(t, dispatcher.Stop(context.Background()))

	w = api.do(http.MethodGet, "/notifications/unread-count", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.UnreadCountResponse](t, w).Count)

	w = api.do(http.MethodGet, "/notifications", bob.Token, nil)
	items := decode[[]models.NotificationResponse](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, models.KindDirectMessage, items[0].Kind)
	assert.Equal(t, "ping", items[0].Body)

	w = api.do(http.MethodPut, fmt.Sprintf("/notifications/%d/read", items[0].ID), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodPut, fmt.Sprintf("/notifications/%d/read", items[0].ID), bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodPut, "/notifications/read-all", bob.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/notifications/unread-count", bob.Token, nil)
	assert.EqualValues(t, 0, decode[models.UnreadCountResponse](t, w).Count)
}

func TestHealth(t *testing.T) {
	api := setupAPI(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "up", body["database"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
