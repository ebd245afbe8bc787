package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories/postgres"
	apperrors "messaging-service/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService covers the identity surface the messaging core needs: account
// creation, login, the admin active toggle and the active-user resolver.
type UserService struct {
	repo      *postgres.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewUserService(repo *postgres.UserRepository, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// generateJWT creates a new JWT token for the user
func (s *UserService) generateJWT(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
		"exp":      now.Add(s.tokenTTL).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error) {
	return s.register(ctx, req, models.RoleUser)
}

// CreateAdmin provisions an administrator account. It is reachable only
// from the CLI; the HTTP surface never grants the admin role.
func (s *UserService) CreateAdmin(ctx context.Context, req *models.RegisterRequest) (*models.UserResponse, error) {
	return s.register(ctx, req, models.RoleAdmin)
}

func (s *UserService) register(ctx context.Context, req *models.RegisterRequest, role string) (*models.UserResponse, error) {
	username := normalize(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return nil, apperrors.Validation("", "username, email and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Infrastructure("users.register", fmt.Errorf("failed to hash password: %w", err))
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
		State:    models.StateActive,
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			slog.Info("Registration rejected: duplicate account", "email", email, "username", username)
			return nil, apperrors.Conflict("email or username already exists", err)
		}
		return nil, storeError("users.register", err)
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username, "role", role)
	resp := models.NewUserResponse(&user)
	return &resp, nil
}

// Login rejects unknown emails, wrong passwords and deactivated accounts with
// the same error.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, storeError("users.login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, apperrors.Infrastructure("users.login", fmt.Errorf("failed to generate token: %w", err))
	}

	return &models.LoginResponse{
		Token: token,
		User:  models.NewUserResponse(user),
	}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr("users.get", err, apperrors.ErrUserNotFound)
	}
	resp := models.NewUserResponse(user)
	return &resp, nil
}

// SetActive flips the flag the active-user resolver reads.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.UserResponse, error) {
	state := models.StateInactive
	if active {
		state = models.StateActive
	}
	if _, err := s.repo.SetState(ctx, id, state); err != nil {
		return nil, storeError("users.set_active", err)
	}
	resp, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("User state changed", "user_id", id, "active", active)
	return resp, nil
}

func (s *UserService) IsActiveUser(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.IsActive(ctx, id)
	if err != nil {
		return false, storeError("users.is_active", err)
	}
	return ok, nil
}

func (s *UserService) AreActiveUsers(ctx context.Context, ids []string) (map[string]struct{}, error) {
	set, err := s.repo.ActiveIDs(ctx, ids, false)
	if err != nil {
		return nil, storeError("users.are_active", err)
	}
	return set, nil
}
