package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("account disabled")
)

const tokenTTL = 24 * time.Hour

// AuthUsecase registers popup operators and issues their login tokens. Each
// user gets a storage namespace of their own.
type AuthUsecase struct {
	userRepo  *repository.UserRepository
	tenants   *repository.TenantManager
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthUsecase(repo *repository.UserRepository, tenants *repository.TenantManager, secret string) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  repo,
		tenants:   tenants,
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

func (uc *AuthUsecase) create(ctx context.Context, username, password, role string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username required and password of at least 8 characters", ErrInvalidInput)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	user := &entities.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
		Namespace:    uc.tenants.NamespaceFor(id),
		IsActive:     true,
		CreatedAt:    uc.now().UnixMilli(),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *AuthUsecase) Register(ctx context.Context, username, password string) (*entities.User, error) {
	return uc.create(ctx, username, password, "user")
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrUserDisabled
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   user.ID,
		"namespace": user.Namespace,
		"role":      user.Role,
		"exp":       uc.now().Add(tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the admin user if it does not exist (called on startup)
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}
	_, err = uc.create(ctx, username, password, "admin")
	return err
}

// ListUsers is the admin view of every operator
func (uc *AuthUsecase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.userRepo.GetAllUsers(ctx)
}

// GetUser returns the user with id or repository.ErrNotFound
func (uc *AuthUsecase) GetUser(ctx context.Context, id string) (*entities.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

// SetUserActive disables or re-enables a user; disabled users cannot log in
func (uc *AuthUsecase) SetUserActive(ctx context.Context, id string, active bool) error {
	return uc.userRepo.UpdateStatus(ctx, id, active)
}

// DeleteUserData wipes a user's namespace. The login itself stays so the
// admin can re-enable it.
func (uc *AuthUsecase) DeleteUserData(ctx context.Context, id string) (string, error) {
	user, err := uc.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Namespace, uc.tenants.DropNamespace(ctx, user.Namespace)
}
