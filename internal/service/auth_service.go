package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/repository"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// LoginRequest carries NIC credentials.
type LoginRequest struct {
	NIC      string `json:"nic" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is a public self-registration.
type RegisterRequest struct {
	NIC         string  `json:"nic" validate:"required,min=5,max=20"`
	Name        string  `json:"name" validate:"required,max=120"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	Address     string  `json:"address" validate:"max=255"`
	Phone       string  `json:"phone" validate:"max=32"`
	BackupPhone string  `json:"backup_phone" validate:"max=32"`
}

// AuthResult is an authenticated user with a freshly issued token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   deps.TokenManager,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Login authenticates any actor by NIC and password.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.NIC = strings.TrimSpace(req.NIC)
	if err := apperrors.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.users.GetByNIC(ctx, req.NIC)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Register creates a customer account. The role is always User.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.NIC = strings.TrimSpace(req.NIC)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := apperrors.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := ensureIdentityFree(ctx, s.users, req.NIC, req.Email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		NIC:          req.NIC,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Address:      req.Address,
		Phone:        req.Phone,
		BackupPhone:  req.BackupPhone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("customer registered", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ensureIdentityFree rejects a NIC or email already held by a user other than selfID.
func ensureIdentityFree(ctx context.Context, users repository.UserRepository, nic string, email *string, selfID int64) error {
	if nic != "" {
		existing, err := users.GetByNIC(ctx, nic)
		switch {
		case err == nil && existing.ID != selfID:
			return apperrors.NewConflict("NIC already registered", map[string]any{"nic": nic})
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return apperrors.MapError(err)
		}
	}
	if email != nil {
		existing, err := users.GetByEmail(ctx, *email)
		switch {
		case err == nil && existing.ID != selfID:
			return apperrors.NewConflict("email already registered", map[string]any{"email": *email})
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return apperrors.MapError(err)
		}
	}
	return nil
}

// normalizeEmail trims the address and treats blank as absent.
func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
