package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/repository"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// ProfileUpdate changes the caller's own profile. Nil fields are left untouched.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	BackupPhone *string `json:"backup_phone,omitempty" validate:"omitempty,max=32"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// StaffRequest creates a specialist or administrator account.
type StaffRequest struct {
	NIC      string  `json:"nic" validate:"required,min=5,max=20"`
	Name     string  `json:"name" validate:"required,max=120"`
	Email    *string `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role,omitempty" validate:"omitempty,oneof=Specialist Admin"`
	Address  string  `json:"address" validate:"max=255"`
	Phone    string  `json:"phone" validate:"max=32"`
}

// UserService manages accounts on behalf of authenticated callers.
type UserService struct {
	store      repository.Store
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	Store  repository.Store
	Logger *zap.Logger
}

// NewUserService creates the service.
func NewUserService(cfg config.AuthConfig, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: deps.Store, bcryptCost: cfg.BcryptCost, logger: logger}
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if err := requireOperation(identity, auth.OpViewOwnProfile); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": identity.UserID})
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update to the caller's account.
func (s *UserService) UpdateProfile(ctx context.Context, identity domain.Identity, update ProfileUpdate) (*domain.User, error) {
	if err := requireOperation(identity, auth.OpUpdateOwnProfile); err != nil {
		return nil, err
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, apperrors.NewValidationError("request validation failed", map[string]any{"name": "must not be empty"})
		}
		update.Name = &trimmed
	}
	clearEmail := update.Email != nil && strings.TrimSpace(*update.Email) == ""
	update.Email = normalizeEmail(update.Email)
	if err := apperrors.ValidateStruct(update); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": identity.UserID})
	}
	if update.Email != nil {
		if err := ensureIdentityFree(ctx, s.store.Users(), "", update.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = update.Email
	} else if clearEmail {
		user.Email = nil
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Address != nil {
		user.Address = *update.Address
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.BackupPhone != nil {
		user.BackupPhone = *update.BackupPhone
	}
	if update.Password != nil {
		hash, err := auth.HashPassword(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"id": user.ID})
	}
	return user, nil
}

// CreateStaff creates a specialist, or an administrator when requested.
func (s *UserService) CreateStaff(ctx context.Context, identity domain.Identity, req StaffRequest) (*domain.User, error) {
	if err := requireOperation(identity, auth.OpCreateStaff); err != nil {
		return nil, err
	}
	req.NIC = strings.TrimSpace(req.NIC)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := apperrors.ValidateStruct(req); err != nil {
		return nil, err
	}
	role := domain.RoleSpecialist
	if req.Role != "" {
		role = domain.Role(req.Role)
	}
	if err := ensureIdentityFree(ctx, s.store.Users(), req.NIC, req.Email, 0); err != nil {
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
		Role:         role,
		Address:      req.Address,
		Phone:        req.Phone,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("staff account created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
		zap.Int64("created_by", identity.UserID))
	return user, nil
}

// DeleteSpecialist removes a specialist and unassigns their appointments in
// the same transaction.
func (s *UserService) DeleteSpecialist(ctx context.Context, identity domain.Identity, specialistID int64) error {
	if err := requireOperation(identity, auth.OpDeleteSpecialist); err != nil {
		return err
	}
	var released int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, specialistID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleSpecialist {
			return pgx.ErrNoRows
		}
		released, err = tx.Appointments().ClearSpecialist(ctx, specialistID)
		if err != nil {
			return err
		}
		return tx.Users().Delete(ctx, specialistID)
	})
	if err != nil {
		return notFoundOr(err, "specialist", map[string]any{"id": specialistID})
	}
	s.logger.Info("specialist deleted",
		zap.Int64("specialist_id", specialistID),
		zap.Int64("released_appointments", released))
	return nil
}

// ListSpecialists returns every specialist.
func (s *UserService) ListSpecialists(ctx context.Context, identity domain.Identity) ([]domain.User, error) {
	if err := requireOperation(identity, auth.OpListSpecialists); err != nil {
		return nil, err
	}
	users, err := s.store.Users().ListByRole(ctx, domain.RoleSpecialist)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// LookupCustomer finds a customer by NIC.
func (s *UserService) LookupCustomer(ctx context.Context, identity domain.Identity, nic string) (*domain.User, error) {
	if err := requireOperation(identity, auth.OpLookupCustomer); err != nil {
		return nil, err
	}
	nic = strings.TrimSpace(nic)
	if nic == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"nic": "is required"})
	}
	user, err := s.store.Users().GetByNIC(ctx, nic)
	if err != nil {
		return nil, notFoundOr(err, "customer", map[string]any{"nic": nic})
	}
	if user.Role != domain.RoleUser {
		return nil, apperrors.NewNotFound("customer", map[string]any{"nic": nic})
	}
	return user, nil
}

// SearchCustomers matches customers by NIC, name or email substring.
func (s *UserService) SearchCustomers(ctx context.Context, identity domain.Identity, term string) ([]domain.User, error) {
	if err := requireOperation(identity, auth.OpSearchCustomers); err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"q": "is required"})
	}
	users, err := s.store.Users().Search(ctx, domain.RoleUser, term, searchLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Stats summarizes users and appointments for the dashboard.
func (s *UserService) Stats(ctx context.Context, identity domain.Identity) (*domain.AdminStats, error) {
	if err := requireOperation(identity, auth.OpViewStats); err != nil {
		return nil, err
	}
	customers, err := s.store.Users().CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	specialists, err := s.store.Users().CountByRole(ctx, domain.RoleSpecialist)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.store.Appointments().Count(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.store.Appointments().StatusCounts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &domain.AdminStats{
		TotalUsers:        customers,
		TotalSpecialists:  specialists,
		TotalAppointments: total,
		StatusCounts:      counts,
	}, nil
}

// EnsureBootstrapAdmin creates the configured administrator when no user holds
// its NIC. It reports whether an account was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, cfg config.AuthConfig) (bool, error) {
	nic := strings.TrimSpace(cfg.BootstrapAdminNIC)
	if nic == "" {
		return false, nil
	}
	if cfg.BootstrapAdminPass == "" {
		return false, errors.New("AUTH_BOOTSTRAP_ADMIN_PASSWORD is required with AUTH_BOOTSTRAP_ADMIN_NIC")
	}
	if _, err := s.store.Users().GetByNIC(ctx, nic); err == nil {
		return false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := auth.HashPassword(cfg.BootstrapAdminPass, s.bcryptCost)
	if err != nil {
		return false, err
	}
	name := cfg.BootstrapAdminName
	if name == "" {
		name = "Administrator"
	}
	admin := &domain.User{NIC: nic, Name: name, PasswordHash: hash, Role: domain.RoleAdmin}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap administrator created", zap.Int64("user_id", admin.ID))
	return true, nil
}
