package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/domain"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

func newAuthFixture(t *testing.T) (*memoryStore, *AuthService) {
	t.Helper()
	store := newMemoryStore()
	tokens := auth.NewTokenManager("test-secret", "fieldconnect", 0, clockwork.NewFakeClockAt(fixedNow))
	svc := NewAuthService(config.AuthConfig{BcryptCost: testBcryptCost}, AuthDependencies{
		UserRepo:     store.Users(),
		TokenManager: tokens,
	})
	return store, svc
}

func TestRegisterAndLogin(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		NIC: "123456", Name: "Ana", Email: ptr("ana@example.com"), Password: "secret1", Address: "Main St 1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, registered.User.Role)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), registered.ExpiresAt)

	claims, err := svc.TokenManager().ParseToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	loggedIn, err := svc.Login(ctx, LoginRequest{NIC: "123456", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotEmpty(t, loggedIn.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{NIC: "123456", Name: "Ana", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{NIC: "123456", Password: "wrong"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{NIC: "000000", Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{NIC: "123456"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestRegister_Conflicts(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{NIC: "123456", Name: "Ana", Email: ptr("ana@example.com"), Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{NIC: "123456", Name: "Other", Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Register(ctx, RegisterRequest{NIC: "654321", Name: "Other", Email: ptr("ANA@example.com"), Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestRegister_Validation(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterRequest{NIC: "12", Name: "", Password: "1"})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Contains(t, domainErr.Details, "nic")
	assert.Contains(t, domainErr.Details, "name")
	assert.Contains(t, domainErr.Details, "password")
}
