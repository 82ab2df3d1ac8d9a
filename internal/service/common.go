package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/domain"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	searchLimit      = 20
)

// requireOperation re-checks the access policy for the explicit caller.
func requireOperation(identity domain.Identity, op auth.Operation) error {
	if auth.Allowed(identity, op) {
		return nil
	}
	if !identity.Authenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	return apperrors.NewForbidden("insufficient role")
}

// notFoundOr maps a missing row to NotFound and anything else through MapError.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
