package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/service"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// AuthService is the account login and registration surface.
type AuthService interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResult, error)
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error)
}

// Scheduler books appointments.
type Scheduler interface {
	ScheduleAppointment(ctx context.Context, identity domain.Identity, req service.ScheduleRequest) (*service.ScheduleResult, error)
}

// AppointmentService manages booked appointments.
type AppointmentService interface {
	UpdateStatus(ctx context.Context, identity domain.Identity, appointmentID int64, rawStatus string) (*domain.Appointment, error)
	Cancel(ctx context.Context, identity domain.Identity, appointmentID int64) (*domain.Appointment, error)
	Reassign(ctx context.Context, identity domain.Identity, appointmentID, specialistID int64) (*domain.Appointment, error)
	ListMine(ctx context.Context, identity domain.Identity) ([]domain.AppointmentDetail, error)
	ListAssigned(ctx context.Context, identity domain.Identity) ([]domain.AppointmentDetail, error)
	ListAll(ctx context.Context, identity domain.Identity, query service.AppointmentQuery) ([]domain.AppointmentDetail, error)
	CustomerAppointments(ctx context.Context, identity domain.Identity, customerID int64) ([]domain.AppointmentDetail, error)
}

// UserService manages accounts.
type UserService interface {
	Profile(ctx context.Context, identity domain.Identity) (*domain.User, error)
	UpdateProfile(ctx context.Context, identity domain.Identity, update service.ProfileUpdate) (*domain.User, error)
	CreateStaff(ctx context.Context, identity domain.Identity, req service.StaffRequest) (*domain.User, error)
	DeleteSpecialist(ctx context.Context, identity domain.Identity, specialistID int64) error
	ListSpecialists(ctx context.Context, identity domain.Identity) ([]domain.User, error)
	LookupCustomer(ctx context.Context, identity domain.Identity, nic string) (*domain.User, error)
	SearchCustomers(ctx context.Context, identity domain.Identity, term string) ([]domain.User, error)
	Stats(ctx context.Context, identity domain.Identity) (*domain.AdminStats, error)
}

func identity(c *fiber.Ctx) domain.Identity {
	id, _ := auth.IdentityFromContext(c)
	return id
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid JSON payload", nil)
	}
	return nil
}

func idParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("validation failed", map[string]any{name: "must be a positive integer"})
	}
	return id, nil
}
