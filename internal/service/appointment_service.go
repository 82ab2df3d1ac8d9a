package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/repository"
	"github.com/spec-kit/fieldconnect/internal/scheduling"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// AppointmentQuery filters the administrative appointment listing.
type AppointmentQuery struct {
	Status       string
	Date         string
	SpecialistID int64
	Limit        int
	Offset       int
}

// AppointmentService manages appointments after they are booked.
type AppointmentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// AppointmentDependencies bundles collaborators.
type AppointmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

// NewAppointmentService creates the service.
func NewAppointmentService(deps AppointmentDependencies) *AppointmentService {
	svc := &AppointmentService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if svc.clock == nil {
		svc.clock = clockwork.NewRealClock()
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// UpdateStatus moves an appointment along its lifecycle on behalf of identity.
func (s *AppointmentService) UpdateStatus(ctx context.Context, identity domain.Identity, appointmentID int64, rawStatus string) (*domain.Appointment, error) {
	if err := requireOperation(identity, auth.OpUpdateAppointmentStatus); err != nil {
		return nil, err
	}
	next, ok := domain.ParseStatus(strings.TrimSpace(rawStatus))
	if !ok {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{
			"status": "must be one of " + joinStatuses(domain.AllStatuses),
		})
	}
	return s.changeStatus(ctx, identity, appointmentID, next)
}

// Cancel moves an open appointment to Cancelled. Admin only.
func (s *AppointmentService) Cancel(ctx context.Context, identity domain.Identity, appointmentID int64) (*domain.Appointment, error) {
	if err := requireOperation(identity, auth.OpCancelAppointment); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, identity, appointmentID, domain.StatusCancelled)
}

func (s *AppointmentService) changeStatus(ctx context.Context, identity domain.Identity, appointmentID int64, next domain.AppointmentStatus) (*domain.Appointment, error) {
	appt, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, notFoundOr(err, "appointment", map[string]any{"id": appointmentID})
	}
	if err := scheduling.AuthorizeTransition(identity, appt, next); err != nil {
		return nil, lifecycleError(err, appt)
	}

	previous := appt.Status
	if err := s.store.Appointments().UpdateStatus(ctx, appt.ID, previous, next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("appointment was modified concurrently", map[string]any{"id": appt.ID})
		}
		return nil, apperrors.MapError(err)
	}
	appt.Status = next

	s.logger.Info("appointment status changed",
		zap.Int64("appointment_id", appt.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
		zap.Int64("actor_id", identity.UserID))
	s.publish(ctx, events.EventAppointmentStatusChanged, identity, appt.ID, events.AppointmentStatusChangedPayload{
		OldStatus: previous,
		NewStatus: next,
	})
	return appt, nil
}

// Reassign points an open appointment at another specialist. Admin only.
func (s *AppointmentService) Reassign(ctx context.Context, identity domain.Identity, appointmentID, specialistID int64) (*domain.Appointment, error) {
	if err := requireOperation(identity, auth.OpReassignAppointment); err != nil {
		return nil, err
	}
	appt, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, notFoundOr(err, "appointment", map[string]any{"id": appointmentID})
	}
	if err := scheduling.CheckReassignable(appt); err != nil {
		return nil, lifecycleError(err, appt)
	}

	specialist, err := s.store.Users().GetByID(ctx, specialistID)
	if err != nil {
		return nil, notFoundOr(err, "specialist", map[string]any{"id": specialistID})
	}
	if specialist.Role != domain.RoleSpecialist {
		return nil, apperrors.NewNotFound("specialist", map[string]any{"id": specialistID})
	}
	if appt.IsAssignedTo(specialistID) {
		return appt, nil
	}

	if err := s.store.Appointments().UpdateSpecialist(ctx, appt.ID, specialistID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("appointment was closed concurrently", map[string]any{"id": appt.ID})
		}
		return nil, apperrors.MapError(err)
	}
	previous := appt.SpecialistID
	appt.SpecialistID = &specialistID

	s.publish(ctx, events.EventAppointmentReassigned, identity, appt.ID, events.AppointmentReassignedPayload{
		FromSpecialistID: previous,
		ToSpecialistID:   specialistID,
	})
	return appt, nil
}

// ListMine returns the caller's own booking history.
func (s *AppointmentService) ListMine(ctx context.Context, identity domain.Identity) ([]domain.AppointmentDetail, error) {
	if err := requireOperation(identity, auth.OpViewOwnAppointments); err != nil {
		return nil, err
	}
	customerID := identity.UserID
	return s.list(ctx, repository.AppointmentFilter{CustomerID: &customerID})
}

// ListAssigned returns the appointments assigned to the calling specialist.
func (s *AppointmentService) ListAssigned(ctx context.Context, identity domain.Identity) ([]domain.AppointmentDetail, error) {
	if err := requireOperation(identity, auth.OpViewAssignedAppointments); err != nil {
		return nil, err
	}
	specialistID := identity.UserID
	return s.list(ctx, repository.AppointmentFilter{SpecialistID: &specialistID})
}

// CustomerAppointments returns the history of one customer.
func (s *AppointmentService) CustomerAppointments(ctx context.Context, identity domain.Identity, customerID int64) ([]domain.AppointmentDetail, error) {
	if err := requireOperation(identity, auth.OpViewCustomerAppointments); err != nil {
		return nil, err
	}
	customer, err := s.store.Users().GetByID(ctx, customerID)
	if err != nil {
		return nil, notFoundOr(err, "customer", map[string]any{"id": customerID})
	}
	if customer.Role != domain.RoleUser {
		return nil, apperrors.NewNotFound("customer", map[string]any{"id": customerID})
	}
	return s.list(ctx, repository.AppointmentFilter{CustomerID: &customer.ID})
}

// ListAll returns a filtered page of every appointment.
func (s *AppointmentService) ListAll(ctx context.Context, identity domain.Identity, query AppointmentQuery) ([]domain.AppointmentDetail, error) {
	if err := requireOperation(identity, auth.OpListAllAppointments); err != nil {
		return nil, err
	}
	filter := repository.AppointmentFilter{Limit: clampLimit(query.Limit)}
	details := map[string]any{}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			details["status"] = "must be one of " + joinStatuses(domain.AllStatuses)
		} else {
			filter.Statuses = []domain.AppointmentStatus{status}
		}
	}
	if raw := strings.TrimSpace(query.Date); raw != "" {
		if _, ok := scheduling.ParseDate(raw); !ok {
			details["date"] = "must use format YYYY-MM-DD"
		} else {
			filter.Date = &raw
		}
	}
	if query.SpecialistID < 0 {
		details["specialist_id"] = "must be positive"
	} else if query.SpecialistID > 0 {
		specialistID := query.SpecialistID
		filter.SpecialistID = &specialistID
	}
	if query.Offset < 0 {
		details["offset"] = "must not be negative"
	} else {
		filter.Offset = query.Offset
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details)
	}
	return s.list(ctx, filter)
}

// Upcoming returns open appointments on the given date. It is used by the
// reminder job and carries no caller identity.
func (s *AppointmentService) Upcoming(ctx context.Context, date string) ([]domain.AppointmentDetail, error) {
	return s.list(ctx, repository.AppointmentFilter{Date: &date, Statuses: domain.OpenStatuses})
}

func (s *AppointmentService) list(ctx context.Context, filter repository.AppointmentFilter) ([]domain.AppointmentDetail, error) {
	items, err := s.store.Appointments().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

func (s *AppointmentService) publish(ctx context.Context, eventType events.EventType, identity domain.Identity, appointmentID int64, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, appointmentID, identity, s.clock.Now(), payload))
}

func lifecycleError(err error, appt *domain.Appointment) error {
	switch {
	case errors.Is(err, scheduling.ErrIllegalTransition):
		return apperrors.NewValidationError("illegal status transition", map[string]any{
			"status":  string(appt.Status),
			"allowed": scheduling.NextStatuses(appt.Status),
		})
	case errors.Is(err, scheduling.ErrTransitionForbidden):
		return apperrors.NewForbidden("not permitted to change this appointment")
	case errors.Is(err, scheduling.ErrTerminalAppointment):
		return apperrors.NewConflict("appointment is closed", map[string]any{"status": string(appt.Status)})
	default:
		return apperrors.MapError(err)
	}
}

func joinStatuses(statuses []domain.AppointmentStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, string(status))
	}
	return strings.Join(parts, ", ")
}
