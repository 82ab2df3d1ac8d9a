package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/auth"
	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/observability"
	"github.com/spec-kit/fieldconnect/internal/repository"
	"github.com/spec-kit/fieldconnect/internal/scheduling"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// UnassignedSpecialist is reported when no specialist could take the booking.
const UnassignedSpecialist = "Unassigned"

// ScheduleRequest is a booking request for a customer identified by NIC.
type ScheduleRequest struct {
	NIC  string  `json:"nic" validate:"required,min=5"`
	Date string  `json:"date" validate:"required,datetime=2006-01-02"`
	Slot string  `json:"slot" validate:"required,oneof=AM PM"`
	Time *string `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
}

// ScheduleResult is the created appointment and the assigned specialist name.
type ScheduleResult struct {
	Appointment    *domain.Appointment
	SpecialistName string
}

// SchedulingService books appointments and auto-assigns specialists.
type SchedulingService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	location   *time.Location
	leadDays   int
	rule       scheduling.ConflictRule
	tracer     trace.Tracer
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// SchedulingDependencies bundles collaborators.
type SchedulingDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	Tracer     trace.Tracer
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSchedulingService creates the service. It fails on an unknown conflict rule.
func NewSchedulingService(cfg config.SchedulingConfig, deps SchedulingDependencies) (*SchedulingService, error) {
	raw := cfg.ConflictRule
	if raw == "" {
		raw = string(scheduling.ConflictSameWeek)
	}
	rule, err := scheduling.ParseConflictRule(raw)
	if err != nil {
		return nil, err
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	svc := &SchedulingService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		location:   location,
		leadDays:   cfg.MinLeadDays,
		rule:       rule,
		tracer:     deps.Tracer,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
	if svc.clock == nil {
		svc.clock = clockwork.NewRealClock()
	}
	if svc.tracer == nil {
		svc.tracer = noop.NewTracerProvider().Tracer("")
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc, nil
}

// ScheduleAppointment validates the request, enforces lead time and the
// conflict rule, then assigns the least loaded specialist and inserts the
// appointment in one transaction. Nothing is written when a check fails.
func (s *SchedulingService) ScheduleAppointment(ctx context.Context, identity domain.Identity, req ScheduleRequest) (result *ScheduleResult, err error) {
	ctx, span := s.tracer.Start(ctx, "SchedulingService.ScheduleAppointment",
		trace.WithAttributes(attribute.String("date", req.Date), attribute.String("slot", req.Slot)))
	defer func() {
		if err != nil {
			s.metrics.RecordBooking(apperrors.ToDomainError(err).Code)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := requireOperation(identity, auth.OpScheduleAppointment); err != nil {
		return nil, err
	}

	req.NIC = strings.TrimSpace(req.NIC)
	if err := apperrors.ValidateStruct(req); err != nil {
		return nil, err
	}

	customer, err := s.store.Users().GetByNIC(ctx, req.NIC)
	if err != nil {
		return nil, notFoundOr(err, "customer", map[string]any{"nic": req.NIC})
	}
	if customer.Role != domain.RoleUser {
		return nil, apperrors.NewNotFound("customer", map[string]any{"nic": req.NIC})
	}
	if identity.Role == domain.RoleUser && identity.UserID != customer.ID {
		return nil, apperrors.NewForbidden("customers may only book for themselves")
	}

	today := s.clock.Now().In(s.location)
	if !scheduling.IsDateEligible(req.Date, s.leadDays, today) {
		return nil, apperrors.NewValidationError("date is not eligible", map[string]any{
			"date": fmt.Sprintf("must be on or after %s", scheduling.EarliestEligibleDate(s.leadDays, today)),
		})
	}

	appt := &domain.Appointment{
		CustomerID: customer.ID,
		Date:       req.Date,
		Slot:       domain.Slot(req.Slot),
		Time:       req.Time,
		Status:     domain.StatusPending,
	}
	specialistName := UnassignedSpecialist
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Appointments().LockCustomer(ctx, customer.ID); err != nil {
			return err
		}
		pending, err := tx.Appointments().PendingDatesForCustomer(ctx, customer.ID)
		if err != nil {
			return err
		}
		if !s.rule.Allows(appt.Date, pending) {
			return apperrors.NewConflict(s.conflictMessage(), map[string]any{"pending_dates": pending})
		}

		if err := tx.Appointments().LockSlot(ctx, appt.Date, appt.Slot); err != nil {
			return err
		}
		pool, err := tx.Appointments().SpecialistLoads(ctx, appt.Date, appt.Slot)
		if err != nil {
			return err
		}
		appt.SpecialistID = nil
		specialistName = UnassignedSpecialist
		if chosen, ok := scheduling.SelectLeastLoadedSpecialist(pool); ok {
			specialistID := chosen.SpecialistID
			appt.SpecialistID = &specialistID
			specialistName = chosen.Name
		}
		return tx.Appointments().Create(ctx, appt)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	span.SetAttributes(attribute.Int64("appointment_id", appt.ID), attribute.Bool("assigned", appt.SpecialistID != nil))
	if appt.SpecialistID != nil {
		s.metrics.RecordBooking("assigned")
	} else {
		s.metrics.RecordBooking("unassigned")
	}
	s.logger.Info("appointment scheduled",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("customer_id", customer.ID),
		zap.String("date", appt.Date),
		zap.String("slot", string(appt.Slot)),
		zap.String("specialist", specialistName))

	s.publish(ctx, identity, appt, specialistName)
	return &ScheduleResult{Appointment: appt, SpecialistName: specialistName}, nil
}

func (s *SchedulingService) conflictMessage() string {
	if s.rule == scheduling.ConflictSinglePending {
		return "customer already has a pending appointment"
	}
	return "additional appointments are only allowed in the same week as a pending one"
}

func (s *SchedulingService) publish(ctx context.Context, identity domain.Identity, appt *domain.Appointment, specialistName string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventAppointmentScheduled, appt.ID, identity, s.clock.Now(),
		events.AppointmentScheduledPayload{
			CustomerID:     appt.CustomerID,
			SpecialistID:   appt.SpecialistID,
			SpecialistName: specialistName,
			Date:           appt.Date,
			Slot:           appt.Slot,
		}))
}
