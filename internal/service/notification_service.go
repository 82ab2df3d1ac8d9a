package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/notify"
	"github.com/spec-kit/fieldconnect/internal/repository"
)

// NotificationService emails customers in response to domain events.
type NotificationService struct {
	dispatcher   events.Dispatcher
	appointments repository.AppointmentRepository
	mailer       notify.Mailer
	logger       *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, appointments repository.AppointmentRepository, mailer notify.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:   dispatcher,
		appointments: appointments,
		mailer:       mailer,
		logger:       logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppointmentScheduled, n.handleScheduled)
	n.dispatcher.Subscribe(events.EventAppointmentStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventAppointmentReassigned, n.handleReassigned)
}

func (n *NotificationService) handleScheduled(ctx context.Context, event events.Event) error {
	n.logger.Info("AppointmentScheduled", zap.Int64("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	return n.sendFor(ctx, event, notify.ScheduledEmail)
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AppointmentStatusChanged", zap.Int64("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	return n.sendFor(ctx, event, notify.StatusEmail)
}

func (n *NotificationService) handleReassigned(_ context.Context, event events.Event) error {
	n.logger.Info("AppointmentReassigned", zap.Int64("appointment_id", event.AppointmentID), zap.Any("payload", event.Payload))
	return nil
}

// SendReminder emails the customer of one upcoming appointment.
func (n *NotificationService) SendReminder(ctx context.Context, detail *domain.AppointmentDetail) (bool, error) {
	msg, ok := notify.ReminderEmail(detail)
	if !ok {
		return false, nil
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return false, err
	}
	return true, nil
}

func (n *NotificationService) sendFor(ctx context.Context, event events.Event, build func(*domain.AppointmentDetail) (notify.Message, bool)) error {
	if n.mailer == nil || n.appointments == nil {
		return nil
	}
	detail, err := n.appointments.GetDetail(ctx, event.AppointmentID)
	if err != nil {
		return err
	}
	msg, ok := build(detail)
	if !ok {
		n.logger.Debug("customer has no email", zap.Int64("appointment_id", event.AppointmentID))
		return nil
	}
	return n.mailer.Send(ctx, msg)
}
