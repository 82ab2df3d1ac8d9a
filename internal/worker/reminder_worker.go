package worker

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldconnect/internal/config"
	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/scheduling"
)

// UpcomingLister lists open appointments on a date.
type UpcomingLister interface {
	Upcoming(ctx context.Context, date string) ([]domain.AppointmentDetail, error)
}

// ReminderSender emails one reminder. It reports false when nothing was sent.
type ReminderSender interface {
	SendReminder(ctx context.Context, detail *domain.AppointmentDetail) (bool, error)
}

// ReminderDependencies bundles collaborators.
type ReminderDependencies struct {
	Appointments UpcomingLister
	Sender       ReminderSender
	Clock        clockwork.Clock
	Location     *time.Location
	Logger       *zap.Logger
}

// ReminderWorker emails customers the day before their visit.
type ReminderWorker struct {
	cron         *cron.Cron
	appointments UpcomingLister
	sender       ReminderSender
	clock        clockwork.Clock
	location     *time.Location
	logger       *zap.Logger
	timeout      time.Duration
}

// NewReminderWorker schedules the job on cfg.CronSpec. It does not start the scheduler.
func NewReminderWorker(cfg config.ReminderConfig, deps ReminderDependencies) (*ReminderWorker, error) {
	w := &ReminderWorker{
		appointments: deps.Appointments,
		sender:       deps.Sender,
		clock:        deps.Clock,
		location:     deps.Location,
		logger:       deps.Logger,
		timeout:      5 * time.Minute,
	}
	if w.clock == nil {
		w.clock = clockwork.NewRealClock()
	}
	if w.location == nil {
		w.location = time.UTC
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}

	w.cron = cron.New(cron.WithLocation(w.location))
	if _, err := w.cron.AddFunc(cfg.CronSpec, w.run); err != nil {
		return nil, err
	}
	return w, nil
}

// Start runs the scheduler in the background.
func (w *ReminderWorker) Start() {
	w.cron.Start()
	w.logger.Info("reminder scheduler started", zap.Int("jobs", len(w.cron.Entries())))
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (w *ReminderWorker) Stop() context.Context {
	return w.cron.Stop()
}

func (w *ReminderWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("reminder run failed", zap.Error(err))
	}
}

// RunOnce sends reminders for tomorrow's open appointments and returns how
// many were emailed. A failed email is logged and skipped.
func (w *ReminderWorker) RunOnce(ctx context.Context) (int, error) {
	tomorrow := w.clock.Now().In(w.location).AddDate(0, 0, 1).Format(scheduling.DateLayout)
	items, err := w.appointments.Upcoming(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range items {
		ok, err := w.sender.SendReminder(ctx, &items[i])
		if err != nil {
			w.logger.Warn("reminder not sent", zap.Int64("appointment_id", items[i].ID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}
	w.logger.Info("reminders processed",
		zap.String("date", tomorrow),
		zap.Int("appointments", len(items)),
		zap.Int("sent", sent))
	return sent, nil
}
