package service

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/repository"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

type appointmentFixture struct {
	store      *memoryStore
	dispatcher *recordingDispatcher
	svc        *AppointmentService
	customer   *domain.User
	specialist *domain.User
	other      *domain.User
}

func newAppointmentFixture(t *testing.T) *appointmentFixture {
	t.Helper()
	store := newMemoryStore()
	store.addUser("999999", "Root", domain.RoleAdmin)
	f := &appointmentFixture{
		store:      store,
		dispatcher: newRecordingDispatcher(),
		customer:   store.addUser("123456", "Ana Perez", domain.RoleUser),
		specialist: store.addUser("555001", "Sam Field", domain.RoleSpecialist),
		other:      store.addUser("555002", "Olga Tech", domain.RoleSpecialist),
	}
	f.svc = NewAppointmentService(AppointmentDependencies{
		Store:      store,
		Dispatcher: f.dispatcher,
		Clock:      clockwork.NewFakeClockAt(fixedNow),
	})
	return f
}

func (f *appointmentFixture) assigned(status domain.AppointmentStatus) *domain.Appointment {
	return f.store.addAppointment(f.customer.ID, &f.specialist.ID, "2026-03-20", domain.SlotAM, status)
}

func (f *appointmentFixture) specialistIdentity() domain.Identity {
	return domain.Identity{UserID: f.specialist.ID, Role: domain.RoleSpecialist}
}

func TestUpdateStatus_AssignedSpecialistWalksLifecycle(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusPending)
	ctx := context.Background()

	for _, next := range []domain.AppointmentStatus{domain.StatusEnRoute, domain.StatusActive, domain.StatusCompleted} {
		updated, err := f.svc.UpdateStatus(ctx, f.specialistIdentity(), appt.ID, string(next))
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
	assert.Equal(t, domain.StatusCompleted, f.store.appointment(appt.ID).Status)
	assert.Len(t, f.dispatcher.types(), 3)
}

func TestUpdateStatus_CompletedToEnRouteRejected(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusCompleted)

	_, err := f.svc.UpdateStatus(context.Background(), f.specialistIdentity(), appt.ID, "EnRoute")
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Equal(t, []domain.AppointmentStatus{}, domainErr.Details["allowed"])
	assert.Equal(t, domain.StatusCompleted, f.store.appointment(appt.ID).Status)
}

func TestUpdateStatus_RepeatedStatusIsValidationFailed(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusActive)

	_, err := f.svc.UpdateStatus(context.Background(), admin, appt.ID, "Active")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), admin, appt.ID, "Teleported")
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Contains(t, domainErr.Details, "status")
}

func TestUpdateStatus_ActorRules(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusPending)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, domain.Identity{UserID: f.other.ID, Role: domain.RoleSpecialist}, appt.ID, "EnRoute")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "non-assigned specialist")

	_, err = f.svc.UpdateStatus(ctx, f.specialistIdentity(), appt.ID, "Cancelled")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "specialist cancelling")

	_, err = f.svc.UpdateStatus(ctx, domain.Identity{UserID: f.customer.ID, Role: domain.RoleUser}, appt.ID, "EnRoute")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "customer")

	_, err = f.svc.UpdateStatus(ctx, domain.Identity{}, appt.ID, "EnRoute")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), "anonymous")

	assert.Equal(t, domain.StatusPending, f.store.appointment(appt.ID).Status)
	assert.Empty(t, f.dispatcher.types())
}

func TestUpdateStatus_MissingAppointment(t *testing.T) {
	f := newAppointmentFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), admin, 404, "EnRoute")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

// racingStore flips the appointment status between the read and the write.
type racingStore struct {
	*memoryStore
}

func (s racingStore) Appointments() repository.AppointmentRepository {
	return racingAppointments{AppointmentRepository: s.memoryStore.Appointments(), store: s.memoryStore}
}

type racingAppointments struct {
	repository.AppointmentRepository
	store *memoryStore
}

func (r racingAppointments) UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error {
	r.store.mu.Lock()
	appt := r.store.appointments[id]
	appt.Status = domain.StatusCancelled
	r.store.appointments[id] = appt
	r.store.mu.Unlock()
	return r.AppointmentRepository.UpdateStatus(ctx, id, from, to)
}

func (r racingAppointments) UpdateSpecialist(ctx context.Context, id, specialistID int64) error {
	r.store.mu.Lock()
	appt := r.store.appointments[id]
	appt.Status = domain.StatusCompleted
	r.store.appointments[id] = appt
	r.store.mu.Unlock()
	return r.AppointmentRepository.UpdateSpecialist(ctx, id, specialistID)
}

func TestUpdateStatus_ConcurrentChangeIsConflict(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusPending)
	svc := NewAppointmentService(AppointmentDependencies{Store: racingStore{f.store}})

	_, err := svc.UpdateStatus(context.Background(), admin, appt.ID, "EnRoute")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, domain.StatusCancelled, f.store.appointment(appt.ID).Status)
}

func TestReassign_ConcurrentCompletionIsConflict(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusActive)
	svc := NewAppointmentService(AppointmentDependencies{Store: racingStore{f.store}, Dispatcher: f.dispatcher})

	_, err := svc.Reassign(context.Background(), admin, appt.ID, f.other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	stored := f.store.appointment(appt.ID)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.False(t, stored.IsAssignedTo(f.other.ID))
	assert.Empty(t, f.dispatcher.types())
}

func TestCancel(t *testing.T) {
	f := newAppointmentFixture(t)
	open := f.assigned(domain.StatusEnRoute)
	done := f.assigned(domain.StatusCompleted)
	ctx := context.Background()

	updated, err := f.svc.Cancel(ctx, admin, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)

	_, err = f.svc.Cancel(ctx, admin, done.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.svc.Cancel(ctx, f.specialistIdentity(), open.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestReassign(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusActive)

	updated, err := f.svc.Reassign(context.Background(), admin, appt.ID, f.other.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.SpecialistID)
	assert.Equal(t, f.other.ID, *updated.SpecialistID)
	assert.Equal(t, domain.StatusActive, updated.Status)
	stored := f.store.appointment(appt.ID)
	assert.True(t, stored.IsAssignedTo(f.other.ID))
	assert.Equal(t, []events.EventType{events.EventAppointmentReassigned}, f.dispatcher.types())
}

func TestReassign_Rejections(t *testing.T) {
	f := newAppointmentFixture(t)
	appt := f.assigned(domain.StatusPending)
	closed := f.assigned(domain.StatusCancelled)
	ctx := context.Background()

	_, err := f.svc.Reassign(ctx, admin, closed.ID, f.other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = f.svc.Reassign(ctx, admin, appt.ID, f.customer.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Reassign(ctx, admin, appt.ID, 9999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Reassign(ctx, f.specialistIdentity(), appt.ID, f.other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	same, err := f.svc.Reassign(ctx, admin, appt.ID, f.specialist.ID)
	require.NoError(t, err)
	assert.True(t, same.IsAssignedTo(f.specialist.ID))
	assert.Empty(t, f.dispatcher.types())
}

func TestListings(t *testing.T) {
	f := newAppointmentFixture(t)
	mine := f.assigned(domain.StatusPending)
	someone := f.store.addUser("777777", "Someone", domain.RoleUser)
	f.store.addAppointment(someone.ID, &f.other.ID, "2026-03-21", domain.SlotPM, domain.StatusActive)
	ctx := context.Background()
	customer := domain.Identity{UserID: f.customer.ID, Role: domain.RoleUser}

	own, err := f.svc.ListMine(ctx, customer)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)
	assert.Equal(t, "Ana Perez", own[0].CustomerName)

	assigned, err := f.svc.ListAssigned(ctx, f.specialistIdentity())
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, mine.ID, assigned[0].ID)

	_, err = f.svc.ListAssigned(ctx, customer)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	history, err := f.svc.CustomerAppointments(ctx, admin, someone.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.CustomerAppointments(ctx, admin, f.specialist.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListAll_Filters(t *testing.T) {
	f := newAppointmentFixture(t)
	f.assigned(domain.StatusPending)
	f.store.addAppointment(f.customer.ID, &f.other.ID, "2026-03-21", domain.SlotPM, domain.StatusActive)
	f.store.addAppointment(f.customer.ID, nil, "2026-03-21", domain.SlotAM, domain.StatusPending)
	ctx := context.Background()

	all, err := f.svc.ListAll(ctx, admin, AppointmentQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := f.svc.ListAll(ctx, admin, AppointmentQuery{Status: "Pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	byDate, err := f.svc.ListAll(ctx, admin, AppointmentQuery{Date: "2026-03-21", SpecialistID: f.other.ID})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, domain.StatusActive, byDate[0].Status)

	paged, err := f.svc.ListAll(ctx, admin, AppointmentQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	_, err = f.svc.ListAll(ctx, admin, AppointmentQuery{Status: "Lost", Date: "tomorrow", Offset: -1})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Contains(t, domainErr.Details, "status")
	assert.Contains(t, domainErr.Details, "date")
	assert.Contains(t, domainErr.Details, "offset")
}

func TestUpcoming_OnlyOpenAppointments(t *testing.T) {
	f := newAppointmentFixture(t)
	open := f.assigned(domain.StatusPending)
	f.assigned(domain.StatusCancelled)
	f.store.addAppointment(f.customer.ID, nil, "2026-03-21", domain.SlotAM, domain.StatusPending)

	items, err := f.svc.Upcoming(context.Background(), "2026-03-20")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, open.ID, items[0].ID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, maxListLimit, clampLimit(1000))
	assert.Equal(t, 10, clampLimit(10))
}
