package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/fieldconnect/internal/domain"
	"github.com/spec-kit/fieldconnect/internal/events"
	"github.com/spec-kit/fieldconnect/internal/notify"
	"github.com/spec-kit/fieldconnect/internal/repository"
)

var (
	fixedNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	admin    = domain.Identity{UserID: 1, Role: domain.RoleAdmin}
)

// memoryStore is an in-memory repository.Store. InTx restores the previous
// state when fn fails.
type memoryStore struct {
	mu           sync.Mutex
	users        map[int64]domain.User
	appointments map[int64]domain.Appointment
	nextUserID   int64
	nextApptID   int64
	trail        []string
	failCreate   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        map[int64]domain.User{},
		appointments: map[int64]domain.Appointment{},
	}
}

func (s *memoryStore) Users() repository.UserRepository               { return memoryUsers{s} }
func (s *memoryStore) Appointments() repository.AppointmentRepository { return memoryAppointments{s} }

func (s *memoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.mu.Lock()
	users := cloneMap(s.users)
	appts := cloneMap(s.appointments)
	nextUser, nextAppt := s.nextUserID, s.nextApptID
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.users, s.appointments = users, appts
		s.nextUserID, s.nextApptID = nextUser, nextAppt
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	out := make(map[K]V, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (s *memoryStore) addUser(nic, name string, role domain.Role) *domain.User {
	user := &domain.User{NIC: nic, Name: name, Role: role, PasswordHash: "x"}
	if err := s.Users().Create(context.Background(), user); err != nil {
		panic(err)
	}
	return user
}

func (s *memoryStore) addAppointment(customerID int64, specialistID *int64, date string, slot domain.Slot, status domain.AppointmentStatus) *domain.Appointment {
	appt := &domain.Appointment{CustomerID: customerID, SpecialistID: specialistID, Date: date, Slot: slot, Status: status}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextApptID++
	appt.ID = s.nextApptID
	appt.CreatedAt = fixedNow
	s.appointments[appt.ID] = *appt
	return appt
}

func (s *memoryStore) appointmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appointments)
}

func (s *memoryStore) appointment(id int64) domain.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments[id]
}

type memoryUsers struct{ s *memoryStore }

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.NIC == user.NIC {
			return uniqueViolation("users_nic_key")
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = fixedNow
	r.s.users[user.ID] = *user
	return nil
}

func (r memoryUsers) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memoryUsers) GetByNIC(_ context.Context, nic string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.NIC == nic })
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email != nil && strings.EqualFold(*u.Email, email) })
}

func (r memoryUsers) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memoryUsers) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.Role == role }), nil
}

func (r memoryUsers) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	users, _ := r.ListByRole(ctx, role)
	return len(users), nil
}

func (r memoryUsers) Search(_ context.Context, role domain.Role, term string, limit int) ([]domain.User, error) {
	term = strings.ToLower(term)
	out := r.filter(func(u domain.User) bool {
		if u.Role != role {
			return false
		}
		email := ""
		if u.Email != nil {
			email = *u.Email
		}
		for _, field := range []string{u.NIC, u.Name, email} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryUsers) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.users, id)
	return nil
}

func (r memoryUsers) filter(match func(domain.User) bool) []domain.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.User{}
	for _, user := range r.s.users {
		if match(user) {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryAppointments struct{ s *memoryStore }

func (r memoryAppointments) Create(_ context.Context, appt *domain.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failCreate != nil {
		return r.s.failCreate
	}
	r.s.nextApptID++
	appt.ID = r.s.nextApptID
	appt.CreatedAt = fixedNow
	r.s.appointments[appt.ID] = *appt
	return nil
}

func (r memoryAppointments) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &appt, nil
}

func (r memoryAppointments) GetDetail(_ context.Context, id int64) (*domain.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	detail := r.s.detail(appt)
	return &detail, nil
}

func (s *memoryStore) detail(appt domain.Appointment) domain.AppointmentDetail {
	customer := s.users[appt.CustomerID]
	detail := domain.AppointmentDetail{
		Appointment:     appt,
		CustomerName:    customer.Name,
		CustomerNIC:     customer.NIC,
		CustomerAddress: customer.Address,
		CustomerPhone:   customer.Phone,
		CustomerEmail:   customer.Email,
	}
	if appt.SpecialistID != nil {
		if specialist, ok := s.users[*appt.SpecialistID]; ok {
			name := specialist.Name
			detail.SpecialistName = &name
		}
	}
	return detail
}

func (r memoryAppointments) UpdateStatus(_ context.Context, id int64, from, to domain.AppointmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok || appt.Status != from {
		return pgx.ErrNoRows
	}
	appt.Status = to
	r.s.appointments[id] = appt
	return nil
}

func (r memoryAppointments) UpdateSpecialist(_ context.Context, id, specialistID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok || appt.Status.IsTerminal() {
		return pgx.ErrNoRows
	}
	appt.SpecialistID = &specialistID
	r.s.appointments[id] = appt
	return nil
}

func (r memoryAppointments) ClearSpecialist(_ context.Context, specialistID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, appt := range r.s.appointments {
		if appt.IsAssignedTo(specialistID) {
			appt.SpecialistID = nil
			r.s.appointments[id] = appt
			n++
		}
	}
	return n, nil
}

func (r memoryAppointments) PendingDatesForCustomer(_ context.Context, customerID int64) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.trail = append(r.s.trail, "pending")
	dates := []string{}
	for _, appt := range r.s.appointments {
		if appt.CustomerID == customerID && appt.Status == domain.StatusPending {
			dates = append(dates, appt.Date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func (r memoryAppointments) SpecialistLoads(_ context.Context, date string, slot domain.Slot) ([]domain.SpecialistLoad, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loads := []domain.SpecialistLoad{}
	for _, user := range r.s.users {
		if user.Role != domain.RoleSpecialist {
			continue
		}
		load := domain.SpecialistLoad{SpecialistID: user.ID, Name: user.Name}
		for _, appt := range r.s.appointments {
			if appt.IsAssignedTo(user.ID) && appt.Date == date && appt.Slot == slot && !appt.Status.IsTerminal() {
				load.Load++
			}
		}
		loads = append(loads, load)
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].SpecialistID < loads[j].SpecialistID })
	return loads, nil
}

func (r memoryAppointments) LockSlot(_ context.Context, date string, slot domain.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.trail = append(r.s.trail, repository.SlotLockKey(date, slot))
	return nil
}

func (r memoryAppointments) LockCustomer(_ context.Context, customerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.trail = append(r.s.trail, repository.CustomerLockKey(customerID))
	return nil
}

func (r memoryAppointments) List(_ context.Context, filter repository.AppointmentFilter) ([]domain.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.AppointmentDetail{}
	for _, appt := range r.s.appointments {
		if filter.CustomerID != nil && appt.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.SpecialistID != nil && !appt.IsAssignedTo(*filter.SpecialistID) {
			continue
		}
		if filter.Date != nil && appt.Date != *filter.Date {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, appt.Status) {
			continue
		}
		out = append(out, r.s.detail(appt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.AppointmentDetail{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsStatus(statuses []domain.AppointmentStatus, status domain.AppointmentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r memoryAppointments) StatusCounts(_ context.Context) (map[domain.AppointmentStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.AppointmentStatus]int{}
	for _, status := range domain.AllStatuses {
		counts[status] = 0
	}
	for _, appt := range r.s.appointments {
		counts[appt.Status]++
	}
	return counts, nil
}

func (r memoryAppointments) Count(_ context.Context) (int, error) {
	return r.s.appointmentCount(), nil
}

// recordingDispatcher wraps the in-memory dispatcher and keeps every event.
type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(nil)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		out = append(out, event.Type)
	}
	return out
}

type capturingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *capturingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func ptr[T any](v T) *T { return &v }
