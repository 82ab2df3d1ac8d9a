package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	CustomerID   *int64
	SpecialistID *int64
	Date         *string
	Statuses     []domain.AppointmentStatus
	Limit        int
	Offset       int
}

// AppointmentRepository encapsulates appointment persistence.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetDetail(ctx context.Context, id int64) (*domain.AppointmentDetail, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error
	UpdateSpecialist(ctx context.Context, id, specialistID int64) error
	ClearSpecialist(ctx context.Context, specialistID int64) (int64, error)
	PendingDatesForCustomer(ctx context.Context, customerID int64) ([]string, error)
	SpecialistLoads(ctx context.Context, date string, slot domain.Slot) ([]domain.SpecialistLoad, error)
	LockSlot(ctx context.Context, date string, slot domain.Slot) error
	LockCustomer(ctx context.Context, customerID int64) error
	List(ctx context.Context, filter AppointmentFilter) ([]domain.AppointmentDetail, error)
	StatusCounts(ctx context.Context) (map[domain.AppointmentStatus]int, error)
	Count(ctx context.Context) (int, error)
}

const appointmentColumns = `a.id, a.customer_id, a.specialist_id, to_char(a.visit_date, 'YYYY-MM-DD'), a.slot, a.visit_time, a.status, a.created_at`

const appointmentDetailQuery = `SELECT ` + appointmentColumns + `,
               c.name, c.nic, c.address, c.phone, c.email, s.name
        FROM appointments a
        JOIN users c ON c.id = a.customer_id
        LEFT JOIN users s ON s.id = a.specialist_id`

type appointmentRepository struct {
	db DBTX
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(db DBTX) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (customer_id, specialist_id, visit_date, slot, visit_time, status)
        VALUES ($1, $2, $3::date, $4, $5, $6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		appt.CustomerID,
		appt.SpecialistID,
		appt.Date,
		string(appt.Slot),
		appt.Time,
		string(appt.Status),
	).Scan(&appt.ID, &appt.CreatedAt)
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id=$1`
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

func (r *appointmentRepository) GetDetail(ctx context.Context, id int64) (*domain.AppointmentDetail, error) {
	return scanAppointmentDetail(r.db.QueryRow(ctx, appointmentDetailQuery+` WHERE a.id=$1`, id))
}

// UpdateStatus moves the appointment only if it is still in status from.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus) error {
	return r.execOne(ctx, `UPDATE appointments SET status=$1 WHERE id=$2 AND status=$3`, string(to), id, string(from))
}

// UpdateSpecialist reassigns the appointment only while it is still open.
func (r *appointmentRepository) UpdateSpecialist(ctx context.Context, id, specialistID int64) error {
	return r.execOne(ctx, `UPDATE appointments SET specialist_id=$1 WHERE id=$2 AND status = ANY($3)`,
		specialistID, id, statusStrings(domain.OpenStatuses))
}

// ClearSpecialist unassigns every appointment of the specialist and reports how many changed.
func (r *appointmentRepository) ClearSpecialist(ctx context.Context, specialistID int64) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE appointments SET specialist_id=NULL WHERE specialist_id=$1`, specialistID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *appointmentRepository) PendingDatesForCustomer(ctx context.Context, customerID int64) ([]string, error) {
	const query = `
        SELECT to_char(visit_date, 'YYYY-MM-DD') FROM appointments
        WHERE customer_id=$1 AND status=$2
        ORDER BY visit_date`
	rows, err := r.db.Query(ctx, query, customerID, string(domain.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

// SpecialistLoads lists every specialist with the number of open appointments
// at date and slot, least loaded first.
func (r *appointmentRepository) SpecialistLoads(ctx context.Context, date string, slot domain.Slot) ([]domain.SpecialistLoad, error) {
	const query = `
        SELECT u.id, u.name, COUNT(a.id)
        FROM users u
        LEFT JOIN appointments a
            ON a.specialist_id = u.id AND a.visit_date = $1::date AND a.slot = $2 AND a.status = ANY($3)
        WHERE u.role = $4
        GROUP BY u.id, u.name
        ORDER BY COUNT(a.id), u.id`
	rows, err := r.db.Query(ctx, query, date, string(slot), statusStrings(domain.OpenStatuses), string(domain.RoleSpecialist))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := []domain.SpecialistLoad{}
	for rows.Next() {
		var (
			load  domain.SpecialistLoad
			count int64
		)
		if err := rows.Scan(&load.SpecialistID, &load.Name, &count); err != nil {
			return nil, err
		}
		load.Load = int(count)
		loads = append(loads, load)
	}
	return loads, rows.Err()
}

// LockSlot takes a transaction scoped advisory lock on date and slot. It only
// serializes when called inside a transaction.
func (r *appointmentRepository) LockSlot(ctx context.Context, date string, slot domain.Slot) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, SlotLockKey(date, slot))
	return err
}

// SlotLockKey is the advisory lock key of a date and slot.
func SlotLockKey(date string, slot domain.Slot) string {
	return date + "|" + string(slot)
}

// LockCustomer takes a transaction scoped advisory lock on one customer's
// bookings. Take it before LockSlot.
func (r *appointmentRepository) LockCustomer(ctx context.Context, customerID int64) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, CustomerLockKey(customerID))
	return err
}

// CustomerLockKey is the advisory lock key of a customer.
func CustomerLockKey(customerID int64) string {
	return "customer|" + strconv.FormatInt(customerID, 10)
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]domain.AppointmentDetail, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("a.customer_id=$%d", len(args)))
	}
	if filter.SpecialistID != nil {
		args = append(args, *filter.SpecialistID)
		clauses = append(clauses, fmt.Sprintf("a.specialist_id=$%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		clauses = append(clauses, fmt.Sprintf("a.visit_date=$%d::date", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("a.status = ANY($%d)", len(args)))
	}

	query := appointmentDetailQuery + " WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY a.visit_date DESC, a.slot, a.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AppointmentDetail{}
	for rows.Next() {
		detail, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}
	return result, rows.Err()
}

// StatusCounts returns the number of appointments per status. Statuses with no
// appointments are reported as zero.
func (r *appointmentRepository) StatusCounts(ctx context.Context) (map[domain.AppointmentStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AppointmentStatus]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.AppointmentStatus(status)] = int(count)
	}
	return counts, rows.Err()
}

func (r *appointmentRepository) Count(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&count); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *appointmentRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var (
		appt   domain.Appointment
		slot   string
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.CustomerID,
		&appt.SpecialistID,
		&appt.Date,
		&slot,
		&appt.Time,
		&status,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	appt.Slot = domain.Slot(slot)
	appt.Status = domain.AppointmentStatus(status)
	return &appt, nil
}

func scanAppointmentDetail(row pgx.Row) (*domain.AppointmentDetail, error) {
	var (
		detail domain.AppointmentDetail
		slot   string
		status string
	)
	if err := row.Scan(
		&detail.ID,
		&detail.CustomerID,
		&detail.SpecialistID,
		&detail.Date,
		&slot,
		&detail.Time,
		&status,
		&detail.CreatedAt,
		&detail.CustomerName,
		&detail.CustomerNIC,
		&detail.CustomerAddress,
		&detail.CustomerPhone,
		&detail.CustomerEmail,
		&detail.SpecialistName,
	); err != nil {
		return nil, err
	}
	detail.Slot = domain.Slot(slot)
	detail.Status = domain.AppointmentStatus(status)
	return &detail, nil
}

func statusStrings(statuses []domain.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
