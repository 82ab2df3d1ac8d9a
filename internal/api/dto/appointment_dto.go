package dto

import (
	"time"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// StatusUpdateRequest payload for POST /api/appointments/status.
type StatusUpdateRequest struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Status string `json:"status" validate:"required"`
}

// CancelRequest payload for POST /api/management/cancel.
type CancelRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// ReassignRequest payload for POST /api/management/reassign.
type ReassignRequest struct {
	AppointmentID int64 `json:"appointment_id" validate:"required,gt=0"`
	SpecialistID  int64 `json:"specialist_id" validate:"required,gt=0"`
}

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	SpecialistID *int64    `json:"specialist_id"`
	Date         string    `json:"date"`
	Slot         string    `json:"slot"`
	Time         *string   `json:"time"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// AppointmentDetailResponse adds customer and specialist details.
type AppointmentDetailResponse struct {
	AppointmentResponse
	CustomerName    string  `json:"customer_name"`
	CustomerNIC     string  `json:"customer_nic"`
	CustomerAddress string  `json:"customer_address"`
	CustomerPhone   string  `json:"customer_phone"`
	SpecialistName  *string `json:"specialist_name"`
}

// ScheduleResponse is returned by POST /api/schedule.
type ScheduleResponse struct {
	Appointment    AppointmentResponse `json:"appointment"`
	SpecialistName string              `json:"specialist_name"`
}

// StatsResponse is returned by GET /api/management/stats.
type StatsResponse struct {
	TotalUsers        int            `json:"total_users"`
	TotalSpecialists  int            `json:"total_specialists"`
	TotalAppointments int            `json:"total_appointments"`
	StatusCounts      map[string]int `json:"status_counts"`
}

// NewAppointmentResponse maps an appointment.
func NewAppointmentResponse(appt *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           appt.ID,
		CustomerID:   appt.CustomerID,
		SpecialistID: appt.SpecialistID,
		Date:         appt.Date,
		Slot:         string(appt.Slot),
		Time:         appt.Time,
		Status:       string(appt.Status),
		CreatedAt:    appt.CreatedAt,
	}
}

// NewAppointmentDetailList maps joined appointment rows, never returning nil.
func NewAppointmentDetailList(items []domain.AppointmentDetail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(items))
	for i := range items {
		item := &items[i]
		out = append(out, AppointmentDetailResponse{
			AppointmentResponse: NewAppointmentResponse(&item.Appointment),
			CustomerName:        item.CustomerName,
			CustomerNIC:         item.CustomerNIC,
			CustomerAddress:     item.CustomerAddress,
			CustomerPhone:       item.CustomerPhone,
			SpecialistName:      item.SpecialistName,
		})
	}
	return out
}

// NewStatsResponse maps dashboard statistics.
func NewStatsResponse(stats *domain.AdminStats) StatsResponse {
	counts := make(map[string]int, len(stats.StatusCounts))
	for status, n := range stats.StatusCounts {
		counts[string(status)] = n
	}
	return StatsResponse{
		TotalUsers:        stats.TotalUsers,
		TotalSpecialists:  stats.TotalSpecialists,
		TotalAppointments: stats.TotalAppointments,
		StatusCounts:      counts,
	}
}
