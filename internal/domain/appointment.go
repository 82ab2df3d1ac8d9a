package domain

import "time"

// AppointmentStatus enumerates lifecycle states for appointments.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusEnRoute   AppointmentStatus = "EnRoute"
	StatusActive    AppointmentStatus = "Active"
	StatusCompleted AppointmentStatus = "Completed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusEnRoute,
	StatusActive,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus converts a raw status string.
func ParseStatus(val string) (AppointmentStatus, bool) {
	for _, status := range AllStatuses {
		if string(status) == val {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OpenStatuses are the non-terminal statuses counted as specialist workload.
var OpenStatuses = []AppointmentStatus{StatusPending, StatusEnRoute, StatusActive}

// Slot is the coarse half-day booking window.
type Slot string

const (
	SlotAM Slot = "AM"
	SlotPM Slot = "PM"
)

// Appointment is one scheduled service visit.
type Appointment struct {
	ID           int64
	CustomerID   int64
	SpecialistID *int64
	Date         string
	Slot         Slot
	Time         *string
	Status       AppointmentStatus
	CreatedAt    time.Time
}

// IsAssignedTo reports whether the appointment is assigned to the given specialist.
func (a *Appointment) IsAssignedTo(specialistID int64) bool {
	return a.SpecialistID != nil && *a.SpecialistID == specialistID
}

// AppointmentDetail joins an appointment with its customer and specialist.
type AppointmentDetail struct {
	Appointment
	CustomerName    string
	CustomerNIC     string
	CustomerAddress string
	CustomerPhone   string
	CustomerEmail   *string
	SpecialistName  *string
}
