package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentScheduled     EventType = "appointment.scheduled"
	EventAppointmentStatusChanged EventType = "appointment.status_changed"
	EventAppointmentReassigned    EventType = "appointment.reassigned"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AppointmentID int64           `json:"appointment_id"`
	Actor         domain.Identity `json:"actor"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       interface{}     `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, appointmentID int64, actor domain.Identity, at time.Time, payload interface{}) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AppointmentID: appointmentID,
		Actor:         actor,
		Timestamp:     at.UTC(),
		Payload:       payload,
	}
}

// AppointmentScheduledPayload payload.
type AppointmentScheduledPayload struct {
	CustomerID     int64       `json:"customer_id"`
	SpecialistID   *int64      `json:"specialist_id,omitempty"`
	SpecialistName string      `json:"specialist_name"`
	Date           string      `json:"date"`
	Slot           domain.Slot `json:"slot"`
}

// AppointmentStatusChangedPayload payload.
type AppointmentStatusChangedPayload struct {
	OldStatus domain.AppointmentStatus `json:"old_status"`
	NewStatus domain.AppointmentStatus `json:"new_status"`
}

// AppointmentReassignedPayload payload.
type AppointmentReassignedPayload struct {
	FromSpecialistID *int64 `json:"from_specialist_id,omitempty"`
	ToSpecialistID   int64  `json:"to_specialist_id"`
}
