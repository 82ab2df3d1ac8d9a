package scheduling

import (
	"errors"
	"fmt"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

var (
	// ErrIllegalTransition marks a status change absent from the transition table.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrTransitionForbidden marks a legal change the actor may not perform.
	ErrTransitionForbidden = errors.New("transition not permitted for actor")
	// ErrTerminalAppointment marks changes attempted on completed or cancelled appointments.
	ErrTerminalAppointment = errors.New("appointment is in a terminal state")
)

type actorRule uint8

const (
	byAssignedSpecialist actorRule = 1 << iota
	byAdmin
)

var transitions = map[domain.AppointmentStatus]map[domain.AppointmentStatus]actorRule{
	domain.StatusPending: {
		domain.StatusEnRoute:   byAssignedSpecialist | byAdmin,
		domain.StatusCancelled: byAdmin,
	},
	domain.StatusEnRoute: {
		domain.StatusActive:    byAssignedSpecialist | byAdmin,
		domain.StatusCompleted: byAssignedSpecialist | byAdmin,
		domain.StatusCancelled: byAdmin,
	},
	domain.StatusActive: {
		domain.StatusCompleted: byAssignedSpecialist | byAdmin,
		domain.StatusCancelled: byAdmin,
	},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to domain.AppointmentStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// NextStatuses lists the statuses reachable from the given one, in lifecycle order.
func NextStatuses(from domain.AppointmentStatus) []domain.AppointmentStatus {
	next := []domain.AppointmentStatus{}
	for _, status := range domain.AllStatuses {
		if CanTransition(from, status) {
			next = append(next, status)
		}
	}
	return next
}

// AuthorizeTransition checks that moving appt to the target status is legal
// and that actor may perform it. Repeating the current status is illegal.
func AuthorizeTransition(actor domain.Identity, appt *domain.Appointment, to domain.AppointmentStatus) error {
	rule, ok := transitions[appt.Status][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, appt.Status, to)
	}
	switch actor.Role {
	case domain.RoleAdmin:
		if rule&byAdmin != 0 {
			return nil
		}
	case domain.RoleSpecialist:
		if rule&byAssignedSpecialist != 0 && appt.IsAssignedTo(actor.UserID) {
			return nil
		}
	case domain.RoleUser:
	}
	return fmt.Errorf("%w: %s may not move %s -> %s", ErrTransitionForbidden, actor.Role, appt.Status, to)
}

// CheckReassignable rejects reassignment of terminal appointments.
func CheckReassignable(appt *domain.Appointment) error {
	if appt.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalAppointment, appt.Status)
	}
	return nil
}
