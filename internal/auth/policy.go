package auth

import "github.com/spec-kit/fieldconnect/internal/domain"

// Operation names an action guarded by the access policy.
type Operation string

const (
	OpAuthenticate             Operation = "authenticate"
	OpRegister                 Operation = "register"
	OpScheduleAppointment      Operation = "schedule_appointment"
	OpViewOwnProfile           Operation = "view_own_profile"
	OpUpdateOwnProfile         Operation = "update_own_profile"
	OpViewOwnAppointments      Operation = "view_own_appointments"
	OpViewAssignedAppointments Operation = "view_assigned_appointments"
	OpUpdateAppointmentStatus  Operation = "update_appointment_status"
	OpViewStats                Operation = "view_stats"
	OpListSpecialists          Operation = "list_specialists"
	OpCreateStaff              Operation = "create_staff"
	OpDeleteSpecialist         Operation = "delete_specialist"
	OpListAllAppointments      Operation = "list_all_appointments"
	OpSearchCustomers          Operation = "search_customers"
	OpLookupCustomer           Operation = "lookup_customer"
	OpViewCustomerAppointments Operation = "view_customer_appointments"
	OpCancelAppointment        Operation = "cancel_appointment"
	OpReassignAppointment      Operation = "reassign_appointment"
)

// Operations lists every guarded operation.
var Operations = []Operation{
	OpAuthenticate, OpRegister, OpScheduleAppointment,
	OpViewOwnProfile, OpUpdateOwnProfile, OpViewOwnAppointments,
	OpViewAssignedAppointments, OpUpdateAppointmentStatus,
	OpViewStats, OpListSpecialists, OpCreateStaff, OpDeleteSpecialist,
	OpListAllAppointments, OpSearchCustomers, OpLookupCustomer,
	OpViewCustomerAppointments, OpCancelAppointment, OpReassignAppointment,
}

// Permits reports whether role may perform op. The empty role is an
// anonymous caller.
func Permits(role domain.Role, op Operation) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSpecialist:
		switch op {
		case OpViewOwnProfile, OpUpdateOwnProfile, OpViewAssignedAppointments, OpUpdateAppointmentStatus:
			return true
		}
		return false
	case domain.RoleUser:
		switch op {
		case OpScheduleAppointment, OpViewOwnProfile, OpUpdateOwnProfile, OpViewOwnAppointments:
			return true
		}
		return false
	default:
		return op == OpAuthenticate || op == OpRegister
	}
}

// Allowed evaluates the policy for a verified identity.
func Allowed(identity domain.Identity, op Operation) bool {
	if !identity.Authenticated() {
		return Permits("", op)
	}
	return Permits(identity.Role, op)
}
