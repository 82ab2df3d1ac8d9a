package domain

// SpecialistLoad is a specialist annotated with open appointments at a date and slot.
type SpecialistLoad struct {
	SpecialistID int64
	Name         string
	Load         int
}

// AdminStats summarizes the system for the management dashboard.
type AdminStats struct {
	TotalUsers        int
	TotalSpecialists  int
	TotalAppointments int
	StatusCounts      map[AppointmentStatus]int
}
