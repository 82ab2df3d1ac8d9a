package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldconnect/internal/api/http/handlers"
	"github.com/spec-kit/fieldconnect/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	Appointments   *handlers.AppointmentsHandler
	Management     *handlers.ManagementHandler
	AuthMiddleware *auth.AuthMiddleware
	// RateLimiter guards the anonymous endpoints when set.
	RateLimiter *RateLimiter
}

// RegisterRoutes wires HTTP routes. Every protected route authenticates the
// caller and checks its role before the handler runs.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	anonymous := []fiber.Handler{}
	if cfg.RateLimiter != nil {
		anonymous = append(anonymous, cfg.RateLimiter.Handle)
	}
	api.Post("/login", append(anonymous, cfg.Auth.Login)...)
	api.Post("/register", append(anonymous, cfg.Auth.Register)...)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	guard := auth.RequireOperation

	protected.Post("/schedule", guard(auth.OpScheduleAppointment), cfg.Appointments.Schedule)
	protected.Get("/profile", guard(auth.OpViewOwnProfile), cfg.Profile.Get)
	protected.Post("/profile", guard(auth.OpUpdateOwnProfile), cfg.Profile.Update)
	protected.Get("/appointments/me", guard(auth.OpViewOwnAppointments), cfg.Appointments.Mine)
	protected.Post("/appointments/status", guard(auth.OpUpdateAppointmentStatus), cfg.Appointments.UpdateStatus)
	protected.Get("/specialist/orders", guard(auth.OpViewAssignedAppointments), cfg.Appointments.Assigned)

	mgmt := protected.Group("/management")
	mgmt.Get("/stats", guard(auth.OpViewStats), cfg.Management.Stats)
	mgmt.Get("/specialists", guard(auth.OpListSpecialists), cfg.Management.Specialists)
	mgmt.Post("/specialists/create", guard(auth.OpCreateStaff), cfg.Management.CreateStaff)
	mgmt.Delete("/specialists/delete/:id", guard(auth.OpDeleteSpecialist), cfg.Management.DeleteSpecialist)
	mgmt.Get("/appointments", guard(auth.OpListAllAppointments), cfg.Management.Appointments)
	mgmt.Get("/customers/search", guard(auth.OpSearchCustomers), cfg.Management.SearchCustomers)
	mgmt.Get("/customer/:id/appointments", guard(auth.OpViewCustomerAppointments), cfg.Management.CustomerAppointments)
	mgmt.Get("/customer/:nic", guard(auth.OpLookupCustomer), cfg.Management.LookupCustomer)
	mgmt.Post("/cancel", guard(auth.OpCancelAppointment), cfg.Management.Cancel)
	mgmt.Post("/reassign", guard(auth.OpReassignAppointment), cfg.Management.Reassign)
}
