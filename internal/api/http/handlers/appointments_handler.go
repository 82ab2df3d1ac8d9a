package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldconnect/internal/api/dto"
	"github.com/spec-kit/fieldconnect/internal/service"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// AppointmentsHandler serves booking and the customer and specialist views.
type AppointmentsHandler struct {
	scheduler    Scheduler
	appointments AppointmentService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(scheduler Scheduler, appointments AppointmentService) *AppointmentsHandler {
	return &AppointmentsHandler{scheduler: scheduler, appointments: appointments}
}

// Schedule handles POST /api/schedule.
func (h *AppointmentsHandler) Schedule(c *fiber.Ctx) error {
	var req service.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.scheduler.ScheduleAppointment(c.UserContext(), identity(c), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ScheduleResponse{
		Appointment:    dto.NewAppointmentResponse(result.Appointment),
		SpecialistName: result.SpecialistName,
	}})
}

// Mine handles GET /api/appointments/me.
func (h *AppointmentsHandler) Mine(c *fiber.Ctx) error {
	items, err := h.appointments.ListMine(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentDetailList(items)})
}

// Assigned handles GET /api/specialist/orders.
func (h *AppointmentsHandler) Assigned(c *fiber.Ctx) error {
	items, err := h.appointments.ListAssigned(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentDetailList(items)})
}

// UpdateStatus handles POST /api/appointments/status.
func (h *AppointmentsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.StatusUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}
	appt, err := h.appointments.UpdateStatus(c.UserContext(), identity(c), req.ID, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appt)})
}
