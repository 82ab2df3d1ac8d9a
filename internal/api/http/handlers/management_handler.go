package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldconnect/internal/api/dto"
	"github.com/spec-kit/fieldconnect/internal/service"
	apperrors "github.com/spec-kit/fieldconnect/pkg/util"
)

// ManagementHandler exposes the administrative endpoints.
type ManagementHandler struct {
	users        UserService
	appointments AppointmentService
}

// NewManagementHandler constructs handler.
func NewManagementHandler(users UserService, appointments AppointmentService) *ManagementHandler {
	return &ManagementHandler{users: users, appointments: appointments}
}

// Stats handles GET /api/management/stats.
func (h *ManagementHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// Specialists handles GET /api/management/specialists.
func (h *ManagementHandler) Specialists(c *fiber.Ctx) error {
	users, err := h.users.ListSpecialists(c.UserContext(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

// CreateStaff handles POST /api/management/specialists/create.
func (h *ManagementHandler) CreateStaff(c *fiber.Ctx) error {
	var req service.StaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.CreateStaff(c.UserContext(), identity(c), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteSpecialist handles DELETE /api/management/specialists/delete/:id.
func (h *ManagementHandler) DeleteSpecialist(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.DeleteSpecialist(c.UserContext(), identity(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": id}})
}

// Appointments handles GET /api/management/appointments.
func (h *ManagementHandler) Appointments(c *fiber.Ctx) error {
	query := service.AppointmentQuery{
		Status:       c.Query("status"),
		Date:         c.Query("date"),
		SpecialistID: int64(c.QueryInt("specialist_id")),
		Limit:        c.QueryInt("limit"),
		Offset:       c.QueryInt("offset"),
	}
	items, err := h.appointments.ListAll(c.UserContext(), identity(c), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentDetailList(items)})
}

// SearchCustomers handles GET /api/management/customers/search?q=.
func (h *ManagementHandler) SearchCustomers(c *fiber.Ctx) error {
	users, err := h.users.SearchCustomers(c.UserContext(), identity(c), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

// LookupCustomer handles GET /api/management/customer/:nic.
func (h *ManagementHandler) LookupCustomer(c *fiber.Ctx) error {
	user, err := h.users.LookupCustomer(c.UserContext(), identity(c), c.Params("nic"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CustomerAppointments handles GET /api/management/customer/:id/appointments.
func (h *ManagementHandler) CustomerAppointments(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.appointments.CustomerAppointments(c.UserContext(), identity(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentDetailList(items)})
}

// Cancel handles POST /api/management/cancel.
func (h *ManagementHandler) Cancel(c *fiber.Ctx) error {
	var req dto.CancelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}
	appt, err := h.appointments.Cancel(c.UserContext(), identity(c), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appt)})
}

// Reassign handles POST /api/management/reassign.
func (h *ManagementHandler) Reassign(c *fiber.Ctx) error {
	var req dto.ReassignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}
	appt, err := h.appointments.Reassign(c.UserContext(), identity(c), req.AppointmentID, req.SpecialistID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAppointmentResponse(appt)})
}
