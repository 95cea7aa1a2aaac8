package agenda

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/martinialebarros-svg/fortcordis-v2-sub000/internal/platform/auth"
	"github.com/martinialebarros-svg/fortcordis-v2-sub000/internal/platform/clinic"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every clinic role
	readGroup := api.Group("", auth.RequireRole(auth.RoleManager, auth.RoleVeterinarian, auth.RoleReception))
	readGroup.GET("/agenda/config", h.GetConfig)
	readGroup.GET("/agenda/calendar", h.GetCalendar)
	readGroup.POST("/agenda/availability", h.CheckAvailability)
	readGroup.POST("/agenda/appointments/validate", h.ValidateAppointment)

	// Write endpoints – managers only
	writeGroup := api.Group("", auth.RequireRole(auth.RoleManager))
	writeGroup.PUT("/agenda/config/weekly", h.UpdateWeeklySchedule)
	writeGroup.PUT("/agenda/config/holidays", h.UpdateHolidays)
	writeGroup.PUT("/agenda/config/exceptions", h.UpdateExceptions)
}

// AvailabilityRequest carries local wall-clock timestamps such as
// "2026-03-10T09:00".
type AvailabilityRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type AvailabilityResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// -- Config Handlers --

func (h *Handler) GetConfig(c echo.Context) error {
	cfg, err := h.svc.GetConfig(c.Request().Context(), clinic.FromContext(c.Request().Context()))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateWeeklySchedule(c echo.Context) error {
	body, err := readJSONBody(c)
	if err != nil {
		return err
	}
	weekly, err := h.svc.UpdateWeeklySchedule(c.Request().Context(), clinic.FromContext(c.Request().Context()), body)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, weekly)
}

func (h *Handler) UpdateHolidays(c echo.Context) error {
	body, err := readJSONBody(c)
	if err != nil {
		return err
	}
	holidays, err := h.svc.UpdateHolidays(c.Request().Context(), clinic.FromContext(c.Request().Context()), body)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, holidays)
}

func (h *Handler) UpdateExceptions(c echo.Context) error {
	body, err := readJSONBody(c)
	if err != nil {
		return err
	}
	exceptions, err := h.svc.UpdateExceptions(c.Request().Context(), clinic.FromContext(c.Request().Context()), body)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, exceptions)
}

// -- Availability Handlers --

func (h *Handler) CheckAvailability(c echo.Context) error {
	start, end, err := bindRange(c)
	if err != nil {
		return err
	}
	allowed, reason, err := h.svc.CheckAvailability(c.Request().Context(), clinic.FromContext(c.Request().Context()), start, end)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{Allowed: allowed, Reason: reason})
}

// ValidateAppointment is the guard used before an appointment is created or
// moved: 204 when the range fits the agenda, 422 with the reason otherwise.
func (h *Handler) ValidateAppointment(c echo.Context) error {
	start, end, err := bindRange(c)
	if err != nil {
		return err
	}
	allowed, reason, err := h.svc.CheckAvailability(c.Request().Context(), clinic.FromContext(c.Request().Context()), start, end)
	if err != nil {
		return serviceError(err)
	}
	if !allowed {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, reason)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetCalendar(c echo.Context) error {
	from, err := ParseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be a YYYY-MM-DD date")
	}
	to, err := ParseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be a YYYY-MM-DD date")
	}
	days, err := h.svc.Calendar(c.Request().Context(), clinic.FromContext(c.Request().Context()), from, to)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, days)
}

// -- Helpers --

var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseTimestamp parses a local wall-clock timestamp. Offsets in RFC 3339
// input are kept as written, never converted.
func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func bindRange(c echo.Context) (time.Time, time.Time, error) {
	var req AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Start == "" || req.End == "" {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, ReasonMissingRange)
	}
	start, err := ParseTimestamp(req.Start)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid start timestamp")
	}
	end, err := ParseTimestamp(req.End)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid end timestamp")
	}
	return start, end, nil
}

func readJSONBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}
	if IsMalformed(body) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	}
	return body, nil
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, ErrMissingClinic),
		errors.Is(err, ErrCalendarOrder),
		errors.Is(err, ErrCalendarSpan):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
