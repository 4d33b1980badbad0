package appointment

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medapp/medapp/pkg/dateonly"
	"github.com/medapp/medapp/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
	api.GET("/appointments/:id/pdf", h.DownloadReport)
	api.POST("/appointments/:id/send-email", h.SendReport)
}

// httpError maps service errors onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case IsDispatchError(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseFilter(c echo.Context) (ListFilter, error) {
	var f ListFilter

	pg, err := pagination.FromContext(c)
	if err != nil {
		return f, err
	}
	f.Page, f.PageSize = pg.Page, pg.PageSize

	if s := strings.TrimSpace(c.QueryParam("search")); s != "" {
		f.Search = &s
	}
	if raw := c.QueryParam("doctorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("doctorId must be an integer")
		}
		f.DoctorID = &id
	}
	if raw := c.QueryParam("visitType"); raw != "" {
		vt, err := ParseVisitType(raw)
		if err != nil {
			return f, err
		}
		f.VisitType = &vt
	}
	for _, p := range []struct {
		name string
		dst  **dateonly.Date
	}{{"dateFrom", &f.DateFrom}, {"dateTo", &f.DateTo}} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		d, err := dateonly.Parse(raw)
		if err != nil {
			return f, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = &d
	}
	return f, nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	page, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var p Payload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.svc.Create(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderLocation, fmt.Sprintf("%s/%d", strings.TrimSuffix(c.Request().URL.Path, "/"), id))
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Payload
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.ID != 0 && p.ID != id {
		return httpError(fmt.Errorf("%w: %d != %d", ErrIDMismatch, p.ID, id))
	}
	if err := h.svc.Update(c.Request().Context(), id, p); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DownloadReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pdf, err := h.svc.BuildReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", ReportFilename(id)))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) SendReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.SendReportByEmail(c.Request().Context(), id, c.QueryParam("to")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"sent": true})
}
