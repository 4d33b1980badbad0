package lookup

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc Lister
}

func NewHandler(svc Lister) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/lookups/:kind", h.List)
}

func (h *Handler) List(c echo.Context) error {
	kind := Kind(c.Param("kind"))
	if !kind.Valid() {
		return echo.NewHTTPError(http.StatusNotFound, "unknown lookup: "+string(kind))
	}
	items, err := List(c.Request().Context(), h.svc, kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
