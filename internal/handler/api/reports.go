package api

import (
	"github.com/labstack/echo/v4"

	"ShapeFinder/internal/service/broadcast"
)

// ReportsHandler streams match reports over WebSocket.
type ReportsHandler struct {
	hub *broadcast.Hub
}

func NewReportsHandler(hub *broadcast.Hub) *ReportsHandler {
	return &ReportsHandler{hub: hub}
}

func (h *ReportsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/reports", func(c echo.Context) error {
		h.hub.ServeWS(c.Response(), c.Request())
		return nil
	})
}
