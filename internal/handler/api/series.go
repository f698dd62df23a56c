package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ShapeFinder/internal/domain/models"
	apimetrics "ShapeFinder/internal/service/metrics"
	"ShapeFinder/internal/usecase"
	xhttp "ShapeFinder/pkg/http"
	xlogger "ShapeFinder/pkg/logger"
)

// SeriesHandler serves series CRUD and the health check.
type SeriesHandler struct {
	logger *xlogger.Logger
	ingest *usecase.SeriesIngestUseCase
}

func NewSeriesHandler(logger *xlogger.Logger, ingest *usecase.SeriesIngestUseCase) *SeriesHandler {
	apimetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SeriesHandler{logger: logger, ingest: ingest}
}

func (h *SeriesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api/series")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:name", h.Get)
	g.DELETE("/:name", h.Delete)
}

func (h *SeriesHandler) Create(c echo.Context) error {
	defer apimetrics.Observe("series_create", time.Now())
	req := &models.CreateSeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.Fail("series_create", "ERR_VALIDATION")
		return xhttp.ValidationResponse(c, verr)
	}
	s, err := h.ingest.Ingest(c.Request().Context(), usecase.IngestParams{
		Name:      req.Name,
		Table:     models.Table{Columns: req.Columns},
		Target:    req.Target,
		Threshold: req.Threshold,
	})
	if err != nil {
		return h.fail(c, "series_create", err)
	}
	return xhttp.CreatedResponse(c, models.SeriesSummary{Name: s.Name, Points: s.Len()})
}

func (h *SeriesHandler) List(c echo.Context) error {
	defer apimetrics.Observe("series_list", time.Now())
	names, err := h.ingest.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "series_list", err)
	}
	return xhttp.ListResponse(c, names, int64(len(names)))
}

// Get returns the stored points, optionally narrowed to ?from=&to=.
func (h *SeriesHandler) Get(c echo.Context) error {
	defer apimetrics.Observe("series_get", time.Now())
	s, err := h.ingest.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.fail(c, "series_get", err)
	}
	return xhttp.SuccessResponse(c, s.Window(xhttp.QueryTime(c, "from"), xhttp.QueryTime(c, "to")).View())
}

func (h *SeriesHandler) Delete(c echo.Context) error {
	defer apimetrics.Observe("series_delete", time.Now())
	if err := h.ingest.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return h.fail(c, "series_delete", err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *SeriesHandler) Health(c echo.Context) error {
	if err := h.ingest.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "down"})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *SeriesHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	apimetrics.Fail(endpoint, appErr.Code)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
