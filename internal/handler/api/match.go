package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ShapeFinder/internal/domain/models"
	apimetrics "ShapeFinder/internal/service/metrics"
	"ShapeFinder/internal/service/ratelimit"
	"ShapeFinder/internal/usecase"
	xhttp "ShapeFinder/pkg/http"
	xlogger "ShapeFinder/pkg/logger"
	"ShapeFinder/pkg/queue"
)

// MatchHandler runs matches on request. Matching is CPU heavy, so each
// client is rate limited.
type MatchHandler struct {
	logger  *xlogger.Logger
	matcher *usecase.MatcherUseCase
	parser  *usecase.SeriesIngestUseCase
	limiter *ratelimit.Limiter
	jobs    queue.Publisher
}

// NewMatchHandler creates the handler. A nil jobs publisher disables
// POST /api/match/jobs.
func NewMatchHandler(logger *xlogger.Logger, matcher *usecase.MatcherUseCase, parser *usecase.SeriesIngestUseCase, limiter *ratelimit.Limiter, jobs queue.Publisher) *MatchHandler {
	apimetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &MatchHandler{logger: logger, matcher: matcher, parser: parser, limiter: limiter, jobs: jobs}
}

func (h *MatchHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/match", h.rateLimit)
	g.POST("", h.Match)
	g.GET("/:name", h.MatchStored)
	if h.jobs != nil {
		g.POST("/jobs", h.Enqueue)
	}
}

func (h *MatchHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(xhttp.ClientKey(c)) {
			apimetrics.Fail("match", "ERR_TOO_MANY_REQUESTS")
			c.Response().Header().Set("Retry-After", "1")
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func (h *MatchHandler) Match(c echo.Context) error {
	defer apimetrics.Observe("match", time.Now())
	req := &models.MatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.Fail("match", "ERR_VALIDATION")
		return xhttp.ValidationResponse(c, verr)
	}

	n, err := usecase.NeighborCount(req.N)
	if err != nil {
		return h.fail(c, err)
	}
	p := usecase.MatchParams{QueryName: req.QueryName, N: n, Period: req.Period}
	if req.QueryName == "" {
		q, err := h.parser.Parse(usecase.IngestParams{
			Name:      req.Name,
			Table:     models.Table{Columns: req.Columns},
			Target:    req.Target,
			Threshold: req.Threshold,
		})
		if err != nil {
			return h.fail(c, err)
		}
		p.Query = q
	}
	return h.run(c, p)
}

// MatchStored handles GET /api/match/:name?n=&period=.
func (h *MatchHandler) MatchStored(c echo.Context) error {
	defer apimetrics.Observe("match", time.Now())
	var requested *int
	if raw := c.QueryParam("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return h.fail(c, fmt.Errorf("%w: %q", models.ErrInvalidNeighborCount, raw))
		}
		requested = &v
	}
	n, err := usecase.NeighborCount(requested)
	if err != nil {
		return h.fail(c, err)
	}
	return h.run(c, usecase.MatchParams{
		QueryName: c.Param("name"),
		N:         n,
		Period:    xhttp.QueryInt(c, "period", 0),
	})
}

// Enqueue queues a match of a stored series and answers 202 with the job id.
// The report is delivered over Kafka and /ws/reports.
func (h *MatchHandler) Enqueue(c echo.Context) error {
	defer apimetrics.Observe("match_job", time.Now())
	req := &models.MatchJobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.Fail("match_job", "ERR_VALIDATION")
		return xhttp.ValidationResponse(c, verr)
	}
	id, err := h.jobs.Enqueue(c.Request().Context(), usecase.MatchJobType, req)
	if err != nil {
		h.logger.Error("enqueue match job failed", xlogger.Error(err))
		apimetrics.Fail("match_job", "ERR_UNAVAILABLE")
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("job queue unavailable").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"job_id": id})
}

func (h *MatchHandler) run(c echo.Context, p usecase.MatchParams) error {
	report, err := h.matcher.Match(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *MatchHandler) fail(c echo.Context, err error) error {
	appErr := toAppError(err)
	apimetrics.Fail("match", appErr.Code)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("match failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
