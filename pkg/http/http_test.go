package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundError(`series "x" not found`)) })
	e.GET("/opaque", func(c echo.Context) error { return AppErrorResponse(c, errors.New("db password leaked")) })
}

func serve(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var body APIResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServerRoutesAndErrors(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}}, WithMetricsPath("/metrics"), WithCORS(true))

	rec, body := serve(t, s, http.MethodGet, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", body.Data)

	rec, body = serve(t, s, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, body.Status)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec, _ = serve(t, s, http.MethodGet, "/opaque")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, _ = serve(t, s, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = serve(t, s, http.MethodOptions, "/ping")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	rec, _ = serve(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shapefinder_http_requests_total")
}

type createReq struct {
	Name  string `json:"name" validate:"required"`
	N     int    `json:"n" default:"5" validate:"gte=1,lte=100"`
	Other string `json:"other" validate:"required_without=Name"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()
	newCtx := func(body string) echo.Context {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return e.NewContext(req, httptest.NewRecorder())
	}

	var ok createReq
	assert.Nil(t, ReadAndValidateRequest(newCtx(`{"name":"a"}`), &ok))
	assert.Equal(t, 5, ok.N)

	var bad createReq
	errs := ReadAndValidateRequest(newCtx(`{"n":500}`), &bad)
	require.NotEmpty(t, errs)
	byCode := map[string]*AppError{}
	for _, ve := range errs {
		assert.Equal(t, http.StatusBadRequest, ve.Status)
		byCode[ve.Code] = ve
	}
	require.Contains(t, byCode, "ERR_REQUIRED")
	require.Contains(t, byCode, "ERR_LTE")
	require.Contains(t, byCode, "ERR_REQUIRED_WITHOUT")
	assert.Equal(t, "N", byCode["ERR_LTE"].Field)
	assert.Equal(t, "100", byCode["ERR_LTE"].Params["max"])
	assert.Equal(t, "N must be less than or equal to 100", byCode["ERR_LTE"].Message)

	var malformed createReq
	errs = ReadAndValidateRequest(newCtx(`{`), &malformed)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}

func TestErrorMapResolve(t *testing.T) {
	errGone := errors.New("gone")
	errSlow := errors.New("slow")
	m := ErrorMap{
		{Target: errGone, Build: NotFoundError},
		{Target: errSlow, Build: func(string) *AppError { return ServiceUnavailableError("try later") }},
	}

	got := m.Resolve(fmt.Errorf("series %q: %w", "a", errGone))
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, `series "a": gone`, got.Message)
	assert.ErrorIs(t, got, errGone)

	got = m.Resolve(errSlow)
	assert.Equal(t, "ERR_UNAVAILABLE", got.Code)
	assert.Equal(t, "try later", got.Message)

	own := TooManyRequestsError("slow down")
	assert.Same(t, own, m.Resolve(fmt.Errorf("wrapped: %w", own)))

	got = m.Resolve(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "internal error", got.Message)
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("insufficient data")
	err := UnprocessableError("cannot decompose").WithError(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.Equal(t, "cannot decompose: insufficient data", err.Error())
}
