package http

import (
	"time"

	"github.com/labstack/echo/v4"

	xutil "ShapeFinder/pkg/util"
)

// QueryInt reads an integer query parameter, falling back to def when it is
// absent or malformed.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// QueryTime reads a timestamp query parameter in a calendar form or as unix
// seconds. Absent or malformed values yield the zero time.
func QueryTime(c echo.Context, name string) time.Time {
	return xutil.ParseTimeDefault(c.QueryParam(name), time.Time{})
}

// ClientKey identifies the caller for per-client limits.
func ClientKey(c echo.Context) string {
	return c.RealIP()
}
