package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"ShapeFinder/pkg/logger"
)

// RequestLogging logs every request at debug level with its route template.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			l.Debug("http request",
				logger.String("method", c.Request().Method),
				logger.String("route", routeLabel(c)),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)))
			return nil
		}
	}
}
