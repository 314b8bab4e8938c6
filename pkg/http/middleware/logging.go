package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"ChainPulse/pkg/logger"
)

// RequestLogging logs one line per request at debug, or warn for 4xx/5xx.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("remote", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("duration_ms", time.Since(start)),
			}
			if status >= 400 {
				l.Warn("http request", fields...)
			} else {
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
