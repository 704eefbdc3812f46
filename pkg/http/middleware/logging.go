package middleware

import (
	"time"

	applogger "ExitPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs each request through the structured logger. A nil
// logger disables logging without changing the middleware chain.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if l != nil {
				l.Info("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", req.RemoteAddr),
					applogger.Int("status", res.Status),
					applogger.Duration("duration_ms", time.Since(start)),
				)
			}

			return err
		}
	}
}
