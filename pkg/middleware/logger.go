package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/labstack/echo/v4"
)

// Logger logs one line per request after the handler chain finishes. Request
// identity comes from the context populated by Context(), so log lines, error
// responses, and traces all carry the same request id.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			ctx := req.Context()

			logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":  context.GetRequestID(ctx),
				"method":      req.Method,
				"uri":         req.RequestURI,
				"route":       c.Path(),
				"status":      res.Status,
				"remote_ip":   context.GetRemoteIP(ctx),
				"user_agent":  req.UserAgent(),
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes_out":   res.Size,
			}).Info("Request completed")

			return nil
		}
	}
}
