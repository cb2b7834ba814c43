package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/logger"
)

// RequestLogger assigns a request id, puts a request scoped logger on the
// request context and logs one line per request.  Handler errors are
// passed to c.Error so the logged status is the one sent.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := strings.TrimSpace(req.Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Set(CtxRequestID, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			reqLog := log.With(zap.String("request_id", requestID))
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), reqLog)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("guest", identity(c)),
				zap.String("ip", c.RealIP()),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			switch {
			case route == "/metrics" || route == "/healthz":
				reqLog.Debug("http_request", fields...)
			case status >= http.StatusInternalServerError:
				reqLog.Error("http_request", fields...)
			default:
				reqLog.Info("http_request", fields...)
			}
			return nil
		}
	}
}
