package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/context"
)

func newTestServer(logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context())
	e.Use(Logger(logger))
	return e
}

func TestLoggerLogsOncePerRequest(t *testing.T) {
	var logged int
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) { logged++ })

	e := newTestServer(logger)
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, logged)
}

func TestLoggerConvertsHandlerErrors(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})

	e := newTestServer(logger)
	e.GET("/missing", func(c echo.Context) error {
		return httperror.NewHTTPError(http.StatusNotFound, "contact not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "contact not found")
}

func TestContextStampsRequestID(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})

	var seen string
	e := newTestServer(logger)
	e.GET("/ping", func(c echo.Context) error {
		seen = context.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	// Generated when the header is absent
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, seen)

	// Honored when the caller supplies one
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	e.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-123", seen)
}
