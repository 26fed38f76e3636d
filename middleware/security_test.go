package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("Development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, SecurityHeaders(false)(ok)(c))

		assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
		assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderContentSecurityPolicy))
		assert.Empty(t, rec.Header().Get(echo.HeaderStrictTransportSecurity))
	})

	t.Run("Production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, SecurityHeaders(true)(ok)(c))

		assert.Contains(t, rec.Header().Get(echo.HeaderStrictTransportSecurity), "max-age=")
	})
}

func TestMetrics(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/api/cases/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Case not found")
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/api/cases/:id", http.MethodGet, "404"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cases/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("/api/cases/:id", http.MethodGet, "404"))
	assert.Equal(t, before+1, after)
}
