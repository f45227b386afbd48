package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteLabelUsesTemplateForMatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var label string
	r.GET("/plans/:id", func(c *gin.Context) {
		label = routeLabel(c)
		c.Status(http.StatusOK)
	})

	req, err := http.NewRequest(http.MethodGet, "/plans/p-123", nil)
	require.NoError(t, err)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/plans/:id", label)
}

func TestRouteLabelCollapsesUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, "/no/such/route", nil)
	require.NoError(t, err)
	c.Request = req

	assert.Equal(t, "unmatched", routeLabel(c))
}

func TestMetricsMiddlewareNilServiceIsPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
