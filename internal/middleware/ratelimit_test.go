package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(requestsPerMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/sync", RateLimit(requestsPerMinute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func rateLimitedRequest(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("X-Forwarded-For", ip)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	router := setupRateLimitRouter(3)

	for i := 0; i < 3; i++ {
		w := rateLimitedRequest(router, "192.0.2.1")
		assert.Equal(t, http.StatusOK, w.Code, "request %d within the limit", i+1)
	}

	w := rateLimitedRequest(router, "192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimit_PerClientIP(t *testing.T) {
	router := setupRateLimitRouter(1)

	assert.Equal(t, http.StatusOK, rateLimitedRequest(router, "192.0.2.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, rateLimitedRequest(router, "192.0.2.1").Code)

	// Another client is unaffected.
	assert.Equal(t, http.StatusOK, rateLimitedRequest(router, "192.0.2.2").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := setupRateLimitRouter(0)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, rateLimitedRequest(router, "192.0.2.1").Code)
	}
}
