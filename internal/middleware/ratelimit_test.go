package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"rehber-go/internal/config"
	"rehber-go/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(limiter *ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/messages", RateLimit(limiter, "messages"), ok)
	r.GET("/sessions", RateLimit(limiter, "sessions"), ok)
	r.GET("/panel", func(c *gin.Context) { c.Set("tenantID", "okul-b") }, RateLimit(limiter, "sessions"), ok)
	return r
}

func doRequest(r *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	config.Conf.Tenancy.DefaultTenant = "okul-a"
	limiter := ratelimit.NewLimiter(1, 60)
	r := newLimitedRouter(limiter)

	w := doRequest(r, "/messages", "1.2.3.4:5000")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "/messages", "1.2.3.4:5000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Cok fazla istek gonderildi")
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestRateLimitPurposesDoNotShareWindow(t *testing.T) {
	config.Conf.Tenancy.DefaultTenant = "okul-a"
	limiter := ratelimit.NewLimiter(1, 60)
	r := newLimitedRouter(limiter)

	require.Equal(t, http.StatusOK, doRequest(r, "/messages", "1.2.3.4:5000").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(r, "/messages", "1.2.3.4:5000").Code)

	// messages 的窗口占满不影响 sessions 的窗口
	assert.Equal(t, http.StatusOK, doRequest(r, "/sessions", "1.2.3.4:5000").Code)
}

func TestRateLimitKeyedByClientIP(t *testing.T) {
	config.Conf.Tenancy.DefaultTenant = "okul-a"
	limiter := ratelimit.NewLimiter(1, 60)
	r := newLimitedRouter(limiter)

	require.Equal(t, http.StatusOK, doRequest(r, "/messages", "1.2.3.4:5000").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "/messages", "5.6.7.8:5000").Code)
}

func TestRateLimitTenantFromQueryAndContext(t *testing.T) {
	config.Conf.Tenancy.DefaultTenant = "okul-a"
	limiter := ratelimit.NewLimiter(1, 60)
	r := newLimitedRouter(limiter)

	// 查询参数指定的租户与默认租户的窗口相互独立
	require.Equal(t, http.StatusOK, doRequest(r, "/sessions", "1.2.3.4:5000").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, "/sessions?tenant=okul-c", "1.2.3.4:5000").Code)

	// 面板路由的租户取自上下文，不与默认租户共享窗口
	assert.Equal(t, http.StatusOK, doRequest(r, "/panel", "1.2.3.4:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "/panel", "1.2.3.4:5000").Code)
}
