package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"rehber-go/internal/config"
	"rehber-go/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 创建一个按用途做准入控制的 Gin 中间件，key 为 purpose:tenant:client_ip。
// 不同用途前缀的窗口互不共享，管理接口的流量不会占用问答接口的配额。
// 面板路由的租户取自认证中间件注入的上下文，公开路由取查询参数或默认租户。
func RateLimit(limiter *ratelimit.Limiter, purpose string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenantID")
		if tenantID == "" {
			tenantID = c.Query("tenant")
		}
		if tenantID == "" {
			tenantID = config.Conf.Tenancy.DefaultTenant
		}

		if err := limiter.Check(purpose + ":" + tenantID + ":" + c.ClientIP()); err != nil {
			retryAfter := 1
			var limitErr *ratelimit.RateLimitError
			if errors.As(err, &limitErr) {
				if secs := int(limitErr.RetryAfter.Seconds()); secs > retryAfter {
					retryAfter = secs
				}
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Cok fazla istek gonderildi. Lutfen biraz bekleyin.",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
