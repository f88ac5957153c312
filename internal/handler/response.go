// Package handler 实现了 HTTP 接口层。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"rehber-go/internal/ratelimit"
	"rehber-go/internal/repository"
	"rehber-go/internal/security"
	"rehber-go/internal/service"
	"rehber-go/internal/tenant"
	"rehber-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// respondError 把业务层错误映射为 HTTP 状态码与响应体。
// 未识别的错误一律按 500 处理，细节只进日志不出网。
func respondError(c *gin.Context, err error) {
	var unsafeErr *security.ErrUnsafe
	var limitErr *ratelimit.RateLimitError

	switch {
	case errors.As(err, &unsafeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": unsafeErr.Error()})
	case errors.As(err, &limitErr):
		retryAfter := int(limitErr.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Cok fazla istek gonderildi. Lutfen biraz bekleyin.",
			"retry_after": retryAfter,
		})
	case errors.Is(err, tenant.ErrUnknownTenant), errors.Is(err, tenant.ErrUnknownProfile):
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant or profile not found"})
	case errors.Is(err, repository.ErrInvalidSessionID), errors.Is(err, service.ErrInvalidScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, repository.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, repository.ErrDownloadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found or expired"})
	default:
		log.Errorf("请求处理失败: path=%s err=%v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
