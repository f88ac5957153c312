// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"rehber-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// PanelAuthMiddleware 创建一个 Gin 中间件，用于租户管理面板的 JWT 认证。
// 它从请求头中提取 token，验证其有效性，并将租户标识存入 Gin 的上下文中。
func PanelAuthMiddleware(tokenManager *token.PanelTokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := tokenManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		// 面板路由的租户作用域以 token 中的声明为准，忽略查询参数。
		c.Set("tenantID", claims.TenantID)
		c.Next()
	}
}
