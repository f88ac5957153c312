package handler

import (
	"net/http"

	"rehber-go/pkg/database"

	"github.com/gin-gonic/gin"
)

// Health 处理 GET /health，探测数据库连接。
func Health(c *gin.Context) {
	sqlDB, err := database.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}
