package handler

import (
	"net/http"

	"rehber-go/internal/config"
	"rehber-go/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler 处理会话列表、消息记录、重命名与删除。
type SessionHandler struct {
	sessionService service.SessionService
	titleService   service.TitleService
}

// NewSessionHandler 创建一个新的 SessionHandler 实例。
func NewSessionHandler(sessionService service.SessionService, titleService service.TitleService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, titleService: titleService}
}

// tenantOf 解析请求的租户：面板路由从 JWT 中间件注入的上下文取，
// 公开路由接受查询参数，缺省使用配置的默认租户。
func tenantOf(c *gin.Context) string {
	if tenantID := c.GetString("tenantID"); tenantID != "" {
		return tenantID
	}
	if tenantID := c.Query("tenant"); tenantID != "" {
		return tenantID
	}
	return config.Conf.Tenancy.DefaultTenant
}

// Messages 处理 GET /api/:profileKey/messages。
// session_id 缺省时返回用户最近活跃会话的记录。
func (h *SessionHandler) Messages(c *gin.Context) {
	views, err := h.sessionService.Messages(
		c.Request.Context(),
		tenantOf(c),
		c.Param("profileKey"),
		c.Query("user_id"),
		c.Query("session_id"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// ListSessions 处理 GET /api/:profileKey/sessions。
func (h *SessionHandler) ListSessions(c *gin.Context) {
	summaries, err := h.sessionService.ListSessions(
		c.Request.Context(),
		tenantOf(c),
		c.Param("profileKey"),
		c.Query("user_id"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameTitle 处理 POST /api/:profileKey/sessions/:sessionId/title。
// 写入的标题被锁定，后台优化不再覆盖。
func (h *SessionHandler) RenameTitle(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	err := h.titleService.Rename(
		c.Request.Context(),
		tenantOf(c),
		c.Param("profileKey"),
		c.Param("sessionId"),
		req.Title,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteSession 处理 DELETE /api/:profileKey/sessions/:sessionId。
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	err := h.sessionService.Delete(
		c.Request.Context(),
		tenantOf(c),
		c.Param("profileKey"),
		c.Param("sessionId"),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
