package handler

import (
	"net/http"

	"rehber-go/internal/model"
	"rehber-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler 处理问答请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// HandleTurn 处理 POST /api/chat/:tenant。
// profile 通过查询参数指定，缺省时使用租户的默认 profile。
func (h *ChatHandler) HandleTurn(c *gin.Context) {
	var req model.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.chatService.HandleTurn(
		c.Request.Context(),
		c.Param("tenant"),
		c.Query("profile"),
		req,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
