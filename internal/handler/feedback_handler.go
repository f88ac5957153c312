package handler

import (
	"net/http"

	"rehber-go/internal/model"
	"rehber-go/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler 处理助手回答的评分。
type FeedbackHandler struct {
	feedbackService service.FeedbackService
}

// NewFeedbackHandler 创建一个新的 FeedbackHandler 实例。
func NewFeedbackHandler(feedbackService service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// Submit 处理 POST /api/:profileKey/feedback。
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	created, err := h.feedbackService.Submit(c.Request.Context(), tenantOf(c), c.Param("profileKey"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := "updated"
	if created {
		status = "created"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
