package handler

import (
	"net/http"
	"time"

	"rehber-go/internal/repository"
	"rehber-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

const presignExpiry = 10 * time.Minute

// DownloadHandler 把临时下载名解析为对象存储的预签名地址。
type DownloadHandler struct {
	downloadRepo repository.DownloadRepository
}

// NewDownloadHandler 创建一个新的 DownloadHandler 实例。
func NewDownloadHandler(downloadRepo repository.DownloadRepository) *DownloadHandler {
	return &DownloadHandler{downloadRepo: downloadRepo}
}

// Serve 处理 GET /downloads/:fileName。
// 凭据有效时 302 到预签名地址，过期或不存在返回 404。
func (h *DownloadHandler) Serve(c *gin.Context) {
	entry, err := h.downloadRepo.Get(c.Request.Context(), c.Param("fileName"))
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := storage.GetPresignedURL(c.Request.Context(), entry.ObjectKey, presignExpiry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
