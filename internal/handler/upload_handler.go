package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemini-chat-server/internal/service"
)

// UploadHandler 处理文件上传请求
// 桩实现：不做真实存储，只返回每个文件的元数据和合成 URL
type UploadHandler struct{}

// NewUploadHandler 创建 UploadHandler 实例
func NewUploadHandler() *UploadHandler {
	return &UploadHandler{}
}

// HandleUpload 处理文件上传
// 路由: POST /api/upload
// 表单字段: files（可多个）
//
// 空文件列表返回 400 {"error": "No files provided"}
// 成功返回 200 {"files": [{id, name, type, size, url}]}
func (h *UploadHandler) HandleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": service.ProcessUploads(files),
	})
}
