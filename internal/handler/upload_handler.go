package handler

import (
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// Upload 上传文件（multipart 表单，字段名 file）
// POST /api/v1/uploads
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, 400, "file field is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer src.Close()

	result, err := h.uploadService.Save(c.Request.Context(), file.Filename, src, file.Size)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteUpload 删除已上传文件
// DELETE /api/v1/uploads?key=xxx
func (h *Handler) DeleteUpload(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.Fail(c, 400, "key query parameter is required")
		return
	}
	if err := h.uploadService.Delete(c.Request.Context(), key); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "file deleted", nil)
}
