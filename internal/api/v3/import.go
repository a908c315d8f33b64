package v3

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"millscope/internal/importer"
	"millscope/internal/service/dashboard"
)

// Import 上传工作簿并执行管道 (SSE 流式响应)
// POST /api/import
//
// 管道成功时数据集替换当前看板数据，失败时保留原数据。
func (h *Handler) Import(c *gin.Context) {
	if h.coordinator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "导入功能不可用"})
		return
	}

	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	tempFilePath := filepath.Join(h.dirs.uploads(), fmt.Sprintf("millscope_import_%d_%s", time.Now().UnixNano(), filepath.Base(uploadedFile.Filename)))
	if err := c.SaveUploadedFile(uploadedFile, tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}
	defer os.Remove(tempFilePath)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	progressChan := h.coordinator.Import(c.Request.Context(), importer.ImportOptions{
		FilePath:   tempFilePath,
		SourceName: uploadedFile.Filename,
	})

	for event := range progressChan {
		if event.Type == "done" {
			if res, ok := event.Data.(*importer.ImportResult); ok && res.Dataset != nil {
				h.controller.Load(res.Dataset, dashboard.SourceUpload)
			}
		}

		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
