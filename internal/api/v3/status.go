package v3

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/service/dashboard"
	"millscope/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	dashboard.Status
	LastImport *store.ImportLog `json:"lastImport,omitempty"` // 最近一次导入
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{Status: h.controller.Status()}
	if h.store != nil {
		last, err := h.store.LatestImportLog()
		if err != nil {
			log.Printf("读取导入日志失败: %v", err)
		}
		resp.LastImport = last
	}
	c.JSON(http.StatusOK, resp)
}
