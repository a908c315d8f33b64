package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/config"
)

// ConfigResponse 配置响应
type ConfigResponse struct {
	Workbook config.WorkbookConfig `json:"workbook"` // 工作簿导入参数
	Analysis config.AnalysisConfig `json:"analysis"` // 分析参数
	Stored   map[string]string     `json:"stored"`   // 持久化的键值配置
}

// GetConfig 获取当前生效配置（只读）
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	resp := ConfigResponse{
		Workbook: h.cfg.Workbook,
		Analysis: h.cfg.Analysis,
		Stored:   map[string]string{},
	}
	if h.store != nil {
		all, err := h.store.GetAllConfig()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取配置失败"})
			return
		}
		resp.Stored = all
	}
	c.JSON(http.StatusOK, resp)
}
