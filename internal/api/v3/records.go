package v3

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/model"
	"millscope/internal/service/dashboard"
)

type recordsResponse struct {
	Total int                   `json:"total"`
	Items []*model.MergedRecord `json:"items"`
}

// ListRecords 获取筛选后的明细记录，scope=all 时返回全部记录
// GET /api/records
func (h *Handler) ListRecords(c *gin.Context) {
	var items []*model.MergedRecord
	if c.Query("scope") == "all" {
		items = h.controller.AllRecords()
	} else {
		items = h.controller.Records()
	}
	if items == nil {
		items = []*model.MergedRecord{}
	}
	c.JSON(http.StatusOK, recordsResponse{Total: len(items), Items: items})
}

// GetCompleteness 获取数据完整性报告
// GET /api/completeness
func (h *Handler) GetCompleteness(c *gin.Context) {
	report, err := h.controller.Completeness()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetDashboard 计算当前筛选下的全部看板数据
// GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	dash, err := h.controller.Dashboard()
	if err != nil {
		respondError(c, err)
		return
	}
	roundIndicatorGroupsInPlace(dash.Indicators)
	c.JSON(http.StatusOK, dash)
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, dashboard.ErrNoData) {
		c.JSON(http.StatusNotFound, gin.H{"error": "尚未加载数据，请先上传工作簿"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
