package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/service/dashboard"
)

// GetFilters 获取筛选状态与级联可选项
// GET /api/filters
func (h *Handler) GetFilters(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Filters())
}

// UpdateFilters 局部更新筛选条件
// PATCH /api/filters
//
// 日期非法时整个请求被拒绝，筛选状态不变。
func (h *Handler) UpdateFilters(c *gin.Context) {
	var patch dashboard.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}
	view, err := h.controller.Update(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// ResetFilters 重置为全量筛选
// POST /api/filters/reset
func (h *Handler) ResetFilters(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.ResetFilters())
}
