package v3

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/store"
)

type monthsResponse struct {
	MinMonth string                `json:"minMonth"`
	MaxMonth string                `json:"maxMonth"`
	Items    []store.YearMonthStat `json:"items"`
}

// ListMonths 获取已保存数据集的可用年月
// GET /api/months
func (h *Handler) ListMonths(c *gin.Context) {
	items := []store.YearMonthStat{}
	if h.store != nil {
		stats, err := h.store.ListAvailableYearMonths()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if stats != nil {
			items = stats
		}
	}

	st := h.controller.Status()
	c.JSON(http.StatusOK, monthsResponse{
		MinMonth: st.MinMonth,
		MaxMonth: st.MaxMonth,
		Items:    items,
	})
}
