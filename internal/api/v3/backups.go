package v3

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"millscope/internal/service/backup"
)

// ListBackups 列出数据集备份
// GET /api/backups
func (h *Handler) ListBackups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.controller.Backups()})
}

// RestoreBackup 从备份恢复数据集
// POST /api/backups/:id/restore
func (h *Handler) RestoreBackup(c *gin.Context) {
	if err := h.controller.RestoreBackup(c.Param("id")); err != nil {
		if errors.Is(err, backup.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "备份不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.controller.Status())
}
