package v3

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"millscope/internal/exporter"
	"millscope/internal/service/dashboard"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func exportFilename(now time.Time) string {
	return fmt.Sprintf("millscope_%s.xlsx", now.Format("20060102_150405"))
}

func contentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

// Export 按当前筛选导出 Excel 并直接返回文件
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	file, err := exporter.NewExporter(h.controller).Export(exporter.ExportOptions{})
	if err != nil {
		if errors.Is(err, dashboard.ErrNoData) {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "导出失败: " + err.Error()})
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", contentDisposition(exportFilename(time.Now())))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// ExportStream 导出 Excel（SSE 进度 + 完成后提供下载地址）
// POST /api/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
	fail := func(msg string) {
		send(exportProgressEvent{
			Type:      "error",
			Message:   msg,
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
	}

	snap, err := h.controller.ExportSnapshot()
	if err != nil {
		fail("导出失败: " + err.Error())
		return
	}
	send(exportProgressEvent{
		Type:      "start",
		Message:   "开始导出",
		Data:      map[string]any{"filter": snap.Filter, "records": len(snap.Records)},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	progressFn := func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   p.Message,
			Data:      map[string]any{"percent": p.Percent, "stage": p.Stage, "sheet": p.Sheet},
			Timestamp: time.Now(),
		})
	}

	file, err := exporter.WriteSnapshot(snap, exporter.ExportOptions{Progress: progressFn})
	if err != nil {
		fail("导出失败: " + err.Error())
		return
	}
	defer file.Close()

	now := time.Now()
	tempPath := filepath.Join(h.dirs.exports(), fmt.Sprintf("millscope_export_%d_%d.xlsx", now.UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		fail("写入导出文件失败: " + err.Error())
		_ = os.Remove(tempPath)
		return
	}

	token := h.downloads.put(tempPath, exportFilename(now), 10*time.Minute)
	send(exportProgressEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(item.filename))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}
