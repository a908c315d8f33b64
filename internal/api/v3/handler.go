package v3

import (
	"os"

	"github.com/gin-gonic/gin"

	"millscope/internal/config"
	"millscope/internal/importer"
	"millscope/internal/service/dashboard"
	"millscope/internal/store"
)

// Handler V3 API 处理器
type Handler struct {
	store       *store.Store
	cfg         *config.AppConfig
	controller  *dashboard.Controller
	coordinator *importer.Coordinator
	downloads   *exportDownloadStore
	dirs        Dirs
}

// Dirs 上传与导出文件的落盘目录，为空时使用系统临时目录
type Dirs struct {
	Uploads string
	Exports string
}

func (d Dirs) uploads() string { return orTempDir(d.Uploads) }
func (d Dirs) exports() string { return orTempDir(d.Exports) }

func orTempDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	return dir
}

// NewHandler 创建 V3 API 处理器
func NewHandler(st *store.Store, cfg *config.AppConfig, controller *dashboard.Controller, coordinator *importer.Coordinator, dirs Dirs) *Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handler{
		store:       st,
		cfg:         cfg,
		controller:  controller,
		coordinator: coordinator,
		downloads:   newExportDownloadStore(),
		dirs:        dirs,
	}
}

// RegisterRoutes 注册 V3 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 可用月份
	router.GET("/months", h.ListMonths)

	// 配置
	router.GET("/config", h.GetConfig)

	// 数据导入
	router.POST("/import", h.Import)

	// 明细与完整性
	router.GET("/records", h.ListRecords)
	router.GET("/completeness", h.GetCompleteness)

	// 筛选
	router.GET("/filters", h.GetFilters)
	router.PATCH("/filters", h.UpdateFilters)
	router.POST("/filters/reset", h.ResetFilters)

	// 看板
	router.GET("/dashboard", h.GetDashboard)

	// 数据集备份
	router.GET("/backups", h.ListBackups)
	router.POST("/backups/:id/restore", h.RestoreBackup)

	// 数据导出
	router.POST("/export", h.Export)
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
}
