package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"millscope/internal/api/v3"
	"millscope/internal/calculator"
	"millscope/internal/config"
	"millscope/internal/importer"
	"millscope/internal/service/backup"
	"millscope/internal/service/dashboard"
	"millscope/internal/store"
)

// Server HTTP服务器
type Server struct {
	router     *gin.Engine
	store      *store.Store
	controller *dashboard.Controller
	registry   *prometheus.Registry
	v3         *v3.Handler
}

// NewServer 创建服务器：打开 SQLite、注册指标并装配看板控制器
func NewServer(cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	sqliteStore, err := store.New(config.GetDataPath(cfg, "", "millscope.db"))
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coordinator := importer.NewCoordinator(sqliteStore, importer.Settings{
		ExcludedEstates:     cfg.Workbook.ExcludedEstates,
		MappingHeaderOffset: cfg.Workbook.MappingHeaderOffset,
	}, importer.NewMetrics(registry))
	calc := calculator.NewCalculator(calculator.Options{
		TargetOER:     cfg.Analysis.TargetOER,
		RollingMonths: cfg.Analysis.RollingMonths,
		PerformerRows: cfg.Analysis.PerformerRows,
	})
	controller := dashboard.NewController(sqliteStore, coordinator, calc)
	if cfg.Data.AutoBackup {
		backups, err := backup.NewManager(config.GetDataPath(cfg, "backups", ""), backup.DefaultKeep)
		if err != nil {
			_ = sqliteStore.Close()
			return nil, fmt.Errorf("初始化备份目录失败: %w", err)
		}
		controller.SetBackups(backups)
	}

	dirs := v3.Dirs{
		Uploads: config.GetDataPath(cfg, "uploads", ""),
		Exports: config.GetDataPath(cfg, "exports", ""),
	}
	s := &Server{
		router:     gin.Default(),
		store:      sqliteStore,
		controller: controller,
		registry:   registry,
		v3:         v3.NewHandler(sqliteStore, cfg, controller, coordinator, dirs),
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
	s.router.Use(newHTTPMetrics(s.registry).middleware)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	s.router.GET("/healthz", func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V3 API 路由
	api := s.router.Group("/api")
	{
		s.v3.RegisterRoutes(api)
	}
}

// httpMetrics 按路由统计请求数与耗时
type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "millscope",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "millscope",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "millscope",
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "In-flight HTTP requests.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.active)
	return m
}

func (m *httpMetrics) middleware(c *gin.Context) {
	m.active.Inc()
	defer m.active.Dec()

	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
}

// Handler 返回 http.Handler（测试与自定义监听使用）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Controller 返回看板控制器
func (s *Server) Controller() *dashboard.Controller {
	return s.controller
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭数据库
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
