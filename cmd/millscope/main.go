package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"millscope/internal/config"
	"millscope/internal/server"
	"millscope/internal/service/dashboard"
	"millscope/internal/util"
)

var (
	port     = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode  = flag.Bool("dev", false, "开发模式")
	dataDir  = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	workbook = flag.String("workbook", "", "默认工作簿路径 (覆盖配置文件)")
	open     = flag.Bool("open", false, "启动后在浏览器中打开状态页")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Millscope - OER / HFC 分析看板服务")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *workbook != "" {
		cfg.Workbook.DefaultPath = *workbook
	}

	if !info.PortSpecified {
		if p, err := util.FindAvailablePort(cfg.Server.Port, 20); err == nil {
			cfg.Server.Port = p
		}
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	defer srv.Close()

	// 启动时加载数据：默认工作簿优先，其次为上次保存的快照
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	source, err := srv.Controller().LoadDefault(ctx, cfg.Workbook.DefaultPath)
	cancel()
	switch {
	case err == nil:
		st := srv.Controller().Status()
		fmt.Printf("已加载数据 (%s): %s，%d 条记录，%d 个厂\n", source, st.SourceFile, st.Records, st.Estates)
	case errors.Is(err, dashboard.ErrNoSource):
		fmt.Println("未找到可用数据，请通过 POST /api/import 上传工作簿")
	default:
		log.Printf("加载数据失败: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d/api/status", cfg.Server.Port)

	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	if *open {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("状态页: %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
}
