package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SlpAus/csd-vote-backend/api"
	"github.com/SlpAus/csd-vote-backend/internal/platform/config"
	"github.com/SlpAus/csd-vote-backend/internal/platform/database"
	"github.com/SlpAus/csd-vote-backend/internal/platform/health"
	"github.com/SlpAus/csd-vote-backend/internal/platform/shutdown"
	"github.com/SlpAus/csd-vote-backend/internal/platform/startup"
	"github.com/SlpAus/csd-vote-backend/internal/vote"
	"github.com/SlpAus/csd-vote-backend/pkg/lifecycle"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env中的变量可以覆盖config.yaml（通过viper的AutomaticEnv）
	if err := godotenv.Load(); err == nil {
		fmt.Println("已加载.env文件。")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("无法加载配置: %v", err))
	}

	database.InitDB(cfg.Database)
	database.InitRedis(cfg.Database.Redis)

	// 阻塞式获取初始Run ID，为后续的Redis重启检测建立基线
	health.InitializeRunID()

	// 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 创建生命周期管理器，启动后台服务
	gracefulMgr := lifecycle.NewManager()

	healthHandle, err := gracefulMgr.NewServiceHandle("redis-health-checker")
	if err != nil {
		panic(err)
	}
	health.StartRedisHealthCheck(healthHandle)

	reconcilerHandle, err := gracefulMgr.NewServiceHandle("vote-reconciler")
	if err != nil {
		panic(err)
	}
	vote.StartReconciler(reconcilerHandle)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := api.SetupRoutes(r, cfg.Ballot); err != nil {
		panic(fmt.Sprintf("无法注册路由: %v", err))
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 阻塞等待停机信号
	coordinator := shutdown.NewCoordinator(gracefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
