// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imsheet-go/internal/config"
	"imsheet-go/internal/handler"
	"imsheet-go/internal/middleware"
	"imsheet-go/internal/repository"
	"imsheet-go/internal/service"
	"imsheet-go/pkg/database"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/storage"
	"imsheet-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 打开本地目录数据库
	db, err := database.Open(filepath.Join(cfg.Data.Dir, "images.db"))
	if err != nil {
		log.Fatalf("本地目录数据库打开失败: %v", err)
	}
	defer db.Close()

	// 4. 构建存储客户端，凭证未配置时为空，等待 UI 提交配置
	var store storage.Client
	if cosCfg := config.GetCos(); cosCfg.Ready() {
		client, err := storage.New(cosCfg)
		if err != nil {
			log.Fatalf("存储客户端初始化失败: %v", err)
		}
		store = client
		log.Infow("存储客户端已就绪", "bucket", cosCfg.Bucket, "region", cosCfg.Region)
	} else {
		log.Warnf("对象存储凭证未配置，等待通过 set-config 下发")
	}
	env := service.NewEnv(store)

	// 5. 初始化 Repository
	imageRepo := repository.NewImageRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenExpireHours)
	hub := service.NewProgressHub()
	syncService := service.NewSyncService(env, db, statsRepo)
	imageService := service.NewImageService(env, syncService, imageRepo, statsRepo, db, hub)
	defer imageService.Close()
	configService := service.NewConfigService(env)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.GET("/token", handler.NewAuthHandler(jwtManager).Token)
		}

		// 进度流的令牌走查询参数，由 handler 自行校验
		apiV1.GET("/ws/progress", handler.NewProgressHandler(hub, jwtManager).Handle)

		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			configHandler := handler.NewConfigHandler(configService)
			authed.GET("/config", configHandler.Get)
			authed.PUT("/config", configHandler.Set)

			catalogHandler := handler.NewCatalogHandler(imageService, configService)
			authed.POST("/catalog/check", catalogHandler.Check)
			authed.POST("/catalog/create", catalogHandler.Create)
			authed.POST("/catalog/pull", catalogHandler.Pull)

			imageHandler := handler.NewImageHandler(imageService)
			authed.POST("/images", imageHandler.Upload)
			authed.GET("/images", imageHandler.List)
			authed.GET("/images/count", imageHandler.Count)
			authed.PUT("/images/:id/state", imageHandler.ChangeState)
			authed.DELETE("/images/:id", imageHandler.Delete)
			authed.DELETE("/trash", imageHandler.PurgeTrash)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
