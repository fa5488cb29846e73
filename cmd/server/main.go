package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/api/handler"
	"github.com/purelyricky/avashift-com-sub000/internal/api/router"
	"github.com/purelyricky/avashift-com-sub000/internal/notify"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/internal/scheduler"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
	applogger "github.com/purelyricky/avashift-com-sub000/pkg/logger"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("shift_timezone", cfg.Shift.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与审批锁将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 通知分发
	dispatcher := notify.NewDispatcher(
		notify.NewSink(&cfg.Mail, applogger.Component(logger, "notify")),
		cfg.Notify.QueueSize,
		applogger.Component(logger, "notify"),
	)
	dispatcher.Start(cfg.Notify.Workers)

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, dispatcher, logger)
	h := handler.New(svc)

	// 7. 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(&cfg.Scheduler, svc.Verification, svc.Shift, rdb, applogger.Component(logger, "scheduler"))
		if err := sched.Start(); err != nil {
			logger.Fatal("定时任务启动失败", zap.Error(err))
		}
	}

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 先停定时任务，再排空通知队列
	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("定时任务未能按时停止", zap.Error(err))
		}
	}
	if err := dispatcher.Stop(ctx); err != nil {
		logger.Warn("通知队列未能排空", zap.Error(err))
	}

	if err := database.Close(db); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
