// avactl 运维命令行：数据库迁移、账号创建、种子导入与定时任务手动执行
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/notify"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
	applogger "github.com/purelyricky/avashift-com-sub000/pkg/logger"
)

// App 命令共享的依赖
type App struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *zap.Logger
	ctx    context.Context
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "avactl",
		Short:         "Ava Shift 运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if app.db != nil {
				database.Close(app.db)
			}
			app.logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// initApp 加载配置、日志并连接数据库
func initApp() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}

	app = &App{cfg: cfg, db: db, logger: logger, ctx: context.Background()}
	return nil
}

// services 组装业务层；命令行场景不使用 Redis，通知同步写日志
func (a *App) services() (*service.Service, *notify.Dispatcher) {
	dispatcher := notify.NewDispatcher(notify.NewLogSink(a.logger), a.cfg.Notify.QueueSize, a.logger)
	dispatcher.Start(1)
	repo := repository.NewRepository(a.db)
	return service.NewService(a.cfg, repo, jwt.NewManager(&a.cfg.Auth), nil, dispatcher, a.logger), dispatcher
}
