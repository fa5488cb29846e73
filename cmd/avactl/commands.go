package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/scheduler"
	"github.com/purelyricky/avashift-com-sub000/internal/seed"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
)

// ── migrate ──

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := app.db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, app.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, err := app.db.DB()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(sqlDB, steps, app.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚的版本数")
	cmd.AddCommand(down)

	return cmd
}

// ── create-user ──

func createUserCmd() *cobra.Command {
	var req dto.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "创建账号（学生账号同时建立评分档案）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 与 HTTP 接口共用 binding 规则
			v := validator.New()
			v.SetTagName("binding")
			if err := v.Struct(&req); err != nil {
				return fmt.Errorf("参数校验失败: %w", err)
			}

			svc, dispatcher := app.services()
			defer dispatcher.Stop(app.ctx)

			user, err := svc.User.CreateUser(app.ctx, &req, "")
			if err != nil {
				return err
			}
			fmt.Printf("已创建 %s <%s> role=%s id=%s\n", user.Name, user.Email, user.Role, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "邮箱")
	cmd.Flags().StringVar(&req.Name, "name", "", "姓名")
	cmd.Flags().StringVar(&req.Role, "role", "student", "角色: admin|leader|guard|student|client")
	cmd.Flags().StringVar(&req.Password, "password", "", "初始密码")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("password")
	return cmd
}

// ── seed ──

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "从 YAML 导入账号、项目与成员",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			f, err := seed.Parse(fh)
			if err != nil {
				return err
			}

			svc, dispatcher := app.services()
			defer dispatcher.Stop(app.ctx)

			res, err := seed.NewLoader(svc, app.logger).Apply(app.ctx, f)
			if res != nil {
				fmt.Printf("账号: 新建 %d, 跳过 %d\n项目: 新建 %d, 跳过 %d\n成员: 新增 %d\n",
					res.UsersCreated, res.UsersSkipped, res.ProjectsCreated, res.ProjectsSkipped, res.MembersAdded)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "种子文件路径")
	return cmd
}

// ── sweep ──

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "立即执行一次签到码过期与班次完结任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, dispatcher := app.services()
			defer dispatcher.Stop(app.ctx)

			s := scheduler.New(&app.cfg.Scheduler, svc.Verification, svc.Shift, nil, app.logger)
			if err := s.RunOnce(app.ctx); err != nil {
				return err
			}
			fmt.Println("完成")
			return nil
		},
	}
}
