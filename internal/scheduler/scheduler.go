// Package scheduler 周期性后台任务：过期签到码清理与班次自动完结
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/pkg/metrics"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
)

// 任务名，同时用作指标标签与分布式锁名
const (
	JobExpireCodes    = "expire_codes"
	JobCompleteShifts = "complete_shifts"
)

// jobTimeout 单次任务执行上限
const jobTimeout = 2 * time.Minute

// CodeExpirer 过期签到码清理
type CodeExpirer interface {
	ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error)
}

// ShiftCompleter 结束时间已过的班次置为 completed
type ShiftCompleter interface {
	CompleteEndedShifts(ctx context.Context, now time.Time) (int, error)
}

// Scheduler 基于 cron 的后台任务调度器
// 多实例部署时借助 Redis 锁保证同一时刻只有一个实例执行同名任务
type Scheduler struct {
	cfg    *config.SchedulerConfig
	codes  CodeExpirer
	shifts ShiftCompleter
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
	cron   *cron.Cron
}

// New 创建 Scheduler；rdb 为 nil 时不加锁
func New(cfg *config.SchedulerConfig, codes CodeExpirer, shifts ShiftCompleter, rdb *redis.Client, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		codes:  codes,
		shifts: shifts,
		rdb:    rdb,
		logger: logger,
		now:    time.Now,
	}
}

// cronLogger 把 cron 内部日志转到 zap
// cron 每次唤醒都会打 Info，这里降为 Debug；任务 panic 走 Error
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Start 注册并启动定时任务
func (s *Scheduler) Start() error {
	cl := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)

	if _, err := c.AddFunc(s.cfg.ExpireCodesSpec, func() { s.run(JobExpireCodes) }); err != nil {
		return fmt.Errorf("注册任务 %s 失败: %w", JobExpireCodes, err)
	}
	if _, err := c.AddFunc(s.cfg.CompleteShiftsSpec, func() { s.run(JobCompleteShifts) }); err != nil {
		return fmt.Errorf("注册任务 %s 失败: %w", JobCompleteShifts, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("定时任务已启动",
		zap.String(JobExpireCodes, s.cfg.ExpireCodesSpec),
		zap.String(JobCompleteShifts, s.cfg.CompleteShiftsSpec),
	)
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 立即顺序执行全部任务，供运维命令使用
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range []string{JobExpireCodes, JobCompleteShifts} {
		if err := s.execute(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(job string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if s.rdb != nil {
		lock, err := s.rdb.AcquireLock(ctx, "scheduler:"+job, jobTimeout)
		if errors.Is(err, redis.ErrLockNotAcquired) {
			metrics.SweeperRuns.WithLabelValues(job, "skipped").Inc()
			return
		}
		if err != nil {
			// 锁服务不可用时仍执行，任务本身是幂等的条件更新
			s.logger.Warn("获取任务锁失败", zap.String("job", job), zap.Error(err))
		} else {
			defer lock.Release(context.Background())
		}
	}

	// 单次失败只记录，下个周期重试
	_ = s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job string) error {
	now := s.now()
	var (
		n   int64
		err error
	)
	switch job {
	case JobExpireCodes:
		n, err = s.codes.ExpireStaleCodes(ctx, now)
	case JobCompleteShifts:
		var c int
		c, err = s.shifts.CompleteEndedShifts(ctx, now)
		n = int64(c)
	default:
		return fmt.Errorf("未知任务 %s", job)
	}

	if err != nil {
		metrics.SweeperRuns.WithLabelValues(job, "error").Inc()
		s.logger.Error("定时任务执行失败", zap.String("job", job), zap.Error(err))
		return err
	}
	metrics.SweeperRuns.WithLabelValues(job, "ok").Inc()
	if n > 0 {
		s.logger.Info("定时任务完成", zap.String("job", job), zap.Int64("affected", n))
	}
	return nil
}
