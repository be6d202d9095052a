package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"nifty-oi-sentry/internal/fetcher"
	"nifty-oi-sentry/internal/normalizer"
	"nifty-oi-sentry/internal/notifier"
	"nifty-oi-sentry/internal/presenter"
	"nifty-oi-sentry/internal/scanner"
)

// Scheduler 扫描调度器：按固定间隔触发扫描，或在手动模式下只跑一次。
// 时间调度只决定"何时扫"，扫描本身的状态语义全部在scanner里。
type Scheduler struct {
	scanner   *scanner.Scanner
	presenter *presenter.Presenter
	notifier  notifier.Interface
	interval  time.Duration
	once      bool
}

func NewScheduler(scn *scanner.Scanner, pres *presenter.Presenter, notify notifier.Interface, interval time.Duration, once bool) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		scanner:   scn,
		presenter: pres,
		notifier:  notify,
		interval:  interval,
		once:      once,
	}
}

// Start 启动调度循环，ctx取消后返回
func (s *Scheduler) Start(ctx context.Context) {
	if s.once {
		zap.L().Info("▶️ 手动模式：执行单次扫描")
		s.runScan(ctx)
		return
	}

	zap.L().Info("🚀 调度器启动", zap.Duration("interval", s.interval))

	// 对齐到下一个整间隔时间点再进入循环
	next := s.nextAlignedTime(time.Now())
	zap.L().Info("⏳ 等待同步到整点时间", zap.String("next", next.Format("15:04:05")))

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Until(next)):
	}

	for {
		s.runScan(ctx)

		next := s.nextAlignedTime(time.Now())
		select {
		case <-ctx.Done():
			zap.L().Info("📴 调度器已停止")
			return
		case <-time.After(time.Until(next)):
		}
	}
}

// runScan 执行一次扫描并把结果交给展示层和通知层
func (s *Scheduler) runScan(ctx context.Context) {
	result, err := s.scanner.Scan(ctx)
	if err != nil {
		switch {
		case errors.Is(err, fetcher.ErrUnavailable):
			zap.L().Warn("⚠️ 行情数据不可用，本次扫描作废")
		case errors.Is(err, normalizer.ErrNoStrikes):
			zap.L().Warn("⚠️ 监控区间内没有行权价，本次扫描作废")
		default:
			zap.L().Error("❌ 扫描失败", zap.Error(err))
		}
		return
	}

	s.presenter.Render(result)

	if len(result.NewAlerts) > 0 {
		if err := s.notifier.SendBatchAlerts(result.NewAlerts); err != nil {
			zap.L().Warn("⚠️ 发送预警通知失败", zap.Error(err))
		}
	}
}

// nextAlignedTime 计算下一个与扫描间隔对齐的时间点
func (s *Scheduler) nextAlignedTime(now time.Time) time.Time {
	return now.Truncate(s.interval).Add(s.interval)
}
