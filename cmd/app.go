package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"nifty-oi-sentry/internal/analyzer"
	"nifty-oi-sentry/internal/fetcher"
	"nifty-oi-sentry/internal/journal"
	"nifty-oi-sentry/internal/notifier"
	"nifty-oi-sentry/internal/presenter"
	"nifty-oi-sentry/internal/scanner"
	"nifty-oi-sentry/internal/scheduler"
	"nifty-oi-sentry/internal/storage"
	"nifty-oi-sentry/pkg/types"
)

// App 应用程序管理器
type App struct {
	config   *types.Config
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	finished chan struct{} // 单次模式下扫描完成后关闭

	journalManager *journal.Manager
}

// NewApp 创建应用程序实例
func NewApp(config *types.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
	}
}

// Start 启动应用程序
func (app *App) Start() {
	zap.L().Info("🚀 NIFTY OI Sentry 启动中...")

	// 会话状态（基线 + 预热标记 + 交易日重置）
	sessionState := storage.NewSessionState(app.config.Redis, app.config.Market.Timezone)

	// Fyers行情客户端
	dataProvider := fetcher.NewFyersClient(app.config.Fyers, app.config.Market, app.config.Network, app.config.Scan.CacheTTL)

	// 根据配置选择通知服务（优先级：钉钉 > PushPlus > 控制台）
	var notifyService notifier.Interface
	if app.config.DingTalk.WebhookURL != "" {
		notifyService = notifier.NewDingTalkNotifier(app.config.DingTalk.WebhookURL, app.config.DingTalk.Secret)
	} else if app.config.PushPlus.UserToken != "" {
		notifyService = notifier.NewPushPlusNotifier(app.config.PushPlus.UserToken, app.config.PushPlus.To)
	} else {
		notifyService = notifier.NewConsoleNotifier()
	}

	// 可选的MySQL预警归档
	var alertJournal scanner.Journal
	if app.config.Database.MySQL.Host != "" {
		manager, err := journal.NewManager(app.config.Database.MySQL)
		if err != nil {
			zap.L().Warn("⚠️ MySQL预警归档初始化失败，归档功能关闭", zap.Error(err))
		} else {
			app.journalManager = manager
			alertJournal = manager

			// 启动时回显最近的归档预警，方便确认归档链路正常
			if records, err := manager.RecentAlerts(5); err != nil {
				zap.L().Warn("⚠️ 查询历史归档预警失败", zap.Error(err))
			} else if len(records) > 0 {
				zap.L().Info("🗂 最近归档预警", zap.Int("count", len(records)))
				for _, record := range records {
					zap.L().Info("  历史预警",
						zap.String("contract", fmt.Sprintf("%s %d", record.OptionKind, record.Strike)),
						zap.Float64("change_pct", record.ChangePct),
						zap.Time("alert_time", record.AlertTime))
				}
			}
		}
	}

	spikeDetector := analyzer.NewSpikeDetector(app.config.Alert.MinBaseOI, app.config.Alert.SpikeThresholdPct)
	alertLedger := analyzer.NewAlertLedger(app.config.Alert.MaxHistory)

	scanPipeline := scanner.NewScanner(dataProvider, sessionState, spikeDetector, alertLedger, alertJournal, app.config.Market)
	taskScheduler := scheduler.NewScheduler(scanPipeline, presenter.New(), notifyService, app.config.Scan.Interval, app.config.Scan.Once)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		taskScheduler.Start(app.ctx)
		if app.config.Scan.Once {
			close(app.finished)
		}
	}()

	zap.L().Info("✅ NIFTY OI Sentry 已启动")
}

// Stop 停止应用程序
func (app *App) Stop() {
	zap.L().Info("🛑 正在优雅关闭...")
	app.cancel()

	// 等待所有goroutine结束，最多等待30秒
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		zap.L().Warn("⚠️ 强制关闭超时")
	}

	if app.journalManager != nil {
		if err := app.journalManager.Close(); err != nil {
			zap.L().Warn("⚠️ 关闭MySQL连接失败", zap.Error(err))
		}
	}

	zap.L().Info("✅ NIFTY OI Sentry 已安全关闭")
}

// WaitForShutdown 等待关闭信号或单次扫描完成
func (app *App) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zap.L().Info("🛑 收到停止信号")
	case <-app.finished:
	}
}
