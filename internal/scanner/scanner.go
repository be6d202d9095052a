package scanner

import (
	"context"
	"math"

	"go.uber.org/zap"
	"nifty-oi-sentry/internal/analyzer"
	"nifty-oi-sentry/internal/fetcher"
	"nifty-oi-sentry/internal/normalizer"
	"nifty-oi-sentry/internal/storage"
	"nifty-oi-sentry/pkg/types"
)

// MarketDataProvider 行情数据提供方（现货报价 + 期权链）
type MarketDataProvider interface {
	GetSpot(ctx context.Context) (float64, error)
	GetOptionChain(ctx context.Context) ([]types.OptionRow, []types.ExpiryInfo, error)
}

// Journal 预警流水归档（可选协作方）
type Journal interface {
	SaveAlerts(alerts []*types.AlertEvent) error
}

// Scanner 单次扫描流水线：
// 交易日重置 → 现货/期权链抓取 → 归一化 → OI异动检测 → 基线原子提交 → 台账合并。
// 提交点之前的任何失败都不会改动基线、台账和预热状态。
type Scanner struct {
	provider MarketDataProvider
	session  *storage.SessionState
	detector *analyzer.SpikeDetector
	ledger   *analyzer.AlertLedger
	journal  Journal // 可为nil

	strikeStep        int
	strikeRangePoints int
}

func NewScanner(provider MarketDataProvider, session *storage.SessionState, detector *analyzer.SpikeDetector, ledger *analyzer.AlertLedger, journal Journal, marketConfig types.MarketConfig) *Scanner {
	return &Scanner{
		provider:          provider,
		session:           session,
		detector:          detector,
		ledger:            ledger,
		journal:           journal,
		strikeStep:        marketConfig.StrikeStep,
		strikeRangePoints: marketConfig.StrikeRangePoints,
	}
}

// Scan 执行一次完整扫描。
// 返回 fetcher.ErrUnavailable / normalizer.ErrNoStrikes 时本次扫描作废，所有状态保持原样。
func (s *Scanner) Scan(ctx context.Context) (*types.ScanResult, error) {
	now := s.session.Now()

	// 重置策略先于任何数据抓取执行：新交易日的首次扫描必须从零建基线
	if s.session.MaybeReset(now) {
		s.ledger.Clear()
	}

	spot, err := s.provider.GetSpot(ctx)
	if err != nil {
		zap.L().Error("❌ 获取现货价格失败", zap.Error(err))
		return nil, err
	}

	atm := int(math.Round(spot/float64(s.strikeStep))) * s.strikeStep

	rows, expiries, err := s.provider.GetOptionChain(ctx)
	if err != nil {
		zap.L().Error("❌ 获取期权链失败", zap.Error(err))
		return nil, err
	}

	expiry := fetcher.ResolveWeeklyExpiry(expiries, now)
	expiryTag := fetcher.ExpiryToSymbolTag(expiry)
	if expiryTag == "" {
		expiryTag = expiry
	}

	snapshot, err := normalizer.Normalize(rows, atm, expiryTag, s.strikeRangePoints)
	if err != nil {
		zap.L().Warn("⚠️ 监控区间内没有行权价", zap.Int("atm", atm), zap.String("expiry", expiry))
		return nil, err
	}

	warmedUp := s.session.WarmedUp()
	baseline := s.session.BaselineView()

	alerts, newBaseline := s.detector.Detect(snapshot, baseline, warmedUp, now)
	table := analyzer.BuildTable(snapshot, baseline)

	// 提交点：基线整体替换 + 预热标记推进
	s.session.CommitBaseline(newBaseline)

	newAlerts := s.ledger.Merge(alerts)

	if s.journal != nil && len(newAlerts) > 0 {
		if err := s.journal.SaveAlerts(newAlerts); err != nil {
			zap.L().Warn("⚠️ 预警流水归档失败", zap.Error(err))
		}
	}

	zap.L().Info("✅ 扫描完成",
		zap.Float64("spot", spot),
		zap.Int("atm", atm),
		zap.String("expiry", expiry),
		zap.Int("contracts", len(snapshot)),
		zap.Int("new_alerts", len(newAlerts)))

	return &types.ScanResult{
		ScanTime:  now,
		Spot:      spot,
		ATMStrike: atm,
		Expiry:    expiry,
		Table:     table,
		NewAlerts: newAlerts,
		History:   s.ledger.Recent(),
		WarmedUp:  warmedUp,
	}, nil
}
