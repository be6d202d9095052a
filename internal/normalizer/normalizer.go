package normalizer

import (
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"nifty-oi-sentry/pkg/types"
)

// ErrNoStrikes 两轮过滤后没有任何行权价落在监控区间内
var ErrNoStrikes = errors.New("no strikes in range")

// Normalize 把期权链原始行清洗成合约快照集合：
//  1. 按到期日符号片段过滤；全部过滤掉时回退使用原始集合
//     （供应商符号格式漂移不应导致监控表静默变空）
//  2. 按 [atm-range, atm+range] 行权价窗口过滤
//  3. OI取整为非负整数，LTP保留浮点；无法解析的行直接丢弃
func Normalize(rows []types.OptionRow, atmStrike int, expiryTag string, rangePoints int) ([]types.ContractSnapshot, error) {
	filtered := filterByExpiry(rows, expiryTag)
	if len(filtered) == 0 {
		zap.L().Warn("⚠️ 到期日过滤无结果，回退使用全部行权价", zap.String("expiry_tag", expiryTag))
		filtered = rows
	}

	low := float64(atmStrike - rangePoints)
	high := float64(atmStrike + rangePoints)

	snapshots := make([]types.ContractSnapshot, 0, len(filtered))
	dropped := 0
	for _, row := range filtered {
		if row.StrikePrice < low || row.StrikePrice > high {
			continue
		}

		snapshot, ok := toSnapshot(row)
		if !ok {
			dropped++
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	if dropped > 0 {
		zap.L().Debug("丢弃无法解析的期权链行", zap.Int("dropped", dropped))
	}

	if len(snapshots) == 0 {
		return nil, ErrNoStrikes
	}
	return snapshots, nil
}

func filterByExpiry(rows []types.OptionRow, expiryTag string) []types.OptionRow {
	if expiryTag == "" {
		return rows
	}

	matched := make([]types.OptionRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(row.Symbol, expiryTag) {
			matched = append(matched, row)
		}
	}
	return matched
}

// toSnapshot 单行清洗。行权价/OI/LTP为负或非有限值的行视为脏数据
func toSnapshot(row types.OptionRow) (types.ContractSnapshot, bool) {
	kind := types.OptionKind(strings.ToUpper(strings.TrimSpace(row.OptionType)))
	if kind != types.OptionCall && kind != types.OptionPut {
		return types.ContractSnapshot{}, false
	}

	if !isFinite(row.StrikePrice) || row.StrikePrice <= 0 {
		return types.ContractSnapshot{}, false
	}
	if !isFinite(row.OI) || row.OI < 0 {
		return types.ContractSnapshot{}, false
	}
	if !isFinite(row.LTP) || row.LTP < 0 {
		return types.ContractSnapshot{}, false
	}

	return types.ContractSnapshot{
		Key: types.ContractKey{Kind: kind, Strike: int(math.Round(row.StrikePrice))},
		OI:  int64(math.Round(row.OI)),
		LTP: row.LTP,
	}, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
