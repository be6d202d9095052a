package analyzer

import (
	"time"

	"nifty-oi-sentry/pkg/types"
)

// SpikeDetector OI异动检测器：把新快照和基线逐合约对比，产出预警和新基线
type SpikeDetector struct {
	minBaseOI    int64
	thresholdPct float64
}

func NewSpikeDetector(minBaseOI int64, thresholdPct float64) *SpikeDetector {
	return &SpikeDetector{
		minBaseOI:    minBaseOI,
		thresholdPct: thresholdPct,
	}
}

// Detect 对比快照与基线。返回触发的预警和整体替换用的新基线。
//
// 预警规则（缺一不可）：
//   - 已完成预热（首次扫描只建基线，没有可对比的"上一次"）
//   - 基线OI >= minBaseOI（小基数的百分比没有意义，也顺带排除了除零）
//   - 当前OI > 基线OI
//   - 增幅百分比严格大于阈值
//
// 不论是否触发预警，新基线一律推进到本次观测值；
// 基线中存在但本次快照缺失的合约（移出监控区间）直接丢弃，不携带旧数据。
func (sd *SpikeDetector) Detect(snapshot []types.ContractSnapshot, baseline map[types.ContractKey]types.BaselineEntry, warmedUp bool, now time.Time) ([]*types.AlertEvent, map[types.ContractKey]types.BaselineEntry) {
	alerts := make([]*types.AlertEvent, 0)
	newBaseline := make(map[types.ContractKey]types.BaselineEntry, len(snapshot))

	for _, contract := range snapshot {
		prev := baseline[contract.Key] // 新出现的合约 prev.OI == 0，不会触发预警

		if warmedUp && prev.OI >= sd.minBaseOI && contract.OI > prev.OI {
			pct := float64(contract.OI-prev.OI) / float64(prev.OI) * 100
			if pct > sd.thresholdPct {
				alerts = append(alerts, &types.AlertEvent{
					Time:      now,
					Key:       contract.Key,
					PrevOI:    prev.OI,
					CurrentOI: contract.OI,
					ChangePct: pct,
				})
			}
		}

		newBaseline[contract.Key] = types.BaselineEntry{OI: contract.OI, LTP: contract.LTP}
	}

	return alerts, newBaseline
}

// BuildTable 生成监控表格行（展示用）。基线OI>0时附带增幅百分比
func BuildTable(snapshot []types.ContractSnapshot, baseline map[types.ContractKey]types.BaselineEntry) []types.TableRow {
	rows := make([]types.TableRow, 0, len(snapshot))
	for _, contract := range snapshot {
		prev := baseline[contract.Key]

		pct := 0.0
		if prev.OI > 0 {
			pct = float64(contract.OI-prev.OI) / float64(prev.OI) * 100
		}

		rows = append(rows, types.TableRow{
			Kind:      contract.Key.Kind,
			Strike:    contract.Key.Strike,
			OINow:     contract.OI,
			OIPrev:    prev.OI,
			ChangePct: pct,
			LTP:       contract.LTP,
		})
	}
	return rows
}
