package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-oi-sentry/pkg/types"
)

var testTime = time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

func ce(strike int) types.ContractKey {
	return types.ContractKey{Kind: types.OptionCall, Strike: strike}
}

func pe(strike int) types.ContractKey {
	return types.ContractKey{Kind: types.OptionPut, Strike: strike}
}

func snap(key types.ContractKey, oi int64) types.ContractSnapshot {
	return types.ContractSnapshot{Key: key, OI: oi, LTP: 100.5}
}

func baseline(entries map[types.ContractKey]int64) map[types.ContractKey]types.BaselineEntry {
	b := make(map[types.ContractKey]types.BaselineEntry, len(entries))
	for k, oi := range entries {
		b[k] = types.BaselineEntry{OI: oi}
	}
	return b
}

func TestDetect_NoAlertsBeforeWarmup(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	// 基线里有数据也一样：未预热时任何合约都不触发预警
	prev := baseline(map[types.ContractKey]int64{ce(25000): 1000})
	snapshot := []types.ContractSnapshot{snap(ce(25000), 100000)}

	alerts, newBaseline := sd.Detect(snapshot, prev, false, testTime)

	assert.Empty(t, alerts)
	// 基线仍然要推进
	assert.Equal(t, int64(100000), newBaseline[ce(25000)].OI)
}

func TestDetect_MinBaseOIGuard(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	// 基线900 < 1000：即使增幅巨大也不预警
	prev := baseline(map[types.ContractKey]int64{ce(25000): 900})
	snapshot := []types.ContractSnapshot{snap(ce(25000), 9000)}

	alerts, _ := sd.Detect(snapshot, prev, true, testTime)
	assert.Empty(t, alerts)
}

func TestDetect_StrictThreshold(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)
	prev := baseline(map[types.ContractKey]int64{ce(25000): 1000})

	t.Run("pct equals threshold does not fire", func(t *testing.T) {
		// 1000 → 6000 = 恰好 +500.0%，严格大于才触发
		alerts, _ := sd.Detect([]types.ContractSnapshot{snap(ce(25000), 6000)}, prev, true, testTime)
		assert.Empty(t, alerts)
	})

	t.Run("pct just above threshold fires", func(t *testing.T) {
		// 1000 → 6001 = +500.1%
		alerts, _ := sd.Detect([]types.ContractSnapshot{snap(ce(25000), 6001)}, prev, true, testTime)
		require.Len(t, alerts, 1)
		assert.InDelta(t, 500.1, alerts[0].ChangePct, 0.001)
	})
}

func TestDetect_EndToEndExample(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	prev := baseline(map[types.ContractKey]int64{ce(25000): 1000})
	snapshot := []types.ContractSnapshot{snap(ce(25000), 6500)}

	alerts, newBaseline := sd.Detect(snapshot, prev, true, testTime)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, ce(25000), alert.Key)
	assert.Equal(t, int64(1000), alert.PrevOI)
	assert.Equal(t, int64(6500), alert.CurrentOI)
	assert.InDelta(t, 550.0, alert.ChangePct, 0.001)
	assert.Equal(t, "CE 25000 | +550.0% | 1,000 → 6,500", alert.Message())

	assert.Equal(t, int64(6500), newBaseline[ce(25000)].OI)
}

func TestDetect_DecliningOINeverFires(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	prev := baseline(map[types.ContractKey]int64{ce(25000): 10000})
	alerts, newBaseline := sd.Detect([]types.ContractSnapshot{snap(ce(25000), 2000)}, prev, true, testTime)

	assert.Empty(t, alerts)
	// OI下降时基线同样推进到最新观测值
	assert.Equal(t, int64(2000), newBaseline[ce(25000)].OI)
}

func TestDetect_NewContractNeverFiresOnFirstAppearance(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	// 行权价区间扩大后新出现的合约：prior=0，被min_base_oi挡住
	prev := baseline(map[types.ContractKey]int64{ce(25000): 5000})
	snapshot := []types.ContractSnapshot{
		snap(ce(25000), 5000),
		snap(pe(25100), 80000),
	}

	alerts, newBaseline := sd.Detect(snapshot, prev, true, testTime)

	assert.Empty(t, alerts)
	assert.Equal(t, int64(80000), newBaseline[pe(25100)].OI)
}

func TestDetect_DroppedContractRemovedFromBaseline(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	prev := baseline(map[types.ContractKey]int64{
		ce(25000): 5000,
		ce(25500): 3000, // 本次快照中不存在（移出监控区间）
	})
	snapshot := []types.ContractSnapshot{snap(ce(25000), 5000)}

	_, newBaseline := sd.Detect(snapshot, prev, true, testTime)

	assert.Contains(t, newBaseline, ce(25000))
	assert.NotContains(t, newBaseline, ce(25500))
}

func TestDetect_IdenticalSnapshotIsIdempotent(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	snapshot := []types.ContractSnapshot{
		snap(ce(25000), 6500),
		snap(pe(25000), 4200),
	}

	// 第一轮：对旧基线可能触发预警
	prev := baseline(map[types.ContractKey]int64{ce(25000): 1000, pe(25000): 4200})
	alerts1, newBaseline := sd.Detect(snapshot, prev, true, testTime)
	require.Len(t, alerts1, 1)

	// 第二轮：快照完全没变，pct=0，不应产生任何新预警
	alerts2, _ := sd.Detect(snapshot, newBaseline, true, testTime.Add(time.Minute))
	assert.Empty(t, alerts2)
}

func TestDetect_CallAndPutAreDistinctContracts(t *testing.T) {
	sd := NewSpikeDetector(1000, 500)

	prev := baseline(map[types.ContractKey]int64{
		ce(25000): 1000,
		pe(25000): 1000,
	})
	snapshot := []types.ContractSnapshot{
		snap(ce(25000), 9000), // +800%
		snap(pe(25000), 1100), // +10%
	}

	alerts, _ := sd.Detect(snapshot, prev, true, testTime)

	require.Len(t, alerts, 1)
	assert.Equal(t, types.OptionCall, alerts[0].Key.Kind)
}

func TestBuildTable(t *testing.T) {
	prev := baseline(map[types.ContractKey]int64{ce(25000): 1000})
	snapshot := []types.ContractSnapshot{
		snap(ce(25000), 2000),
		snap(pe(25000), 500), // 基线中不存在
	}

	rows := BuildTable(snapshot, prev)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(2000), rows[0].OINow)
	assert.Equal(t, int64(1000), rows[0].OIPrev)
	assert.InDelta(t, 100.0, rows[0].ChangePct, 0.001)

	// 没有基线的行 pct=0
	assert.Equal(t, int64(0), rows[1].OIPrev)
	assert.Equal(t, 0.0, rows[1].ChangePct)
}
