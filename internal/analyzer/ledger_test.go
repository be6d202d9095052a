package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-oi-sentry/pkg/types"
)

func alertAt(strike int, currentOI int64, t time.Time) *types.AlertEvent {
	return &types.AlertEvent{
		Time:      t,
		Key:       types.ContractKey{Kind: types.OptionCall, Strike: strike},
		PrevOI:    1000,
		CurrentOI: currentOI,
		ChangePct: float64(currentOI-1000) / 1000 * 100,
	}
}

func TestLedger_MergeDeduplicatesByMessage(t *testing.T) {
	ledger := NewAlertLedger(50)
	now := time.Now()

	first := ledger.Merge([]*types.AlertEvent{alertAt(25000, 7000, now)})
	require.Len(t, first, 1)
	assert.Equal(t, 1, ledger.Len())

	// 相同的 合约/基线/当前OI/增幅 → 消息相同 → 不再入账
	second := ledger.Merge([]*types.AlertEvent{alertAt(25000, 7000, now.Add(time.Minute))})
	assert.Empty(t, second)
	assert.Equal(t, 1, ledger.Len())

	// OI变了 → 消息不同 → 正常入账
	third := ledger.Merge([]*types.AlertEvent{alertAt(25000, 8000, now.Add(2*time.Minute))})
	assert.Len(t, third, 1)
	assert.Equal(t, 2, ledger.Len())
}

func TestLedger_BoundedEvictsOldestFirst(t *testing.T) {
	ledger := NewAlertLedger(5)
	now := time.Now()

	for i := 0; i < 8; i++ {
		ledger.Merge([]*types.AlertEvent{alertAt(25000+i*50, int64(7000+i), now.Add(time.Duration(i)*time.Minute))})
	}

	assert.Equal(t, 5, ledger.Len())

	// 保留的是最近5条，最旧的3条被淘汰
	recent := ledger.Recent()
	require.Len(t, recent, 5)
	for i, alert := range recent {
		expectedStrike := 25000 + (7-i)*50
		assert.Equal(t, expectedStrike, alert.Key.Strike, fmt.Sprintf("position %d", i))
	}
}

func TestLedger_EvictedMessageCanReenter(t *testing.T) {
	ledger := NewAlertLedger(2)
	now := time.Now()

	evictee := alertAt(25000, 7000, now)
	ledger.Merge([]*types.AlertEvent{evictee})
	ledger.Merge([]*types.AlertEvent{alertAt(25050, 7001, now)})
	ledger.Merge([]*types.AlertEvent{alertAt(25100, 7002, now)})
	assert.Equal(t, 2, ledger.Len())

	// 被淘汰后同样的消息应当可以重新入账
	readmitted := ledger.Merge([]*types.AlertEvent{alertAt(25000, 7000, now.Add(time.Hour))})
	assert.Len(t, readmitted, 1)
}

func TestLedger_RecentIsMostRecentFirst(t *testing.T) {
	ledger := NewAlertLedger(50)
	now := time.Now()

	ledger.Merge([]*types.AlertEvent{
		alertAt(25000, 7000, now),
		alertAt(25050, 7001, now.Add(time.Second)),
		alertAt(25100, 7002, now.Add(2*time.Second)),
	})

	recent := ledger.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, 25100, recent[0].Key.Strike)
	assert.Equal(t, 25000, recent[2].Key.Strike)
}

func TestLedger_Clear(t *testing.T) {
	ledger := NewAlertLedger(50)
	now := time.Now()

	ledger.Merge([]*types.AlertEvent{alertAt(25000, 7000, now)})
	ledger.Clear()

	assert.Equal(t, 0, ledger.Len())

	// 清空后同样的消息可以重新入账（新交易日重新计数）
	admitted := ledger.Merge([]*types.AlertEvent{alertAt(25000, 7000, now)})
	assert.Len(t, admitted, 1)
}
