package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nifty-oi-sentry/internal/analyzer"
	"nifty-oi-sentry/internal/fetcher"
	"nifty-oi-sentry/internal/normalizer"
	"nifty-oi-sentry/internal/storage"
	"nifty-oi-sentry/pkg/types"
)

// fakeProvider 可编程的行情数据提供方
type fakeProvider struct {
	spot     float64
	rows     []types.OptionRow
	expiries []types.ExpiryInfo
	spotErr  error
	chainErr error

	spotCalls  int
	chainCalls int
}

func (fp *fakeProvider) GetSpot(ctx context.Context) (float64, error) {
	fp.spotCalls++
	if fp.spotErr != nil {
		return 0, fp.spotErr
	}
	return fp.spot, nil
}

func (fp *fakeProvider) GetOptionChain(ctx context.Context) ([]types.OptionRow, []types.ExpiryInfo, error) {
	fp.chainCalls++
	if fp.chainErr != nil {
		return nil, nil, fp.chainErr
	}
	return fp.rows, fp.expiries, nil
}

func chainRow(strike float64, optType string, oi float64) types.OptionRow {
	return types.OptionRow{
		Symbol:      fmt.Sprintf("NSE:NIFTY%.0f%s", strike, optType),
		StrikePrice: strike,
		OptionType:  optType,
		OI:          oi,
		LTP:         100.5,
	}
}

func newTestScanner(t *testing.T, provider *fakeProvider) *Scanner {
	t.Helper()

	session := storage.NewSessionState(types.RedisConfig{}, "Asia/Kolkata")
	detector := analyzer.NewSpikeDetector(1000, 500)
	ledger := analyzer.NewAlertLedger(50)

	return NewScanner(provider, session, detector, ledger, nil, types.MarketConfig{
		StrikeStep:        50,
		StrikeRangePoints: 100,
	})
}

func TestScan_FirstScanBuildsBaselineWithoutAlerts(t *testing.T) {
	provider := &fakeProvider{
		spot: 24987,
		rows: []types.OptionRow{
			chainRow(25000, "CE", 5000),
			chainRow(25000, "PE", 3000),
		},
	}
	scn := newTestScanner(t, provider)

	result, err := scn.Scan(context.Background())
	require.NoError(t, err)

	// ATM = round(24987/50)*50 = 25000
	assert.Equal(t, 25000, result.ATMStrike)
	assert.False(t, result.WarmedUp)
	assert.Empty(t, result.NewAlerts)
	assert.Len(t, result.Table, 2)
	assert.Equal(t, 2, scn.session.BaselineSize())
	assert.True(t, scn.session.WarmedUp())
}

func TestScan_SecondScanDetectsSpike(t *testing.T) {
	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
	}
	scn := newTestScanner(t, provider)

	_, err := scn.Scan(context.Background())
	require.NoError(t, err)

	provider.rows = []types.OptionRow{chainRow(25000, "CE", 6500)}

	result, err := scn.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, result.NewAlerts, 1)
	assert.Equal(t, "CE 25000 | +550.0% | 1,000 → 6,500", result.NewAlerts[0].Message())
	require.Len(t, result.History, 1)

	// 基线推进到最新观测值
	key := types.ContractKey{Kind: types.OptionCall, Strike: 25000}
	assert.Equal(t, int64(6500), scn.session.BaselineView()[key].OI)
}

func TestScan_RepeatedIdenticalSnapshotYieldsNoNewAlerts(t *testing.T) {
	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
	}
	scn := newTestScanner(t, provider)

	_, err := scn.Scan(context.Background())
	require.NoError(t, err)

	provider.rows = []types.OptionRow{chainRow(25000, "CE", 6500)}
	result, err := scn.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, result.NewAlerts, 1)

	// 第三次扫描快照没变：pct=0，也没有重复预警
	result, err = scn.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.NewAlerts)
	assert.Len(t, result.History, 1)
}

func TestScan_SpotFailureLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
	}
	scn := newTestScanner(t, provider)

	_, err := scn.Scan(context.Background())
	require.NoError(t, err)
	baselineBefore := scn.session.BaselineView()

	provider.spotErr = fetcher.ErrUnavailable

	_, err = scn.Scan(context.Background())
	assert.ErrorIs(t, err, fetcher.ErrUnavailable)

	// 基线、预热状态原样保留
	assert.Equal(t, baselineBefore, scn.session.BaselineView())
	assert.True(t, scn.session.WarmedUp())
	assert.Equal(t, 0, scn.ledger.Len())
}

func TestScan_ChainFailureLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
	}
	scn := newTestScanner(t, provider)

	_, err := scn.Scan(context.Background())
	require.NoError(t, err)

	provider.chainErr = fetcher.ErrUnavailable

	_, err = scn.Scan(context.Background())
	assert.ErrorIs(t, err, fetcher.ErrUnavailable)
	assert.Equal(t, 1, scn.session.BaselineSize())
}

func TestScan_NoStrikesInRangeLeavesStateUntouched(t *testing.T) {
	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
	}
	scn := newTestScanner(t, provider)

	_, err := scn.Scan(context.Background())
	require.NoError(t, err)

	// 全部行权价都在监控区间之外
	provider.rows = []types.OptionRow{chainRow(27000, "CE", 1000)}

	_, err = scn.Scan(context.Background())
	assert.ErrorIs(t, err, normalizer.ErrNoStrikes)
	assert.Equal(t, 1, scn.session.BaselineSize())
	assert.True(t, scn.session.WarmedUp())
}

func TestScan_ATMRounding(t *testing.T) {
	tests := []struct {
		spot float64
		atm  int
	}{
		{24987, 25000},
		{25024, 25000},
		{25025, 25050},
		{24500, 24500},
	}

	for _, tt := range tests {
		provider := &fakeProvider{
			spot: tt.spot,
			rows: []types.OptionRow{chainRow(float64(tt.atm), "CE", 1000)},
		}
		scn := newTestScanner(t, provider)

		result, err := scn.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.atm, result.ATMStrike, fmt.Sprintf("spot=%v", tt.spot))
	}
}

func TestScan_ExpiryResolvedFromChain(t *testing.T) {
	now := time.Now()
	nearDate := now.AddDate(0, 0, 2)
	farDate := now.AddDate(0, 0, 9)

	provider := &fakeProvider{
		spot: 25000,
		rows: []types.OptionRow{chainRow(25000, "CE", 1000)},
		expiries: []types.ExpiryInfo{
			{Date: farDate.Format("02-01-2006"), Expiry: fmt.Sprintf("%d", farDate.Unix())},
			{Date: nearDate.Format("02-01-2006"), Expiry: fmt.Sprintf("%d", nearDate.Unix())},
		},
	}
	scn := newTestScanner(t, provider)

	result, err := scn.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nearDate.Format("02-01-2006"), result.Expiry)
}
