package types

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// OptionKind 期权类型（CE=看涨 PE=看跌）
type OptionKind string

const (
	OptionCall OptionKind = "CE"
	OptionPut  OptionKind = "PE"
)

// ContractKey 期权合约唯一标识：期权类型 + 行权价
// 同一行权价的CE和PE是两个不同的合约
type ContractKey struct {
	Kind   OptionKind `json:"kind"`
	Strike int        `json:"strike"`
}

func (k ContractKey) String() string {
	return fmt.Sprintf("%s_%d", k.Kind, k.Strike)
}

// OptionRow 期权链原始行数据（Fyers optionchain 接口返回格式）
type OptionRow struct {
	Symbol      string  `json:"symbol"`
	StrikePrice float64 `json:"strike_price"`
	OptionType  string  `json:"option_type"`
	OI          float64 `json:"oi"`
	LTP         float64 `json:"ltp"`
}

// ExpiryInfo 到期日描述（原始时间戳 + 展示字符串）
type ExpiryInfo struct {
	Date   string `json:"date"`
	Expiry string `json:"expiry"`
}

// ContractSnapshot 单个合约的当前市场快照，每次扫描重新生成后不再修改
type ContractSnapshot struct {
	Key ContractKey `json:"key"`
	OI  int64       `json:"oi"`
	LTP float64     `json:"ltp"`
}

// BaselineEntry 合约基线：上一次观测到的OI和LTP
type BaselineEntry struct {
	OI  int64   `json:"oi"`
	LTP float64 `json:"ltp"`
}

// AlertEvent OI异动预警事件，生成后不可变
type AlertEvent struct {
	Time      time.Time   `json:"time"`
	Key       ContractKey `json:"key"`
	PrevOI    int64       `json:"prev_oi"`
	CurrentOI int64       `json:"current_oi"`
	ChangePct float64     `json:"change_pct"`
}

// Message 预警的可读描述，同时作为预警去重的key
// 格式示例："CE 25000 | +550.0% | 1,000 → 6,500"
func (a *AlertEvent) Message() string {
	return fmt.Sprintf("%s %d | +%.1f%% | %s → %s",
		a.Key.Kind, a.Key.Strike,
		a.ChangePct,
		humanize.Comma(a.PrevOI),
		humanize.Comma(a.CurrentOI))
}

// TableRow 监控表格的一行（展示用，只读）
type TableRow struct {
	Kind      OptionKind `json:"kind"`
	Strike    int        `json:"strike"`
	OINow     int64      `json:"oi_now"`
	OIPrev    int64      `json:"oi_prev"`
	ChangePct float64    `json:"change_pct"`
	LTP       float64    `json:"ltp"`
}

// ScanResult 单次扫描的输出，交给展示层和通知层消费
type ScanResult struct {
	ScanTime  time.Time     `json:"scan_time"`
	Spot      float64       `json:"spot"`
	ATMStrike int           `json:"atm_strike"`
	Expiry    string        `json:"expiry"`
	Table     []TableRow    `json:"table"`
	NewAlerts []*AlertEvent `json:"new_alerts"`
	History   []*AlertEvent `json:"history"`
	WarmedUp  bool          `json:"warmed_up"`
}
