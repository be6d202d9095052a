package analyzer

import (
	"sync"

	"nifty-oi-sentry/pkg/types"
)

// AlertLedger 预警台账：按检测顺序保留有界的预警历史，按消息文本去重。
// 存储顺序是最旧在前；展示用最新在前，由 Recent 负责反转。
type AlertLedger struct {
	events  []*types.AlertEvent
	seen    map[string]struct{}
	maxSize int
	mutex   sync.RWMutex
}

func NewAlertLedger(maxSize int) *AlertLedger {
	return &AlertLedger{
		events:  make([]*types.AlertEvent, 0, maxSize),
		seen:    make(map[string]struct{}),
		maxSize: maxSize,
	}
}

// Merge 合并新预警：消息文本与已有记录完全相同的视为重复检测，不再入账。
// 超出容量后淘汰最旧的记录。返回实际新入账的预警。
func (al *AlertLedger) Merge(incoming []*types.AlertEvent) []*types.AlertEvent {
	al.mutex.Lock()
	defer al.mutex.Unlock()

	admitted := make([]*types.AlertEvent, 0, len(incoming))
	for _, event := range incoming {
		msg := event.Message()
		if _, dup := al.seen[msg]; dup {
			continue
		}
		al.seen[msg] = struct{}{}
		al.events = append(al.events, event)
		admitted = append(admitted, event)
	}

	// 截断到最近maxSize条，最旧的先淘汰
	if over := len(al.events) - al.maxSize; over > 0 {
		for _, evicted := range al.events[:over] {
			delete(al.seen, evicted.Message())
		}
		al.events = al.events[over:]
	}

	return admitted
}

// Recent 返回展示用的历史快照，最新的在前
func (al *AlertLedger) Recent() []*types.AlertEvent {
	al.mutex.RLock()
	defer al.mutex.RUnlock()

	out := make([]*types.AlertEvent, len(al.events))
	for i, event := range al.events {
		out[len(al.events)-1-i] = event
	}
	return out
}

// Len 返回台账中的预警条数
func (al *AlertLedger) Len() int {
	al.mutex.RLock()
	defer al.mutex.RUnlock()
	return len(al.events)
}

// Clear 清空台账（交易日重置时调用）
func (al *AlertLedger) Clear() {
	al.mutex.Lock()
	defer al.mutex.Unlock()
	al.events = al.events[:0]
	al.seen = make(map[string]struct{})
}
