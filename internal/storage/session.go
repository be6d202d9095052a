package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"nifty-oi-sentry/pkg/types"
)

// SessionState 会话状态管理器：持有每个合约的OI基线、预热标记和最近一次重置日期。
// 基线只在这里被整体替换或整体清空，其他模块只拿副本。
type SessionState struct {
	baseline      map[types.ContractKey]types.BaselineEntry
	warmedUp      bool
	lastResetDate string // 格式 2006-01-02，按IST日历
	loc           *time.Location
	mutex         sync.RWMutex

	redisClient *redis.Client
	useRedis    bool
}

// NewSessionState 创建会话状态管理器，redis为可选的当日基线备份
func NewSessionState(redisConfig types.RedisConfig, timezone string) *SessionState {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		zap.L().Warn("⚠️ 时区加载失败，使用固定IST偏移", zap.String("timezone", timezone), zap.Error(err))
		loc = time.FixedZone("IST", 5*3600+30*60)
	}

	ss := &SessionState{
		baseline: make(map[types.ContractKey]types.BaselineEntry),
		loc:      loc,
	}

	// 尝试连接Redis
	if redisConfig.URL != "" {
		ss.redisClient = redis.NewClient(&redis.Options{
			Addr:     redisConfig.URL,
			Password: redisConfig.Password,
			DB:       redisConfig.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := ss.redisClient.Ping(ctx).Result(); err != nil {
			zap.L().Warn("⚠️ Redis连接失败，使用纯内存模式", zap.Error(err))
			ss.useRedis = false
		} else {
			zap.L().Info("✅ Redis连接成功")
			ss.useRedis = true
		}
	} else {
		zap.L().Info("🔧 未配置Redis，使用纯内存模式")
		ss.useRedis = false
	}

	return ss
}

// Now 返回IST当前时间
func (ss *SessionState) Now() time.Time {
	return time.Now().In(ss.loc)
}

// MaybeReset 交易日重置策略：日期变化时清空基线并取消预热，每个交易日只发生一次。
// 同一天内重复调用是无副作用的。返回是否发生了重置。
func (ss *SessionState) MaybeReset(now time.Time) bool {
	today := now.In(ss.loc).Format("2006-01-02")

	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if ss.lastResetDate == today {
		return false
	}

	ss.baseline = make(map[types.ContractKey]types.BaselineEntry)
	ss.warmedUp = false
	ss.lastResetDate = today

	zap.L().Info("🔄 新交易日，基线已重置", zap.String("date", today))

	// 尝试从Redis恢复当日基线（进程重启但仍在同一交易日的场景）
	if ss.useRedis {
		ss.restoreFromRedis(today)
	}

	return true
}

// WarmedUp 返回当前是否已完成基线预热
func (ss *SessionState) WarmedUp() bool {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	return ss.warmedUp
}

// LastResetDate 返回最近一次重置的日期字符串
func (ss *SessionState) LastResetDate() string {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	return ss.lastResetDate
}

// BaselineView 返回基线的副本，调用方可以安全地并发读取
func (ss *SessionState) BaselineView() map[types.ContractKey]types.BaselineEntry {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	view := make(map[types.ContractKey]types.BaselineEntry, len(ss.baseline))
	for k, v := range ss.baseline {
		view[k] = v
	}
	return view
}

// BaselineSize 返回基线中的合约数量
func (ss *SessionState) BaselineSize() int {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()
	return len(ss.baseline)
}

// CommitBaseline 整体替换基线并标记预热完成。
// 这是一次扫描唯一的提交点：替换是原子的，并发读取方看不到半新半旧的基线。
func (ss *SessionState) CommitBaseline(newBaseline map[types.ContractKey]types.BaselineEntry) {
	ss.mutex.Lock()
	ss.baseline = newBaseline
	firstPass := !ss.warmedUp
	ss.warmedUp = true
	date := ss.lastResetDate
	ss.mutex.Unlock()

	if firstPass {
		zap.L().Info("📌 基线已捕获，下次扫描开始检测OI异动", zap.Int("contracts", len(newBaseline)))
	}

	// 异步备份到Redis
	if ss.useRedis {
		go ss.backupToRedis(date, newBaseline)
	}
}

func (ss *SessionState) redisKey(date string) string {
	return fmt.Sprintf("oisentry:baseline:%s", date)
}

// backupToRedis 把当日基线备份到Redis，24小时后自动过期
func (ss *SessionState) backupToRedis(date string, baseline map[types.ContractKey]types.BaselineEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// ContractKey是结构体，转成字符串key再序列化
	flat := make(map[string]types.BaselineEntry, len(baseline))
	for k, v := range baseline {
		flat[k.String()] = v
	}

	value, err := json.Marshal(flat)
	if err != nil {
		zap.L().Warn("序列化基线失败", zap.Error(err))
		return
	}

	key := ss.redisKey(date)
	if err := ss.redisClient.Set(ctx, key, value, 24*time.Hour).Err(); err != nil {
		zap.L().Warn("Redis备份基线失败", zap.Error(err))
	}
}

// restoreFromRedis 重置后尝试恢复同一交易日的基线备份。
// 恢复成功则直接进入预热完成状态。调用方必须已持有写锁。
func (ss *SessionState) restoreFromRedis(date string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	value, err := ss.redisClient.Get(ctx, ss.redisKey(date)).Result()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("Redis读取基线备份失败", zap.Error(err))
		}
		return
	}

	var flat map[string]types.BaselineEntry
	if err := json.Unmarshal([]byte(value), &flat); err != nil {
		zap.L().Warn("解析基线备份失败", zap.Error(err))
		return
	}

	restored := make(map[types.ContractKey]types.BaselineEntry, len(flat))
	for s, entry := range flat {
		key, ok := parseContractKey(s)
		if !ok || entry.OI < 0 {
			continue
		}
		restored[key] = entry
	}

	if len(restored) == 0 {
		return
	}

	ss.baseline = restored
	ss.warmedUp = true
	zap.L().Info("♻️ 已从Redis恢复当日基线", zap.String("date", date), zap.Int("contracts", len(restored)))
}

// parseContractKey 解析 "CE_25000" 格式的合约key
func parseContractKey(s string) (types.ContractKey, bool) {
	var kind string
	var strike int
	if _, err := fmt.Sscanf(s, "%2s_%d", &kind, &strike); err != nil {
		return types.ContractKey{}, false
	}
	switch types.OptionKind(kind) {
	case types.OptionCall, types.OptionPut:
		return types.ContractKey{Kind: types.OptionKind(kind), Strike: strike}, true
	}
	return types.ContractKey{}, false
}

// Stats 返回状态统计信息
func (ss *SessionState) Stats() map[string]interface{} {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	return map[string]interface{}{
		"redis_enabled":   ss.useRedis,
		"baseline_size":   len(ss.baseline),
		"warmed_up":       ss.warmedUp,
		"last_reset_date": ss.lastResetDate,
	}
}
