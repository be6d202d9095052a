package types

import "time"

// Config 主配置结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Fyers    FyersConfig    `mapstructure:"fyers"`
	Market   MarketConfig   `mapstructure:"market"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Redis    RedisConfig    `mapstructure:"redis"`
	DingTalk DingTalkConfig `mapstructure:"dingtalk"`
	PushPlus PushPlusConfig `mapstructure:"pushplus"`
	Database DatabaseConfig `mapstructure:"database"`
	Network  NetworkConfig  `mapstructure:"network"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	FilePath   string `mapstructure:"file_path"`   // 日志输出路径名
	MaxSize    int    `mapstructure:"max_size"`    // 日志文件大小 单位：MB，超限后会自动切割
	MaxAge     int    `mapstructure:"max_age"`     // 日志文件存放时间 单位：天
	MaxBackups int    `mapstructure:"max_backups"` // 日志文件备份数量
	Compress   bool   `mapstructure:"compress"`    // 日志文件压缩
}

// FyersConfig Fyers行情接口配置（凭证从环境变量读取，见 .env）
type FyersConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ClientID    string `mapstructure:"client_id"`
	AccessToken string `mapstructure:"access_token"`
	StrikeCount int    `mapstructure:"strike_count"` // optionchain 接口每侧行权价数量
}

// MarketConfig 标的市场配置
type MarketConfig struct {
	SpotSymbol        string `mapstructure:"spot_symbol"`         // 指数标的，如 NSE:NIFTY50-INDEX
	StrikeStep        int    `mapstructure:"strike_step"`         // 行权价间距，NIFTY为50
	StrikeRangePoints int    `mapstructure:"strike_range_points"` // ATM上下监控的点数范围
	Timezone          string `mapstructure:"timezone"`            // 交易日历时区，默认 Asia/Kolkata
}

// AlertConfig OI异动预警配置
type AlertConfig struct {
	SpikeThresholdPct float64 `mapstructure:"spike_threshold_pct"` // OI增幅预警阈值（百分比，严格大于才触发）
	MinBaseOI         int64   `mapstructure:"min_base_oi"`         // 基线OI下限，低于此值不参与预警
	MaxHistory        int     `mapstructure:"max_history"`         // 预警历史保留条数，超出后淘汰最旧
}

// ScanConfig 扫描调度配置
type ScanConfig struct {
	Interval time.Duration `mapstructure:"interval"`  // 定时扫描间隔
	Once     bool          `mapstructure:"once"`      // 只扫描一次后退出（手动模式）
	CacheTTL time.Duration `mapstructure:"cache_ttl"` // 行情接口响应缓存时长
}

// RedisConfig Redis配置（可选，用于当日基线备份）
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DingTalkConfig 钉钉配置
type DingTalkConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string `mapstructure:"secret"`
}

// PushPlusConfig PushPlus配置
type PushPlusConfig struct {
	UserToken string `mapstructure:"user_token"`
	To        string `mapstructure:"to"` // 好友令牌，多人用逗号分隔
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig MySQL配置（可选，用于预警流水归档）
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	Proxy   string        `mapstructure:"proxy"`   // HTTP代理地址，如 http://127.0.0.1:7890
	Timeout time.Duration `mapstructure:"timeout"` // 网络超时时间
}
