package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
	"nifty-oi-sentry/pkg/types"
)

// Load 加载配置
func Load() (*types.Config, error) {
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	setDefaults()

	// 读取环境变量
	viper.AutomaticEnv()

	// Fyers凭证从环境变量注入（.env 由 main 提前加载）
	_ = viper.BindEnv("fyers.client_id", "FYERS_CLIENT_ID")
	_ = viper.BindEnv("fyers.access_token", "FYERS_ACCESS_TOKEN")

	// 优先尝试读取本地配置文件
	viper.SetConfigName("config.local")
	if err := viper.ReadInConfig(); err != nil {
		// 如果本地配置文件不存在，尝试读取默认配置文件
		viper.SetConfigName("config")
		if err := viper.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}

	var config types.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file_path", "logs")
	viper.SetDefault("log.max_size", 200)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.compress", false)
	viper.SetDefault("fyers.base_url", "https://api-t1.fyers.in/data")
	viper.SetDefault("fyers.strike_count", 40)
	viper.SetDefault("market.spot_symbol", "NSE:NIFTY50-INDEX")
	viper.SetDefault("market.strike_step", 50)
	viper.SetDefault("market.strike_range_points", 100)
	viper.SetDefault("market.timezone", "Asia/Kolkata")
	viper.SetDefault("alert.spike_threshold_pct", 500.0)
	viper.SetDefault("alert.min_base_oi", 1000)
	viper.SetDefault("alert.max_history", 50)
	viper.SetDefault("scan.interval", time.Minute)
	viper.SetDefault("scan.once", false)
	viper.SetDefault("scan.cache_ttl", 10*time.Second)
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("dingtalk.webhook_url", "")
	viper.SetDefault("dingtalk.secret", "")
	viper.SetDefault("pushplus.user_token", "")
	viper.SetDefault("pushplus.to", "")
	viper.SetDefault("network.proxy", "")
	viper.SetDefault("network.timeout", 30*time.Second)
}
