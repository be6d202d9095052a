package main

import (
	"log"

	"github.com/joho/godotenv"
	"nifty-oi-sentry/pkg/config"
	"nifty-oi-sentry/pkg/logger"
)

func main() {
	// 先加载 .env（Fyers凭证），不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志
	appLogger := logger.Init(cfg.Log)
	defer appLogger.Sync()

	// 创建并启动应用
	app := NewApp(cfg)
	app.Start()

	app.WaitForShutdown()
	app.Stop()
}
