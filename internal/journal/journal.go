package journal

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"nifty-oi-sentry/pkg/types"
)

// Manager 预警流水归档管理器（可选，未配置MySQL时整个模块不启用）
type Manager struct {
	db     *gorm.DB
	config types.MySQLConfig
}

// AlertRecord 预警流水数据库模型
type AlertRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OptionKind string    `gorm:"type:varchar(4);not null;index:idx_contract_time" json:"option_kind"`
	Strike     int       `gorm:"not null;index:idx_contract_time" json:"strike"`
	PrevOI     int64     `gorm:"not null" json:"prev_oi"`
	CurrentOI  int64     `gorm:"not null" json:"current_oi"`
	ChangePct  float64   `gorm:"type:decimal(10,2);not null" json:"change_pct"`
	AlertTime  time.Time `gorm:"not null;index:idx_alert_time" json:"alert_time"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewManager 创建归档管理器
func NewManager(config types.MySQLConfig) (*Manager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
	)

	// 配置GORM日志
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent), // 生产环境使用Silent
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %v", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %v", err)
	}

	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	manager := &Manager{
		db:     db,
		config: config,
	}

	// 自动迁移表结构
	if err := db.AutoMigrate(&AlertRecord{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %v", err)
	}

	zap.L().Info("✅ MySQL预警归档已启用",
		zap.String("host", config.Host),
		zap.String("database", config.Database))

	return manager, nil
}

// SaveAlerts 批量写入预警流水
func (m *Manager) SaveAlerts(alerts []*types.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}

	records := make([]AlertRecord, 0, len(alerts))
	for _, alert := range alerts {
		records = append(records, AlertRecord{
			OptionKind: string(alert.Key.Kind),
			Strike:     alert.Key.Strike,
			PrevOI:     alert.PrevOI,
			CurrentOI:  alert.CurrentOI,
			ChangePct:  alert.ChangePct,
			AlertTime:  alert.Time,
		})
	}

	if err := m.db.Create(&records).Error; err != nil {
		return fmt.Errorf("写入预警流水失败: %v", err)
	}
	return nil
}

// RecentAlerts 查询最近的预警流水（最新在前）
func (m *Manager) RecentAlerts(limit int) ([]AlertRecord, error) {
	var records []AlertRecord
	err := m.db.Order("alert_time DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询预警流水失败: %v", err)
	}
	return records, nil
}

// Close 关闭数据库连接
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
