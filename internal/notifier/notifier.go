package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"nifty-oi-sentry/pkg/types"
)

// Interface 通知接口
type Interface interface {
	SendAlert(alert *types.AlertEvent) error
	SendBatchAlerts(alerts []*types.AlertEvent) error
}

// safePadding 安全地计算填充空格数量，避免负数
func safePadding(content string, totalWidth int) int {
	// 使用utf8.RuneCountInString计算实际显示字符数，而不是字节数
	runeCount := utf8.RuneCountInString(content)
	padding := totalWidth - runeCount - 4 // 4是边框字符数
	if padding < 0 {
		padding = 0
	}
	return padding
}

// ConsoleNotifier 控制台通知器
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (cn *ConsoleNotifier) SendAlert(alert *types.AlertEvent) error {
	cn.printAlert(alert)
	return nil
}

func (cn *ConsoleNotifier) SendBatchAlerts(alerts []*types.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}

	if len(alerts) == 1 {
		return cn.SendAlert(alerts[0])
	}

	cn.printBatchAlerts(alerts)
	return nil
}

func (cn *ConsoleNotifier) printAlert(alert *types.AlertEvent) {
	border := "╔" + strings.Repeat("═", 60) + "╗"
	bottomBorder := "╚" + strings.Repeat("═", 60) + "╝"

	fmt.Println()
	fmt.Println(border)

	title := "🚨 OI异动预警触发！"
	padding := safePadding(title, 60)
	fmt.Printf("║ %s%s ║\n", title, strings.Repeat(" ", padding))
	fmt.Println("║" + strings.Repeat(" ", 60) + "║")

	lines := []string{
		fmt.Sprintf("合约: %s %d", alert.Key.Kind, alert.Key.Strike),
		fmt.Sprintf("基线OI: %s", humanize.Comma(alert.PrevOI)),
		fmt.Sprintf("当前OI: %s", humanize.Comma(alert.CurrentOI)),
		fmt.Sprintf("增幅: +%.1f%%", alert.ChangePct),
		fmt.Sprintf("预警时间: %s", alert.Time.Format("2006-01-02 15:04:05")),
	}
	for _, line := range lines {
		padding := safePadding(line, 60)
		fmt.Printf("║ %s%s ║\n", line, strings.Repeat(" ", padding))
	}

	fmt.Println("║" + strings.Repeat(" ", 60) + "║")
	hint := "💡 该合约未平仓量短时间大幅增加，请关注主力动向！"
	padding = safePadding(hint, 60)
	fmt.Printf("║ %s%s ║\n", hint, strings.Repeat(" ", padding))

	fmt.Println(bottomBorder)
	fmt.Println()
}

func (cn *ConsoleNotifier) printBatchAlerts(alerts []*types.AlertEvent) {
	border := "╔" + strings.Repeat("═", 70) + "╗"
	bottomBorder := "╚" + strings.Repeat("═", 70) + "╝"

	fmt.Println()
	fmt.Println(border)

	title := fmt.Sprintf("🚨 批量OI异动预警！- %d个合约", len(alerts))
	padding := safePadding(title, 70)
	fmt.Printf("║ %s%s ║\n", title, strings.Repeat(" ", padding))
	fmt.Println("║" + strings.Repeat(" ", 70) + "║")

	for i, alert := range alerts {
		content := fmt.Sprintf("  %d. %s", i+1, alert.Message())
		padding := safePadding(content, 70)
		fmt.Printf("║ %s%s ║\n", content, strings.Repeat(" ", padding))
	}

	fmt.Println("║" + strings.Repeat(" ", 70) + "║")

	timeStr := fmt.Sprintf("预警时间: %s", alerts[0].Time.Format("2006-01-02 15:04:05"))
	padding = safePadding(timeStr, 70)
	fmt.Printf("║ %s%s ║\n", timeStr, strings.Repeat(" ", padding))

	fmt.Println(bottomBorder)
	fmt.Println()
}

// formatAlertTime 统一的预警时间格式
func formatAlertTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
