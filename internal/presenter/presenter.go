package presenter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"nifty-oi-sentry/pkg/types"
)

// Presenter 控制台展示层：渲染每次扫描的行情概览、行权价监控表和预警历史
type Presenter struct{}

func New() *Presenter {
	return &Presenter{}
}

// Render 输出一次扫描结果
func (p *Presenter) Render(result *types.ScanResult) {
	fmt.Println()
	fmt.Printf("═══ NIFTY OI监控 [%s] ═══\n", result.ScanTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("现货: %s    ATM行权价: %d    到期日: %s\n",
		humanize.Commaf(result.Spot), result.ATMStrike, result.Expiry)
	fmt.Printf("监控合约: %d个\n\n", len(result.Table))

	p.renderTable(result.Table)

	if !result.WarmedUp {
		fmt.Println("\n📌 基线已捕获，下次扫描开始检测OI异动")
		return
	}

	if len(result.NewAlerts) == 0 {
		fmt.Println("\n✅ 本次扫描未发现OI异动")
	}

	if len(result.History) > 0 {
		fmt.Printf("\n🗂  预警历史（最新在前，共%d条）:\n", len(result.History))
		for _, alert := range result.History {
			fmt.Printf("  [%s] %s\n", alert.Time.Format("15:04:05"), alert.Message())
		}
	}
}

// renderTable 渲染行权价监控表，先按行权价再按类型排序
func (p *Presenter) renderTable(rows []types.TableRow) {
	sorted := make([]types.TableRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Strike != sorted[j].Strike {
			return sorted[i].Strike < sorted[j].Strike
		}
		return sorted[i].Kind < sorted[j].Kind
	})

	header := fmt.Sprintf("%-4s %8s %12s %12s %8s %10s", "类型", "行权价", "当前OI", "基线OI", "OI%", "LTP")
	fmt.Println(header)
	fmt.Println(strings.Repeat("─", 60))

	for _, row := range sorted {
		prevStr := "-"
		if row.OIPrev > 0 {
			prevStr = humanize.Comma(row.OIPrev)
		}
		fmt.Printf("%-4s %8d %12s %12s %7.1f%% %10.2f\n",
			row.Kind, row.Strike,
			humanize.Comma(row.OINow), prevStr,
			row.ChangePct, row.LTP)
	}
}
