package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"nifty-oi-sentry/pkg/types"
)

// PushPlusNotifier PushPlus通知器
type PushPlusNotifier struct {
	userToken  string
	to         string // 好友令牌，多人用逗号分隔
	httpClient *http.Client
}

type pushPlusRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
	To       string `json:"to,omitempty"` // 好友令牌，给朋友发送通知
}

type pushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data string `json:"data"`
}

func NewPushPlusNotifier(userToken, to string) Interface {
	// 如果没有配置user token，返回控制台通知器
	if userToken == "" {
		zap.L().Info("🔧 未配置PushPlus User Token，使用控制台输出模式")
		return NewConsoleNotifier()
	}

	if to != "" {
		zap.L().Info("✅ 已配置PushPlus通知服务（包含好友推送）", zap.String("to", to))
	} else {
		zap.L().Info("✅ 已配置PushPlus通知服务")
	}

	return &PushPlusNotifier{
		userToken: userToken,
		to:        to,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (ppn *PushPlusNotifier) SendAlert(alert *types.AlertEvent) error {
	title := fmt.Sprintf("🚨 NIFTY OI异动 - %s %d", alert.Key.Kind, alert.Key.Strike)
	content := ppn.buildHTMLContent(alert)

	if err := ppn.sendPushPlusMessage(title, content); err != nil {
		zap.L().Warn("❌ PushPlus发送失败，降级为控制台输出", zap.Error(err))
		return NewConsoleNotifier().SendAlert(alert)
	}

	zap.L().Info("✅ PushPlus通知已发送", zap.String("contract", alert.Key.String()))
	return nil
}

func (ppn *PushPlusNotifier) SendBatchAlerts(alerts []*types.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}

	if len(alerts) == 1 {
		return ppn.SendAlert(alerts[0])
	}

	title := fmt.Sprintf("📊 NIFTY批量OI异动 - %d个合约", len(alerts))
	content := ppn.buildBatchHTMLContent(alerts)

	if err := ppn.sendPushPlusMessage(title, content); err != nil {
		zap.L().Warn("❌ PushPlus批量发送失败，降级为控制台输出", zap.Error(err))
		return NewConsoleNotifier().SendBatchAlerts(alerts)
	}

	zap.L().Info("✅ PushPlus批量通知已发送", zap.Int("count", len(alerts)))
	return nil
}

func (ppn *PushPlusNotifier) buildHTMLContent(alert *types.AlertEvent) string {
	return fmt.Sprintf(`
<div style="border: 2px solid #FF4444; border-radius: 10px; padding: 20px; margin: 10px; background-color: #f9f9f9;">
    <h2 style="color: #FF4444; text-align: center; margin-top: 0;">🚨 OI异动预警触发</h2>

    <div style="background-color: white; padding: 15px; border-radius: 8px; margin: 10px 0;">
        <p><strong>合约:</strong> <span style="font-size: 18px;">%s %d</span></p>
        <p><strong>基线OI:</strong> <span style="font-size: 16px; color: #333;">%s</span></p>
        <p><strong>当前OI:</strong> <span style="font-size: 16px; color: #333;">%s</span></p>
        <p><strong>OI增幅:</strong> <span style="font-size: 18px; font-weight: bold; color: #FF4444;">+%.1f%%</span></p>
        <p><strong>预警时间:</strong> <span style="color: #666;">%s</span></p>
    </div>

    <div style="background-color: #FF4444; color: white; padding: 10px; border-radius: 8px; text-align: center; margin-top: 15px;">
        <strong>💡 该合约未平仓量短时间大幅增加，请关注主力动向！</strong>
    </div>
</div>
`,
		alert.Key.Kind, alert.Key.Strike,
		humanize.Comma(alert.PrevOI),
		humanize.Comma(alert.CurrentOI),
		alert.ChangePct,
		formatAlertTime(alert.Time))
}

func (ppn *PushPlusNotifier) buildBatchHTMLContent(alerts []*types.AlertEvent) string {
	content := fmt.Sprintf(`
<div style="border: 2px solid #FF6B6B; border-radius: 10px; padding: 20px; margin: 10px; background-color: #f9f9f9;">
    <h2 style="color: #FF6B6B; text-align: center; margin-top: 0;">🚨 批量OI异动预警</h2>

    <div style="background-color: #E3F2FD; padding: 15px; border-radius: 8px; margin: 10px 0;">
        <p style="margin: 5px 0;">📊 触发合约: <span style="font-weight: bold;">%d个</span></p>
        <p style="margin: 5px 0;">🕐 预警时间: <span style="color: #666;">%s</span></p>
    </div>

    <div style="background-color: white; padding: 15px; border-radius: 8px; margin: 10px 0;">
        <table style="width: 100%%; border-collapse: collapse;">
            <tr style="background-color: #FFE8E8;">
                <th style="padding: 8px; text-align: left; border-bottom: 1px solid #ddd;">合约</th>
                <th style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">基线OI</th>
                <th style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">当前OI</th>
                <th style="padding: 8px; text-align: right; border-bottom: 1px solid #ddd;">增幅</th>
            </tr>`,
		len(alerts), formatAlertTime(alerts[0].Time))

	maxShow := 10 // 最多显示10个
	showCount := len(alerts)
	if showCount > maxShow {
		showCount = maxShow
	}

	for i := 0; i < showCount; i++ {
		alert := alerts[i]
		content += fmt.Sprintf(`
            <tr>
                <td style="padding: 8px; border-bottom: 1px solid #eee;">%s %d</td>
                <td style="padding: 8px; text-align: right; border-bottom: 1px solid #eee;">%s</td>
                <td style="padding: 8px; text-align: right; border-bottom: 1px solid #eee;">%s</td>
                <td style="padding: 8px; text-align: right; border-bottom: 1px solid #eee; color: #FF4444; font-weight: bold;">+%.1f%%</td>
            </tr>`,
			alert.Key.Kind, alert.Key.Strike,
			humanize.Comma(alert.PrevOI),
			humanize.Comma(alert.CurrentOI),
			alert.ChangePct)
	}

	if len(alerts) > maxShow {
		content += fmt.Sprintf(`
            <tr>
                <td colspan="4" style="padding: 8px; text-align: center; color: #666; font-style: italic;">... 还有%d个合约</td>
            </tr>`, len(alerts)-maxShow)
	}

	content += `
        </table>
    </div>
</div>`

	return content
}

func (ppn *PushPlusNotifier) sendPushPlusMessage(title, content string) error {
	reqData := pushPlusRequest{
		Token:    ppn.userToken,
		Title:    title,
		Content:  content,
		Template: "html",
		To:       ppn.to,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("序列化请求数据失败: %v", err)
	}

	resp, err := ppn.httpClient.Post(
		"http://www.pushplus.plus/send",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	var pushResp pushPlusResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if pushResp.Code != 200 {
		return fmt.Errorf("PushPlus API错误: %s", pushResp.Msg)
	}

	return nil
}
