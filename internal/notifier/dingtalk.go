package notifier

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"nifty-oi-sentry/pkg/types"
)

// DingTalkNotifier 钉钉通知器
type DingTalkNotifier struct {
	webhookURL string
	secret     string
	httpClient *http.Client
}

// dingTalkMessage 钉钉消息结构
type dingTalkMessage struct {
	MsgType  string            `json:"msgtype"`
	Markdown *dingTalkMarkdown `json:"markdown,omitempty"`
	At       *dingTalkAt       `json:"at,omitempty"`
}

type dingTalkMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type dingTalkAt struct {
	AtAll bool `json:"isAtAll"`
}

// dingTalkResponse 钉钉API响应
type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func NewDingTalkNotifier(webhookURL, secret string) Interface {
	// 如果没有配置webhook URL，返回控制台通知器
	if webhookURL == "" {
		zap.L().Info("🔧 未配置钉钉Webhook URL，使用控制台输出模式")
		return NewConsoleNotifier()
	}

	if secret != "" {
		zap.L().Info("✅ 已配置钉钉通知服务（含加签验证）")
	} else {
		zap.L().Warn("⚠️ 钉钉通知已配置，但未设置secret（建议配置加签验证）")
	}

	return &DingTalkNotifier{
		webhookURL: webhookURL,
		secret:     secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (dtn *DingTalkNotifier) SendAlert(alert *types.AlertEvent) error {
	title := fmt.Sprintf("🚨 NIFTY OI异动 - %s %d", alert.Key.Kind, alert.Key.Strike)
	content := dtn.buildMarkdownContent(alert)

	if err := dtn.sendDingTalkMessage(title, content); err != nil {
		zap.L().Warn("❌ 钉钉发送失败，降级为控制台输出", zap.Error(err))
		return NewConsoleNotifier().SendAlert(alert)
	}

	zap.L().Info("✅ 钉钉通知已发送", zap.String("contract", alert.Key.String()))
	return nil
}

func (dtn *DingTalkNotifier) SendBatchAlerts(alerts []*types.AlertEvent) error {
	if len(alerts) == 0 {
		return nil
	}

	if len(alerts) == 1 {
		return dtn.SendAlert(alerts[0])
	}

	title := fmt.Sprintf("📊 NIFTY批量OI异动 - %d个合约", len(alerts))
	content := dtn.buildBatchMarkdownContent(alerts)

	if err := dtn.sendDingTalkMessage(title, content); err != nil {
		zap.L().Warn("❌ 钉钉批量发送失败，降级为控制台输出", zap.Error(err))
		return NewConsoleNotifier().SendBatchAlerts(alerts)
	}

	zap.L().Info("✅ 钉钉批量通知已发送", zap.Int("count", len(alerts)))
	return nil
}

// generateSignature 生成钉钉加签
func (dtn *DingTalkNotifier) generateSignature(timestamp int64) string {
	// 按照文档要求: timestamp + "\n" + secret
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, dtn.secret)

	// HMAC-SHA256签名
	h := hmac.New(sha256.New, []byte(dtn.secret))
	h.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(h.Sum(nil))

	// URL编码
	return url.QueryEscape(signature)
}

// buildSignedURL 构建带签名的URL
func (dtn *DingTalkNotifier) buildSignedURL() string {
	if dtn.secret == "" {
		return dtn.webhookURL
	}

	timestamp := time.Now().UnixNano() / 1e6 // 毫秒时间戳
	signature := dtn.generateSignature(timestamp)

	separator := "&"
	if !strings.Contains(dtn.webhookURL, "?") {
		separator = "?"
	}

	return fmt.Sprintf("%s%stimestamp=%d&sign=%s",
		dtn.webhookURL, separator, timestamp, signature)
}

// buildMarkdownContent 构建单个预警的Markdown内容
func (dtn *DingTalkNotifier) buildMarkdownContent(alert *types.AlertEvent) string {
	return fmt.Sprintf(`## 🚨 OI异动预警触发

**合约**: %s %d
**基线OI**: %s
**当前OI**: %s
**OI增幅**: <font color="red">+%.1f%%</font>
**预警时间**: %s

> 💡 该合约未平仓量短时间大幅增加，请关注主力动向！`,
		alert.Key.Kind, alert.Key.Strike,
		humanize.Comma(alert.PrevOI),
		humanize.Comma(alert.CurrentOI),
		alert.ChangePct,
		formatAlertTime(alert.Time))
}

// buildBatchMarkdownContent 构建批量预警的Markdown内容
func (dtn *DingTalkNotifier) buildBatchMarkdownContent(alerts []*types.AlertEvent) string {
	content := fmt.Sprintf(`## 🚨 批量OI异动预警

**触发合约**: %d个
**预警时间**: %s

**详细列表**:
`, len(alerts), formatAlertTime(alerts[0].Time))

	maxShow := 8 // 最多显示8个
	showCount := len(alerts)
	if showCount > maxShow {
		showCount = maxShow
	}

	for i := 0; i < showCount; i++ {
		content += fmt.Sprintf("- **%s**\n", alerts[i].Message())
	}

	if len(alerts) > maxShow {
		content += fmt.Sprintf("- ... 还有%d个合约\n", len(alerts)-maxShow)
	}

	content += "\n> ⚠️ 多个合约同时出现OI异动，请密切关注市场动向！"

	return content
}

// sendDingTalkMessage 发送钉钉消息
func (dtn *DingTalkNotifier) sendDingTalkMessage(title, content string) error {
	signedURL := dtn.buildSignedURL()

	message := &dingTalkMessage{
		MsgType: "markdown",
		Markdown: &dingTalkMarkdown{
			Title: title,
			Text:  content,
		},
		At: &dingTalkAt{
			AtAll: false, // 不@所有人，避免过度打扰
		},
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	resp, err := dtn.httpClient.Post(signedURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	var dingResp dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&dingResp); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if dingResp.ErrCode != 0 {
		return fmt.Errorf("钉钉API错误 [%d]: %s", dingResp.ErrCode, dingResp.ErrMsg)
	}

	return nil
}
