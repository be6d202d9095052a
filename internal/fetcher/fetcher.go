package fetcher

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"nifty-oi-sentry/pkg/types"
)

// ErrUnavailable 行情接口不可用（网络失败或接口返回非ok状态）
var ErrUnavailable = errors.New("market data unavailable")

// FyersClient Fyers行情数据客户端。
// 同一进程内的现货/期权链请求会被互斥串行化，避免并发扫描时对上游打出重叠请求；
// 响应带短TTL缓存，重复触发的扫描在缓存窗口内不会重复请求。
type FyersClient struct {
	baseURL     string
	clientID    string
	accessToken string
	spotSymbol  string
	strikeCount int
	httpClient  *http.Client

	fetchMutex sync.Mutex // 串行化对上游的请求

	cacheTTL   time.Duration
	spotCache  cachedSpot
	chainCache cachedChain
}

type cachedSpot struct {
	at    time.Time
	price float64
}

type cachedChain struct {
	at       time.Time
	rows     []types.OptionRow
	expiries []types.ExpiryInfo
}

func NewFyersClient(fyersConfig types.FyersConfig, marketConfig types.MarketConfig, networkConfig types.NetworkConfig, cacheTTL time.Duration) *FyersClient {
	timeout := networkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// 创建自定义HTTP客户端
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: false,
			},
		},
	}

	// 如果配置了代理，则使用代理
	if networkConfig.Proxy != "" {
		proxyURL, err := url.Parse(networkConfig.Proxy)
		if err == nil {
			httpClient.Transport.(*http.Transport).Proxy = http.ProxyURL(proxyURL)
			zap.L().Info("✅ 已配置HTTP代理", zap.String("proxy", networkConfig.Proxy))
		} else {
			zap.L().Warn("⚠️ 代理地址格式错误", zap.Error(err))
		}
	}

	zap.L().Info("✅ 初始化Fyers行情客户端",
		zap.String("spot_symbol", marketConfig.SpotSymbol),
		zap.Duration("timeout", timeout))

	return &FyersClient{
		baseURL:     fyersConfig.BaseURL,
		clientID:    fyersConfig.ClientID,
		accessToken: fyersConfig.AccessToken,
		spotSymbol:  marketConfig.SpotSymbol,
		strikeCount: fyersConfig.StrikeCount,
		httpClient:  httpClient,
		cacheTTL:    cacheTTL,
	}
}

// quoteResponse Fyers quotes 接口响应
type quoteResponse struct {
	S string `json:"s"`
	D []struct {
		N string `json:"n"`
		V struct {
			LP float64 `json:"lp"`
		} `json:"v"`
	} `json:"d"`
}

// chainResponse Fyers optionchain 接口响应
type chainResponse struct {
	S    string `json:"s"`
	Data struct {
		OptionsChain []types.OptionRow  `json:"optionsChain"`
		ExpiryData   []types.ExpiryInfo `json:"expiryData"`
	} `json:"data"`
}

// GetSpot 获取标的现货价格
func (fc *FyersClient) GetSpot(ctx context.Context) (float64, error) {
	fc.fetchMutex.Lock()
	defer fc.fetchMutex.Unlock()

	if fc.cacheTTL > 0 && time.Since(fc.spotCache.at) < fc.cacheTTL {
		return fc.spotCache.price, nil
	}

	apiURL := fmt.Sprintf("%s/quotes?symbols=%s", fc.baseURL, url.QueryEscape(fc.spotSymbol))

	var resp quoteResponse
	if err := fc.getJSON(ctx, apiURL, &resp); err != nil {
		return 0, err
	}

	if resp.S != "ok" || len(resp.D) == 0 {
		zap.L().Error("❌ 现货报价接口返回异常", zap.String("status", resp.S))
		return 0, ErrUnavailable
	}

	price := resp.D[0].V.LP
	if price <= 0 {
		return 0, ErrUnavailable
	}

	fc.spotCache = cachedSpot{at: time.Now(), price: price}
	return price, nil
}

// GetOptionChain 获取期权链原始行与可用到期日列表
func (fc *FyersClient) GetOptionChain(ctx context.Context) ([]types.OptionRow, []types.ExpiryInfo, error) {
	fc.fetchMutex.Lock()
	defer fc.fetchMutex.Unlock()

	if fc.cacheTTL > 0 && time.Since(fc.chainCache.at) < fc.cacheTTL {
		return fc.chainCache.rows, fc.chainCache.expiries, nil
	}

	apiURL := fmt.Sprintf("%s/options-chain-v3?symbol=%s&strikecount=%d&timestamp=",
		fc.baseURL, url.QueryEscape(fc.spotSymbol), fc.strikeCount)

	var resp chainResponse
	if err := fc.getJSON(ctx, apiURL, &resp); err != nil {
		return nil, nil, err
	}

	if resp.S != "ok" || len(resp.Data.OptionsChain) == 0 {
		zap.L().Error("❌ 期权链接口返回异常", zap.String("status", resp.S))
		return nil, nil, ErrUnavailable
	}

	fc.chainCache = cachedChain{
		at:       time.Now(),
		rows:     resp.Data.OptionsChain,
		expiries: resp.Data.ExpiryData,
	}
	return resp.Data.OptionsChain, resp.Data.ExpiryData, nil
}

// getJSON 发送GET请求并解析JSON，最多重试3次
func (fc *FyersClient) getJSON(ctx context.Context, apiURL string, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			zap.L().Info("🔄 重试获取数据", zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("%s:%s", fc.clientID, fc.accessToken))

		resp, err := fc.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP请求失败(第%d次尝试): %v", attempt, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("读取响应失败(第%d次尝试): %v", attempt, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP状态码错误(第%d次尝试): %d", attempt, resp.StatusCode)
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("解析API响应失败(第%d次尝试): %v", attempt, err)
			continue
		}

		return nil
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
