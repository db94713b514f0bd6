package wechat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/johnqing-424/wechat-callback/internal/cache"
	"github.com/johnqing-424/wechat-callback/internal/metrics"
)

// DefaultTokenURL 是获取 access_token 的接口
const DefaultTokenURL = "https://api.weixin.qq.com/cgi-bin/token"

// ErrTokenRefresh 表示刷新 access_token 失败，调用方可稍后重试
var ErrTokenRefresh = errors.New("wechat: access_token refresh failed")

// 提前过期，避免使用即将失效的 token
const tokenExpiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

// TokenContainer 维护 access_token，缓存在 Cache 中供多个实例共享。
// 并发请求同时发现 token 失效时只发起一次刷新。
type TokenContainer struct {
	appID     string
	appSecret string
	tokenURL  string
	cache     cache.Cache
	client    *http.Client
	group     singleflight.Group
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// TokenOption 配置 TokenContainer
type TokenOption func(*TokenContainer)

// WithTokenURL 替换 token 接口地址
func WithTokenURL(u string) TokenOption {
	return func(t *TokenContainer) { t.tokenURL = u }
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) TokenOption {
	return func(t *TokenContainer) { t.client = c }
}

// WithTokenMetrics 记录刷新次数
func WithTokenMetrics(m *metrics.Metrics) TokenOption {
	return func(t *TokenContainer) { t.metrics = m }
}

// NewTokenContainer 创建 access_token 容器
func NewTokenContainer(appID, appSecret string, c cache.Cache, logger zerolog.Logger, opts ...TokenOption) *TokenContainer {
	t := &TokenContainer{
		appID:     appID,
		appSecret: appSecret,
		tokenURL:  DefaultTokenURL,
		cache:     c,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TokenContainer) cacheKey() string {
	return "wechat:access_token:" + t.appID
}

// GetValidToken 返回当前有效的 access_token，过期时自动刷新
func (t *TokenContainer) GetValidToken(ctx context.Context) (string, error) {
	token, ok, err := t.cache.Get(ctx, t.cacheKey())
	if err != nil {
		t.logger.Warn().Err(err).Msg("读取 access_token 缓存失败，直接刷新")
		t.metrics.CacheError("get")
	} else if ok && token != "" {
		return token, nil
	}

	v, err, _ := t.group.Do(t.cacheKey(), func() (any, error) {
		return t.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh 刷新 access_token
func (t *TokenContainer) refresh(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", t.appID)
	q.Set("secret", t.appSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.TokenRefresh("error")
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.TokenRefresh("error")
		return "", fmt.Errorf("%w: read body: %v", ErrTokenRefresh, err)
	}

	var result tokenResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		t.metrics.TokenRefresh("error")
		return "", fmt.Errorf("%w: decode: %v", ErrTokenRefresh, err)
	}
	if result.ErrCode != 0 || result.AccessToken == "" {
		t.metrics.TokenRefresh("error")
		return "", fmt.Errorf("%w: %d - %s", ErrTokenRefresh, result.ErrCode, result.ErrMsg)
	}

	ttl := time.Duration(result.ExpiresIn)*time.Second - tokenExpiryMargin
	if ttl <= 0 {
		ttl = time.Duration(result.ExpiresIn) * time.Second / 2
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := t.cache.Set(ctx, t.cacheKey(), result.AccessToken, ttl); err != nil {
		t.logger.Warn().Err(err).Msg("写入 access_token 缓存失败")
		t.metrics.CacheError("set")
	}
	t.metrics.TokenRefresh("ok")
	t.logger.Info().Dur("ttl", ttl).Msg("access_token 已刷新")
	return result.AccessToken, nil
}
