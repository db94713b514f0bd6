package wechat

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/cache"
	"github.com/johnqing-424/wechat-callback/internal/logging"
	"github.com/johnqing-424/wechat-callback/internal/metrics"
	"github.com/johnqing-424/wechat-callback/internal/models"
)

// DefaultDedupTTL 覆盖微信 5 秒超时、重试 3 次的重发窗口
const DefaultDedupTTL = 2 * time.Minute

const (
	dedupKeyPrefix = "wechat:dedup:"
	// 首次投递写入的占位值，回复生成后被回复内容覆盖
	pendingMarker = "~pending"
)

// DedupKey 返回消息的去重键：普通消息用 FromUserName+MsgId，
// 没有 MsgId 的事件用 FromUserName+明文 XML 的哈希
func DedupKey(msg models.Message, canonical string) string {
	h := msg.Base()
	if h.MsgID != "" {
		return dedupKeyPrefix + h.FromUserName + ":" + h.MsgID
	}
	return dedupKeyPrefix + h.FromUserName + ":" + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

// RepeatHandler 借助缓存识别微信的重复推送。
//
// IsRepeat 依赖 Cache.Add 的原子性，同一个键在 TTL 内只有一次被当作首次投递。
// 缓存不可用时降级为总是非重复，处理器需要自行保证幂等。
type RepeatHandler struct {
	cache   cache.Cache
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewRepeatHandler 创建去重处理器，ttl 不大于 0 时使用 DefaultDedupTTL
func NewRepeatHandler(c cache.Cache, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *RepeatHandler {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RepeatHandler{cache: c, ttl: ttl, logger: logger, metrics: m}
}

// IsRepeat 首次见到 key 时写入占位并返回 false，之后在 TTL 内返回 true
func (r *RepeatHandler) IsRepeat(ctx context.Context, key string) bool {
	added, err := r.cache.Add(ctx, key, pendingMarker, r.ttl)
	if err != nil {
		log := logging.FromContext(ctx, r.logger)
		log.Warn().Err(err).Str("key", key).Msg("去重缓存不可用，按新消息处理")
		r.metrics.CacheError("add")
		return false
	}
	return !added
}

// Remember 保存 key 对应的回复内容，供之后的重试直接返回
func (r *RepeatHandler) Remember(ctx context.Context, key, reply string) {
	if err := r.cache.Set(ctx, key, reply, r.ttl); err != nil {
		log := logging.FromContext(ctx, r.logger)
		log.Warn().Err(err).Str("key", key).Msg("保存回复失败")
		r.metrics.CacheError("set")
	}
}

// Recall 返回已保存的回复；首次投递仍在处理中或缓存不可用时 ok 为 false
func (r *RepeatHandler) Recall(ctx context.Context, key string) (string, bool) {
	v, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.metrics.CacheError("get")
		return "", false
	}
	if !ok || v == pendingMarker {
		return "", false
	}
	return v, true
}
