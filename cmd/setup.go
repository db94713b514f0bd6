package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/cache"
	"github.com/johnqing-424/wechat-callback/internal/config"
	"github.com/johnqing-424/wechat-callback/internal/logging"
	"github.com/johnqing-424/wechat-callback/internal/metrics"
	"github.com/johnqing-424/wechat-callback/internal/models"
	"github.com/johnqing-424/wechat-callback/internal/ragflow"
	"github.com/johnqing-424/wechat-callback/internal/wechat"
)

type app struct {
	router    *gin.Engine
	processor *wechat.Processor
	tokens    *wechat.TokenContainer
	logger    zerolog.Logger
}

// newCache 按配置创建缓存，返回的关闭函数总是非 nil
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, func(), error) {
	switch cfg.Type {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

// setup 组装回调管道和路由
func setup(cfg *config.Config, c cache.Cache, logger zerolog.Logger, reg *prometheus.Registry) (*app, error) {
	m := metrics.New(reg)

	verifier, err := wechat.NewVerifier(cfg.WeChat.Token)
	if err != nil {
		return nil, err
	}
	middleware, err := wechat.NewMiddleware(wechat.MiddlewareConfig{
		Mode:           wechat.Mode(cfg.WeChat.MessageMode),
		Token:          cfg.WeChat.Token,
		EncodingAESKey: cfg.WeChat.EncodingAESKey,
		AppID:          cfg.WeChat.AppID,
	})
	if err != nil {
		return nil, fmt.Errorf("init message middleware: %w", err)
	}

	processor := wechat.NewProcessor(logger, m)
	if cfg.RagFlow.BaseURL != "" {
		rag := ragflow.NewClient(ragflow.Config{
			BaseURL: cfg.RagFlow.BaseURL,
			APIKey:  cfg.RagFlow.APIKey,
			ChatID:  cfg.RagFlow.ChatID,
			Timeout: cfg.RagFlow.RequestTimeout,
		}, c, logger)
		processor.Register(models.KindText, rag.Handler())
	}

	var repeat *wechat.RepeatHandler
	if cfg.WeChat.Dedup.Enabled {
		repeat = wechat.NewRepeatHandler(c, cfg.WeChat.Dedup.TTL, logger, m)
	}

	pipeline, err := wechat.NewPipeline(wechat.Options{
		Verifier:   verifier,
		Middleware: middleware,
		Repeat:     repeat,
		Processor:  processor,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))
	wechat.NewServer(pipeline, logger).Register(r, cfg.Server.Path)
	if cfg.Server.MetricsPath != "" {
		r.GET(cfg.Server.MetricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	a := &app{router: r, processor: processor, logger: logger}
	if cfg.WeChat.AppSecret != "" {
		a.tokens = wechat.NewTokenContainer(cfg.WeChat.AppID, cfg.WeChat.AppSecret, c, logger, wechat.WithTokenMetrics(m))
	}
	return a, nil
}

// warmToken 启动时预取 access_token，失败只记录日志
func (a *app) warmToken(ctx context.Context) {
	if a.tokens == nil {
		return
	}
	if _, err := a.tokens.GetValidToken(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("预取 access_token 失败")
	}
}
