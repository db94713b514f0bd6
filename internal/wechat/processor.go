package wechat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/logging"
	"github.com/johnqing-424/wechat-callback/internal/metrics"
	"github.com/johnqing-424/wechat-callback/internal/models"
)

// Handler 处理一种消息或事件。返回 nil 回复表示不回复，只做确认。
type Handler interface {
	Handle(ctx context.Context, msg models.Message) (models.Reply, error)
}

// HandlerFunc 把普通函数适配为 Handler
type HandlerFunc func(ctx context.Context, msg models.Message) (models.Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, msg models.Message) (models.Reply, error) {
	return f(ctx, msg)
}

// DefaultHandler 不回复任何内容
var DefaultHandler Handler = HandlerFunc(func(context.Context, models.Message) (models.Reply, error) {
	return nil, nil
})

// Processor 按消息类型把实体分发给注册的处理器。
//
// 处理器在启动时通过 Register 注册，开始处理请求后不应再修改。
type Processor struct {
	handlers map[models.Kind]Handler
	fallback Handler
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewProcessor 创建分发器，未注册的类型使用 DefaultHandler
func NewProcessor(logger zerolog.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		handlers: make(map[models.Kind]Handler),
		fallback: DefaultHandler,
		logger:   logger,
		metrics:  m,
	}
}

// Register 为 kind 注册处理器，重复注册会覆盖之前的处理器
func (p *Processor) Register(kind models.Kind, h Handler) {
	p.handlers[kind] = h
}

// RegisterFunc 同 Register
func (p *Processor) RegisterFunc(kind models.Kind, fn HandlerFunc) {
	p.Register(kind, fn)
}

// SetDefault 替换未注册类型使用的处理器
func (p *Processor) SetDefault(h Handler) {
	p.fallback = h
}

// Process 调用 msg 对应的处理器。处理器返回错误或 panic 时记录日志并返回 nil，
// 由调用方回复确认，保证一个处理器故障不影响对微信的应答。
func (p *Processor) Process(ctx context.Context, msg models.Message) models.Reply {
	h, ok := p.handlers[msg.Kind()]
	if !ok {
		h = p.fallback
	}

	reply, err := p.invoke(ctx, h, msg)
	if err != nil {
		base := msg.Base()
		log := logging.FromContext(ctx, p.logger)
		log.Error().Err(err).
			Str("kind", string(msg.Kind())).
			Str("from", base.FromUserName).
			Str("msg_id", base.MsgID).
			Msg("消息处理器执行失败")
		p.metrics.Message(string(msg.Kind()), metrics.OutcomeHandlerError)
		return nil
	}
	return reply
}

func (p *Processor) invoke(ctx context.Context, h Handler, msg models.Message) (reply models.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, msg)
}
