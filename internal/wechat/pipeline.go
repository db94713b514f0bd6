package wechat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/logging"
	"github.com/johnqing-424/wechat-callback/internal/metrics"
	"github.com/johnqing-424/wechat-callback/internal/models"
)

// 解析前失败时的指标标签
const unknownKind = "unknown"

// AckBody 是不需要回复时返回给微信的确认内容，两种模式下都不加密
const AckBody = "success"

// Request 是一次回调推送
type Request struct {
	Body   []byte
	Params SignatureParams
}

// Options 组装 Pipeline 的各个部件
type Options struct {
	Verifier   *Verifier
	Middleware Middleware
	// Repeat 为 nil 时不做去重
	Repeat    *RepeatHandler
	Processor *Processor
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Pipeline 串联签名校验、解密、去重、解析、分发和回复加密。
// 自身不保存请求状态，所有共享状态都在缓存中。
type Pipeline struct {
	verifier   *Verifier
	middleware Middleware
	repeat     *RepeatHandler
	processor  *Processor
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewPipeline 创建处理管道
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Verifier == nil {
		return nil, ErrEmptyToken
	}
	if opts.Middleware == nil {
		return nil, errors.New("wechat: middleware is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("wechat: processor is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		verifier:   opts.Verifier,
		middleware: opts.Middleware,
		repeat:     opts.Repeat,
		processor:  opts.Processor,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}, nil
}

// Verifier 返回管道使用的签名校验器
func (p *Pipeline) Verifier() *Verifier {
	return p.verifier
}

// Serve 处理一次推送并返回响应体。
//
// 签名错误返回 ErrAuthenticationFailed，密文错误返回 ErrDecryptionFailed，
// XML 不合法返回 ErrMalformedMessage，这些情况下不调用任何处理器。
func (p *Pipeline) Serve(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	defer func() { p.metrics.ObserveDuration(time.Since(start)) }()

	log := logging.FromContext(ctx, p.logger)

	if !p.verifier.Verify(req.Params.Timestamp, req.Params.Nonce, req.Params.Signature) {
		p.metrics.Message(unknownKind, metrics.OutcomeAuthFailed)
		return nil, ErrAuthenticationFailed
	}

	canonical, err := p.middleware.Decode(req.Body, req.Params)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			p.metrics.Message(unknownKind, metrics.OutcomeDecryptFailed)
		} else {
			p.metrics.Message(unknownKind, metrics.OutcomeMalformed)
		}
		log.Warn().Err(err).Msg("消息解码失败")
		return nil, err
	}

	msg, err := Parse(canonical)
	if err != nil {
		p.metrics.Message(unknownKind, metrics.OutcomeMalformed)
		log.Warn().Err(err).Msg("消息解析失败")
		return nil, err
	}

	base := msg.Base()
	kind := string(msg.Kind())
	log = log.With().Str("kind", kind).Str("from", base.FromUserName).Str("msg_id", base.MsgID).Logger()

	var key string
	if p.repeat != nil {
		key = DedupKey(msg, canonical)
		if p.repeat.IsRepeat(ctx, key) {
			p.metrics.Message(kind, metrics.OutcomeDuplicate)
			prev, ok := p.repeat.Recall(ctx, key)
			if !ok || prev == AckBody {
				log.Debug().Msg("重复推送，回复确认")
				return []byte(AckBody), nil
			}
			log.Debug().Msg("重复推送，返回已生成的回复")
			return p.middleware.Encode(prev)
		}
	}

	body := p.reply(ctx, log, msg)

	if p.repeat != nil {
		p.repeat.Remember(ctx, key, body)
	}
	if body == AckBody {
		p.metrics.Message(kind, metrics.OutcomeAcked)
		return []byte(AckBody), nil
	}
	p.metrics.Message(kind, metrics.OutcomeReplied)
	return p.middleware.Encode(body)
}

// reply 调用处理器并序列化回复，没有回复或序列化失败时返回 AckBody
func (p *Pipeline) reply(ctx context.Context, log zerolog.Logger, msg models.Message) string {
	r := p.processor.Process(ctx, msg)
	if r == nil {
		return AckBody
	}

	base := msg.Base()
	out, err := Serialize(r, base.FromUserName, base.ToUserName, p.now().Unix())
	if err != nil {
		log.Error().Err(err).Msg("回复序列化失败，改为回复确认")
		return AckBody
	}
	return out
}
