package wechat

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/logging"
)

// maxBodySize 限制推送报文大小
const maxBodySize = 1 << 20

// Server 把 Pipeline 挂到 gin 路由上
type Server struct {
	pipeline *Pipeline
	logger   zerolog.Logger
}

// NewServer 创建回调服务
func NewServer(p *Pipeline, logger zerolog.Logger) *Server {
	return &Server{pipeline: p, logger: logger}
}

// Register 在 path 上注册 URL 验证（GET）和消息接收（POST）
func (s *Server) Register(r gin.IRoutes, path string) {
	r.GET(path, s.VerifyURL)
	r.POST(path, s.HandleMessage)
}

type verifyQuery struct {
	SignatureParams
	EchoStr string `form:"echostr" binding:"required"`
}

// VerifyURL 是微信服务器配置时的 Token 验证回调，签名正确时原样返回 echostr
func (s *Server) VerifyURL(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !s.pipeline.Verifier().Verify(q.Timestamp, q.Nonce, q.Signature) {
		log := logging.FromContext(c.Request.Context(), s.logger)
		log.Warn().Msg("URL 验证签名错误")
		c.Status(http.StatusUnauthorized)
		return
	}
	c.String(http.StatusOK, q.EchoStr)
}

// HandleMessage 处理用户消息和事件推送
func (s *Server) HandleMessage(c *gin.Context) {
	log := logging.FromContext(c.Request.Context(), s.logger)

	var params SignatureParams
	if err := c.ShouldBindQuery(&params); err != nil {
		log.Warn().Err(err).Msg("缺少签名参数")
		c.Status(http.StatusUnauthorized)
		return
	}

	defer c.Request.Body.Close()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		log.Warn().Err(err).Msg("读取请求体失败")
		c.Status(http.StatusBadRequest)
		return
	}

	out, err := s.pipeline.Serve(c.Request.Context(), Request{Body: body, Params: params})
	switch {
	case err == nil:
	case errors.Is(err, ErrAuthenticationFailed):
		c.Status(http.StatusUnauthorized)
		return
	case errors.Is(err, ErrDecryptionFailed), errors.Is(err, ErrMalformedMessage):
		c.Status(http.StatusBadRequest)
		return
	default:
		log.Error().Err(err).Msg("回复加密失败")
		c.Status(http.StatusInternalServerError)
		return
	}

	if string(out) == AckBody {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", out)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}
