// Package ragflow 用 RAGFlow 对话接口回答文本消息，是 wechat.Handler 的一个实现。
package ragflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/johnqing-424/wechat-callback/internal/cache"
	"github.com/johnqing-424/wechat-callback/internal/logging"
	"github.com/johnqing-424/wechat-callback/internal/models"
	"github.com/johnqing-424/wechat-callback/internal/wechat"
)

// 微信要求 5 秒内回复
const defaultTimeout = 4 * time.Second

const sessionTTL = 30 * time.Minute

// FallbackAnswer 是查询失败时回复给用户的内容
const FallbackAnswer = "抱歉，系统暂时无法回答您的问题，请稍后再试。"

// ErrQuery 表示 RAGFlow 返回错误
var ErrQuery = errors.New("ragflow: query failed")

type completionRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream"`
}

type completionResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	} `json:"data"`
}

// Config 是 RAGFlow 连接参数
type Config struct {
	BaseURL string
	APIKey  string
	ChatID  string
	Timeout time.Duration
}

// Client 调用 RAGFlow 对话接口，按用户保持会话
type Client struct {
	cfg      Config
	http     *http.Client
	sessions cache.Cache
	logger   zerolog.Logger
}

// NewClient 创建客户端，sessions 用于保存每个用户的 session_id
func NewClient(cfg Config, sessions cache.Cache, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:      cfg,
		http:     &http.Client{},
		sessions: sessions,
		logger:   logger,
	}
}

func sessionKey(userID string) string {
	return "ragflow:session:" + userID
}

// Ask 向 RAGFlow 提问并返回清理后的答案
func (c *Client) Ask(ctx context.Context, question, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	sessionID, _, err := c.sessions.Get(ctx, sessionKey(userID))
	if err != nil {
		c.logger.Warn().Err(err).Msg("读取会话缓存失败")
	}

	body, err := sonic.Marshal(completionRequest{Question: question, SessionID: sessionID})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/api/v1/chats/%s/completions", c.cfg.BaseURL, c.cfg.ChatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrQuery, err)
	}
	var result completionResponse
	if err := sonic.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrQuery, err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("%w: code %d: %s", ErrQuery, result.Code, result.Message)
	}

	if result.Data.SessionID != "" && result.Data.SessionID != sessionID {
		if err := c.sessions.Set(ctx, sessionKey(userID), result.Data.SessionID, sessionTTL); err != nil {
			c.logger.Warn().Err(err).Msg("保存会话失败")
		}
	}
	return cleanAnswer(result.Data.Answer), nil
}

// Handler 返回处理文本消息的 wechat.Handler。查询失败时回复 FallbackAnswer。
func (c *Client) Handler() wechat.Handler {
	return wechat.HandlerFunc(func(ctx context.Context, msg models.Message) (models.Reply, error) {
		text, ok := msg.(*models.TextMessage)
		if !ok {
			return nil, fmt.Errorf("ragflow: unexpected message kind %s", msg.Kind())
		}
		if strings.TrimSpace(text.Content) == "" {
			return nil, nil
		}

		answer, err := c.Ask(ctx, text.Content, text.FromUserName)
		if err != nil || answer == "" {
			log := logging.FromContext(ctx, c.logger)
			log.Warn().Err(err).Str("from", text.FromUserName).Msg("RAGFlow 查询失败")
			answer = FallbackAnswer
		}
		reply, err := models.NewTextReply(answer)
		if err != nil {
			return nil, err
		}
		return reply, nil
	})
}

// cleanAnswer 去掉 RAGFlow 回答中的引用标记
func cleanAnswer(answer string) string {
	for _, mark := range []string{"CITATIONS: ", "CITATIONS:"} {
		answer = strings.ReplaceAll(answer, mark, "")
	}
	return strings.TrimSpace(answer)
}
