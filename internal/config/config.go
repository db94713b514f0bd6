// Package config 加载回调服务的 YAML 配置。
//
// 配置文件支持 ${VAR} 形式的环境变量展开，Token、EncodingAESKey 等敏感值可以在运行时注入。
// 加载后配置只读，各组件通过构造参数获取需要的值。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config 是配置的根结构体
type Config struct {
	WeChat  WeChatConfig  `yaml:"wechat"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	RagFlow RagFlowConfig `yaml:"ragflow"`
	Log     LogConfig     `yaml:"log"`
}

// WeChatConfig 包含公众号开发配置
type WeChatConfig struct {
	AppID          string      `yaml:"app_id" validate:"required"`
	AppSecret      string      `yaml:"app_secret"`
	Token          string      `yaml:"token" validate:"required"`
	EncodingAESKey string      `yaml:"encoding_aes_key"`
	MessageMode    string      `yaml:"message_mode" validate:"oneof=plain cipher"`
	Dedup          DedupConfig `yaml:"dedup"`
}

// DedupConfig 控制重复消息处理
type DedupConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl" validate:"gt=0"`
}

// CacheConfig 选择缓存实现
type CacheConfig struct {
	Type  string      `yaml:"type" validate:"oneof=memory redis"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig 包含 Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
	Prefix   string `yaml:"prefix"`
}

// ServerConfig 包含服务器相关配置
type ServerConfig struct {
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	Path        string `yaml:"path" validate:"startswith=/"`
	MetricsPath string `yaml:"metrics_path" validate:"omitempty,startswith=/"`
}

// RagFlowConfig 包含 RAGFlow 服务配置，BaseURL 为空时不启用
type RagFlowConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey         string        `yaml:"api_key"`
	ChatID         string        `yaml:"chat_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LogConfig 包含日志配置
type LogConfig struct {
	Level   string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Console bool   `yaml:"console"`
}

// SearchPaths 是未指定配置文件时依次查找的位置
func SearchPaths() []string {
	return []string{
		"config.yml",    // 当前目录
		"../config.yml", // 上级目录
		filepath.Join(os.Getenv("HOME"), "config.yml"), // 用户主目录
	}
}

// Locate 返回第一个存在的配置文件
func Locate() (string, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config file not found in %v", SearchPaths())
}

// Load 读取并校验配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse 展开环境变量、解析 YAML、填充默认值并校验
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default 返回默认配置，不含任何密钥
func Default() *Config {
	return &Config{
		WeChat: WeChatConfig{
			MessageMode: "plain",
			Dedup: DedupConfig{
				Enabled: true,
				TTL:     2 * time.Minute,
			},
		},
		Cache:  CacheConfig{Type: "memory"},
		Server: ServerConfig{Port: 8000, Path: "/wechat", MetricsPath: "/metrics"},
		RagFlow: RagFlowConfig{
			RequestTimeout: 4 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyDefaults 补齐显式置空的字段
func (c *Config) applyDefaults() {
	d := Default()
	if c.WeChat.MessageMode == "" {
		c.WeChat.MessageMode = d.WeChat.MessageMode
	}
	if c.WeChat.Dedup.TTL == 0 {
		c.WeChat.Dedup.TTL = d.WeChat.Dedup.TTL
	}
	if c.Cache.Type == "" {
		c.Cache.Type = d.Cache.Type
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Path == "" {
		c.Server.Path = d.Server.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.RagFlow.RequestTimeout == 0 {
		c.RagFlow.RequestTimeout = d.RagFlow.RequestTimeout
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验字段取值和字段间约束
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.WeChat.MessageMode == "cipher" && len(c.WeChat.EncodingAESKey) != 43 {
		errs = append(errs, errors.New("wechat.encoding_aes_key must be 43 characters in cipher mode"))
	}
	if c.Cache.Type == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr is required for redis cache"))
	}
	if c.RagFlow.BaseURL != "" && c.RagFlow.ChatID == "" {
		errs = append(errs, errors.New("ragflow.chat_id is required when ragflow.base_url is set"))
	}
	return errors.Join(errs...)
}
