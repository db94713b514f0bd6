package wechat

import "errors"

var (
	// ErrEmptyToken 表示未配置 Token，属于配置错误
	ErrEmptyToken = errors.New("wechat: token is not configured")
	// ErrAuthenticationFailed 表示请求签名校验失败
	ErrAuthenticationFailed = errors.New("wechat: signature verification failed")
	// ErrDecryptionFailed 表示密文信封格式错误、被篡改或 AppID 不匹配
	ErrDecryptionFailed = errors.New("wechat: message decryption failed")
	// ErrMalformedMessage 表示消息体不是合法 XML
	ErrMalformedMessage = errors.New("wechat: malformed message")
	// ErrUnknownReply 表示回复类型没有对应的序列化器
	ErrUnknownReply = errors.New("wechat: unknown reply type")
	// ErrInvalidAESKey 表示 EncodingAESKey 不是 43 位合法 base64
	ErrInvalidAESKey = errors.New("wechat: invalid encoding aes key")
)
