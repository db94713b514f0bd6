package wechat

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature 将参数按字典序排序后拼接，计算 SHA1 十六进制摘要
func Signature(parts ...string) string {
	strs := append([]string(nil), parts...)
	sort.Strings(strs)

	h := sha1.New()
	h.Write([]byte(strings.Join(strs, "")))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify 校验 signature 是否等于 sha1(sort(token, timestamp, nonce))，token 为空时恒为 false
func Verify(token, timestamp, nonce, signature string) bool {
	if token == "" {
		return false
	}
	return equal(Signature(token, timestamp, nonce), signature)
}

func equal(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// Verifier 持有服务器配置中的 Token，负责请求签名的校验和生成
type Verifier struct {
	token string
}

// NewVerifier 创建校验器，Token 为空时返回 ErrEmptyToken
func NewVerifier(token string) (*Verifier, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &Verifier{token: token}, nil
}

// Verify 校验 URL 上的 signature 参数
func (v *Verifier) Verify(timestamp, nonce, signature string) bool {
	return Verify(v.token, timestamp, nonce, signature)
}

// VerifyMessage 校验安全模式下的 msg_signature，签名内容包含密文
func (v *Verifier) VerifyMessage(timestamp, nonce, encrypt, msgSignature string) bool {
	return equal(v.Sign(timestamp, nonce, encrypt), msgSignature)
}

// Sign 计算 token 与 parts 的签名
func (v *Verifier) Sign(parts ...string) string {
	return Signature(append([]string{v.token}, parts...)...)
}
