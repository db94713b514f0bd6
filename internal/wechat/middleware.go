package wechat

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// Mode 是消息加解密方式，启动时确定
type Mode string

const (
	ModePlain  Mode = "plain"
	ModeCipher Mode = "cipher"
)

// SignatureParams 是微信回调 URL 上携带的签名参数
type SignatureParams struct {
	Timestamp    string `form:"timestamp" binding:"required"`
	Nonce        string `form:"nonce" binding:"required"`
	Signature    string `form:"signature" binding:"required"`
	MsgSignature string `form:"msg_signature"`
	EncryptType  string `form:"encrypt_type"`
}

// Middleware 在原始报文和明文 XML 之间转换
type Middleware interface {
	// Decode 将请求体转换为明文 XML
	Decode(body []byte, params SignatureParams) (string, error)
	// Encode 将明文回复 XML 转换为线上格式
	Encode(reply string) ([]byte, error)
	Mode() Mode
}

// MiddlewareConfig 是创建消息中间件所需的配置
type MiddlewareConfig struct {
	Mode           Mode
	Token          string
	EncodingAESKey string
	AppID          string
}

// NewMiddleware 根据配置选择明文或密文中间件
func NewMiddleware(cfg MiddlewareConfig) (Middleware, error) {
	switch cfg.Mode {
	case ModePlain, "":
		return Plain{}, nil
	case ModeCipher:
		return NewCipher(cfg.Token, cfg.EncodingAESKey, cfg.AppID)
	default:
		return nil, fmt.Errorf("wechat: unknown message mode %q", cfg.Mode)
	}
}

// Plain 是明文模式，只检查 XML 是否合法
type Plain struct{}

func (Plain) Mode() Mode { return ModePlain }

func (Plain) Decode(body []byte, _ SignatureParams) (string, error) {
	if _, err := readRoot(body); err != nil {
		return "", err
	}
	return string(body), nil
}

func (Plain) Encode(reply string) ([]byte, error) {
	return []byte(reply), nil
}

// Cipher 是安全模式，消息体使用 AES 加密并带 msg_signature
type Cipher struct {
	verifier *Verifier
	crypter  *Crypter
	now      func() time.Time
}

// NewCipher 创建安全模式中间件
func NewCipher(token, encodingAESKey, appID string) (*Cipher, error) {
	verifier, err := NewVerifier(token)
	if err != nil {
		return nil, err
	}
	crypter, err := NewCrypter(encodingAESKey, appID)
	if err != nil {
		return nil, err
	}
	return &Cipher{verifier: verifier, crypter: crypter, now: time.Now}, nil
}

func (*Cipher) Mode() Mode { return ModeCipher }

// Decode 校验 msg_signature 后解密 Encrypt 字段
func (c *Cipher) Decode(body []byte, params SignatureParams) (string, error) {
	root, err := readRoot(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	el := root.SelectElement("Encrypt")
	if el == nil || el.Text() == "" {
		return "", fmt.Errorf("%w: missing Encrypt element", ErrDecryptionFailed)
	}
	encrypt := el.Text()

	if !c.verifier.VerifyMessage(params.Timestamp, params.Nonce, encrypt, params.MsgSignature) {
		return "", fmt.Errorf("%w: msg_signature mismatch", ErrDecryptionFailed)
	}

	plain, err := c.crypter.Decrypt(encrypt)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

type cdata struct {
	Value string `xml:",cdata"`
}

type cipherEnvelope struct {
	XMLName      xml.Name `xml:"xml"`
	Encrypt      cdata    `xml:"Encrypt"`
	MsgSignature cdata    `xml:"MsgSignature"`
	TimeStamp    string   `xml:"TimeStamp"`
	Nonce        cdata    `xml:"Nonce"`
}

// Encode 加密回复并用新的随机 nonce 签名
func (c *Cipher) Encode(reply string) ([]byte, error) {
	encrypt, err := c.crypter.Encrypt([]byte(reply))
	if err != nil {
		return nil, err
	}
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	return xml.Marshal(cipherEnvelope{
		Encrypt:      cdata{encrypt},
		MsgSignature: cdata{c.verifier.Sign(timestamp, nonce, encrypt)},
		TimeStamp:    timestamp,
		Nonce:        cdata{nonce},
	})
}

func randomNonce() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return strconv.FormatUint(uint64(binary.BigEndian.Uint32(b[:])), 10), nil
}

func readRoot(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedMessage)
	}
	return root, nil
}
