package wechat

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// EncodingAESKey 固定 43 位，补一个 "=" 后 base64 解码得到 32 字节 AES 密钥
	encodingAESKeyLen = 43
	// 微信按 32 字节块做 PKCS#7 填充
	padBlockSize = 32
	randomLen    = 16
	lengthLen    = 4
)

// Crypter 实现微信消息体的 AES-256-CBC 加解密，IV 取密钥前 16 字节。
//
// 明文格式：random(16) | msg_len(4, 大端) | msg | appid
type Crypter struct {
	appID string
	key   []byte
	block cipher.Block
	rand  io.Reader
}

// NewCrypter 根据 EncodingAESKey 和 AppID 创建加解密器
func NewCrypter(encodingAESKey, appID string) (*Crypter, error) {
	if len(encodingAESKey) != encodingAESKeyLen {
		return nil, fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidAESKey, encodingAESKeyLen, len(encodingAESKey))
	}
	key, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAESKey, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAESKey, err)
	}
	return &Crypter{appID: appID, key: key, block: block, rand: rand.Reader}, nil
}

// Encrypt 加密消息并返回 base64 密文
func (c *Crypter) Encrypt(msg []byte) (string, error) {
	buf := make([]byte, randomLen+lengthLen, randomLen+lengthLen+len(msg)+len(c.appID)+padBlockSize)
	if _, err := io.ReadFull(c.rand, buf[:randomLen]); err != nil {
		return "", fmt.Errorf("generate random prefix: %w", err)
	}
	binary.BigEndian.PutUint32(buf[randomLen:], uint32(len(msg)))
	buf = append(buf, msg...)
	buf = append(buf, c.appID...)
	buf = pkcs7Pad(buf, padBlockSize)

	out := make([]byte, len(buf))
	cipher.NewCBCEncrypter(c.block, c.key[:aes.BlockSize]).CryptBlocks(out, buf)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt 解密 base64 密文，校验填充、长度和 AppID，所有失败都包装为 ErrDecryptionFailed
func (c *Crypter) Decrypt(encrypted string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecryptionFailed, err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrDecryptionFailed, len(data))
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.key[:aes.BlockSize]).CryptBlocks(plain, data)

	plain, err = pkcs7Unpad(plain, padBlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(plain) < randomLen+lengthLen {
		return nil, fmt.Errorf("%w: plaintext too short", ErrDecryptionFailed)
	}

	msgLen := int(binary.BigEndian.Uint32(plain[randomLen : randomLen+lengthLen]))
	rest := plain[randomLen+lengthLen:]
	if msgLen > len(rest) {
		return nil, fmt.Errorf("%w: message length %d exceeds payload", ErrDecryptionFailed, msgLen)
	}
	if !bytes.Equal(rest[msgLen:], []byte(c.appID)) {
		return nil, fmt.Errorf("%w: appid mismatch", ErrDecryptionFailed)
	}
	return rest[:msgLen], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n < 1 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
