package wechat

import (
	"encoding/xml"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testToken  = "wechat_rag_token"
	testAESKey = "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFG"
	testAppID  = "wx39fc841a05350758"
	testTS     = "1700000000"
	testNonce  = "123456"
)

const textXML = `<xml><ToUserName><![CDATA[gh_123]]></ToUserName>` +
	`<FromUserName><![CDATA[userA]]></FromUserName>` +
	`<CreateTime>1700000000</CreateTime>` +
	`<MsgType><![CDATA[text]]></MsgType>` +
	`<Content><![CDATA[hello]]></Content>` +
	`<MsgId>555</MsgId></xml>`

func signedParams() SignatureParams {
	return SignatureParams{
		Timestamp: testTS,
		Nonce:     testNonce,
		Signature: Signature(testToken, testTS, testNonce),
	}
}

type inboundEnvelope struct {
	XMLName    xml.Name `xml:"xml"`
	ToUserName cdata    `xml:"ToUserName"`
	Encrypt    cdata    `xml:"Encrypt"`
}

// cipherRequest 模拟微信安全模式推送
func cipherRequest(t *testing.T, plain string) Request {
	t.Helper()
	c, err := NewCrypter(testAESKey, testAppID)
	require.NoError(t, err)
	encrypt, err := c.Encrypt([]byte(plain))
	require.NoError(t, err)

	body, err := xml.Marshal(inboundEnvelope{ToUserName: cdata{"gh_123"}, Encrypt: cdata{encrypt}})
	require.NoError(t, err)

	params := signedParams()
	params.EncryptType = "aes"
	params.MsgSignature = Signature(testToken, testTS, testNonce, encrypt)
	return Request{Body: body, Params: params}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
