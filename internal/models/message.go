package models

// Kind 是消息分发使用的类型标签，普通消息为 MsgType，事件为 "event." 前缀加事件名
type Kind string

const (
	KindText       Kind = "text"
	KindImage      Kind = "image"
	KindVoice      Kind = "voice"
	KindVideo      Kind = "video"
	KindShortVideo Kind = "shortvideo"
	KindLocation   Kind = "location"
	KindLink       Kind = "link"

	KindSubscribeEvent     Kind = "event.subscribe"
	KindUnsubscribeEvent   Kind = "event.unsubscribe"
	KindScanEvent          Kind = "event.scan"
	KindScanSubscribeEvent Kind = "event.scan_subscribe"
	KindClickEvent         Kind = "event.click"
	KindViewEvent          Kind = "event.view"
	KindLocationEvent      Kind = "event.location"

	// KindUnrecognized 表示无法识别的 MsgType 或 Event
	KindUnrecognized Kind = "unrecognized"
)

// Kinds 返回所有可注册处理器的类型
func Kinds() []Kind {
	return []Kind{
		KindText, KindImage, KindVoice, KindVideo, KindShortVideo, KindLocation, KindLink,
		KindSubscribeEvent, KindUnsubscribeEvent, KindScanEvent, KindScanSubscribeEvent,
		KindClickEvent, KindViewEvent, KindLocationEvent, KindUnrecognized,
	}
}

// Message 是从微信推送中解析出的消息或事件
type Message interface {
	Kind() Kind
	Base() *Header
}

// Header 是所有消息和事件共有的字段
type Header struct {
	ToUserName   string
	FromUserName string
	CreateTime   int64
	MsgType      string
	MsgID        string // 事件没有 MsgId
	Event        string // 仅事件
}

func (h *Header) Base() *Header { return h }

// TextMessage 文本消息
type TextMessage struct {
	Header
	Content string
}

// ImageMessage 图片消息
type ImageMessage struct {
	Header
	PicURL  string
	MediaID string
}

// VoiceMessage 语音消息，Recognition 仅在开启语音识别后存在
type VoiceMessage struct {
	Header
	MediaID     string
	Format      string
	Recognition string
}

// VideoMessage 视频消息
type VideoMessage struct {
	Header
	MediaID      string
	ThumbMediaID string
}

// ShortVideoMessage 小视频消息
type ShortVideoMessage struct {
	Header
	MediaID      string
	ThumbMediaID string
}

// LocationMessage 地理位置消息
type LocationMessage struct {
	Header
	LocationX float64
	LocationY float64
	Scale     int
	Label     string
}

// LinkMessage 链接消息
type LinkMessage struct {
	Header
	Title       string
	Description string
	URL         string
}

func (*TextMessage) Kind() Kind       { return KindText }
func (*ImageMessage) Kind() Kind      { return KindImage }
func (*VoiceMessage) Kind() Kind      { return KindVoice }
func (*VideoMessage) Kind() Kind      { return KindVideo }
func (*ShortVideoMessage) Kind() Kind { return KindShortVideo }
func (*LocationMessage) Kind() Kind   { return KindLocation }
func (*LinkMessage) Kind() Kind       { return KindLink }

// Unrecognized 是未知 MsgType/Event 的占位变体，交由默认处理器应答
type Unrecognized struct {
	Header
}

func (*Unrecognized) Kind() Kind { return KindUnrecognized }
