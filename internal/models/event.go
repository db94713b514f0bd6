package models

import "strings"

// 微信推送中 Event 字段的取值
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventScan        = "SCAN"
	EventClick       = "CLICK"
	EventView        = "VIEW"
	EventLocation    = "LOCATION"
)

// QRScenePrefix 是未关注用户扫码关注时 EventKey 的前缀
const QRScenePrefix = "qrscene_"

// SubscribeEvent 关注事件
type SubscribeEvent struct {
	Header
}

// UnsubscribeEvent 取消关注事件
type UnsubscribeEvent struct {
	Header
}

// ScanEvent 已关注用户扫描带参数二维码
type ScanEvent struct {
	Header
	EventKey string
	Ticket   string
}

// ScanSubscribeEvent 未关注用户扫描带参数二维码并关注
type ScanSubscribeEvent struct {
	Header
	EventKey string
	Ticket   string
}

// SceneID 返回去掉 qrscene_ 前缀的场景值
func (e *ScanSubscribeEvent) SceneID() string {
	return strings.TrimPrefix(e.EventKey, QRScenePrefix)
}

// ClickEvent 点击菜单拉取消息
type ClickEvent struct {
	Header
	EventKey string
}

// ViewEvent 点击菜单跳转链接，EventKey 为跳转 URL
type ViewEvent struct {
	Header
	EventKey string
}

// LocationEvent 上报地理位置
type LocationEvent struct {
	Header
	Latitude  float64
	Longitude float64
	Precision float64
}

func (*SubscribeEvent) Kind() Kind     { return KindSubscribeEvent }
func (*UnsubscribeEvent) Kind() Kind   { return KindUnsubscribeEvent }
func (*ScanEvent) Kind() Kind          { return KindScanEvent }
func (*ScanSubscribeEvent) Kind() Kind { return KindScanSubscribeEvent }
func (*ClickEvent) Kind() Kind         { return KindClickEvent }
func (*ViewEvent) Kind() Kind          { return KindViewEvent }
func (*LocationEvent) Kind() Kind      { return KindLocationEvent }
