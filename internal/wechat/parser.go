package wechat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/johnqing-424/wechat-callback/internal/models"
)

// 推送 XML 中的 MsgType 取值
const (
	msgTypeText       = "text"
	msgTypeImage      = "image"
	msgTypeVoice      = "voice"
	msgTypeVideo      = "video"
	msgTypeShortVideo = "shortvideo"
	msgTypeLocation   = "location"
	msgTypeLink       = "link"
	msgTypeEvent      = "event"
)

// fields 是根元素下一级子元素的文本
type fields map[string]string

func readFields(root *etree.Element) fields {
	f := make(fields, len(root.ChildElements()))
	for _, el := range root.ChildElements() {
		f[el.Tag] = el.Text()
	}
	return f
}

type numberReader struct {
	f   fields
	err error
}

func (r *numberReader) int64(name string) int64 {
	s := strings.TrimSpace(r.f[name])
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %v", ErrMalformedMessage, name, err)
	}
	return v
}

func (r *numberReader) float(name string) float64 {
	s := strings.TrimSpace(r.f[name])
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %v", ErrMalformedMessage, name, err)
	}
	return v
}

// Parse 将明文 XML 解析为消息实体。无法识别的 MsgType/Event 返回 *models.Unrecognized，
// 只有 XML 本身不合法时才返回错误。
func Parse(canonical string) (models.Message, error) {
	root, err := readRoot([]byte(canonical))
	if err != nil {
		return nil, err
	}
	f := readFields(root)
	num := &numberReader{f: f}

	h := models.Header{
		ToUserName:   f["ToUserName"],
		FromUserName: f["FromUserName"],
		CreateTime:   num.int64("CreateTime"),
		MsgType:      strings.TrimSpace(f["MsgType"]),
		MsgID:        strings.TrimSpace(f["MsgId"]),
		Event:        strings.TrimSpace(f["Event"]),
	}

	var msg models.Message
	switch strings.ToLower(h.MsgType) {
	case msgTypeText:
		msg = &models.TextMessage{Header: h, Content: f["Content"]}
	case msgTypeImage:
		msg = &models.ImageMessage{Header: h, PicURL: f["PicUrl"], MediaID: f["MediaId"]}
	case msgTypeVoice:
		msg = &models.VoiceMessage{Header: h, MediaID: f["MediaId"], Format: f["Format"], Recognition: f["Recognition"]}
	case msgTypeVideo:
		msg = &models.VideoMessage{Header: h, MediaID: f["MediaId"], ThumbMediaID: f["ThumbMediaId"]}
	case msgTypeShortVideo:
		msg = &models.ShortVideoMessage{Header: h, MediaID: f["MediaId"], ThumbMediaID: f["ThumbMediaId"]}
	case msgTypeLocation:
		msg = &models.LocationMessage{
			Header:    h,
			LocationX: num.float("Location_X"),
			LocationY: num.float("Location_Y"),
			Scale:     int(num.int64("Scale")),
			Label:     f["Label"],
		}
	case msgTypeLink:
		msg = &models.LinkMessage{Header: h, Title: f["Title"], Description: f["Description"], URL: f["Url"]}
	case msgTypeEvent:
		msg = parseEvent(h, f, num)
	default:
		msg = &models.Unrecognized{Header: h}
	}

	if num.err != nil {
		return nil, num.err
	}
	return msg, nil
}

func parseEvent(h models.Header, f fields, num *numberReader) models.Message {
	key := f["EventKey"]
	switch strings.ToUpper(h.Event) {
	case strings.ToUpper(models.EventSubscribe):
		// 未关注用户扫描带参数二维码时，subscribe 事件带 qrscene_ 前缀的 EventKey 和 Ticket
		if strings.HasPrefix(key, models.QRScenePrefix) || f["Ticket"] != "" {
			return &models.ScanSubscribeEvent{Header: h, EventKey: key, Ticket: f["Ticket"]}
		}
		return &models.SubscribeEvent{Header: h}
	case strings.ToUpper(models.EventUnsubscribe):
		return &models.UnsubscribeEvent{Header: h}
	case models.EventScan:
		return &models.ScanEvent{Header: h, EventKey: key, Ticket: f["Ticket"]}
	case models.EventClick:
		return &models.ClickEvent{Header: h, EventKey: key}
	case models.EventView:
		return &models.ViewEvent{Header: h, EventKey: key}
	case models.EventLocation:
		return &models.LocationEvent{
			Header:    h,
			Latitude:  num.float("Latitude"),
			Longitude: num.float("Longitude"),
			Precision: num.float("Precision"),
		}
	default:
		return &models.Unrecognized{Header: h}
	}
}
