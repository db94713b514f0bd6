package wechat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqing-424/wechat-callback/internal/models"
)

func wrap(inner string) string {
	return `<xml><ToUserName><![CDATA[gh_123]]></ToUserName>` +
		`<FromUserName><![CDATA[userA]]></FromUserName>` +
		`<CreateTime>1700000000</CreateTime>` + inner + `</xml>`
}

func TestParse_Messages(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want models.Message
	}{
		{
			name: "text",
			xml:  textXML,
			want: &models.TextMessage{Content: "hello"},
		},
		{
			name: "image",
			xml:  wrap(`<MsgType><![CDATA[image]]></MsgType><PicUrl><![CDATA[http://img/1.jpg]]></PicUrl><MediaId><![CDATA[m1]]></MediaId><MsgId>1</MsgId>`),
			want: &models.ImageMessage{PicURL: "http://img/1.jpg", MediaID: "m1"},
		},
		{
			name: "voice",
			xml:  wrap(`<MsgType><![CDATA[voice]]></MsgType><MediaId><![CDATA[m2]]></MediaId><Format><![CDATA[amr]]></Format><Recognition><![CDATA[你好]]></Recognition><MsgId>2</MsgId>`),
			want: &models.VoiceMessage{MediaID: "m2", Format: "amr", Recognition: "你好"},
		},
		{
			name: "video",
			xml:  wrap(`<MsgType><![CDATA[video]]></MsgType><MediaId><![CDATA[m3]]></MediaId><ThumbMediaId><![CDATA[t3]]></ThumbMediaId><MsgId>3</MsgId>`),
			want: &models.VideoMessage{MediaID: "m3", ThumbMediaID: "t3"},
		},
		{
			name: "shortvideo",
			xml:  wrap(`<MsgType><![CDATA[shortvideo]]></MsgType><MediaId><![CDATA[m4]]></MediaId><ThumbMediaId><![CDATA[t4]]></ThumbMediaId><MsgId>4</MsgId>`),
			want: &models.ShortVideoMessage{MediaID: "m4", ThumbMediaID: "t4"},
		},
		{
			name: "location",
			xml:  wrap(`<MsgType><![CDATA[location]]></MsgType><Location_X>23.134521</Location_X><Location_Y>113.358803</Location_Y><Scale>20</Scale><Label><![CDATA[位置信息]]></Label><MsgId>5</MsgId>`),
			want: &models.LocationMessage{LocationX: 23.134521, LocationY: 113.358803, Scale: 20, Label: "位置信息"},
		},
		{
			name: "link",
			xml:  wrap(`<MsgType><![CDATA[link]]></MsgType><Title><![CDATA[标题]]></Title><Description><![CDATA[描述]]></Description><Url><![CDATA[http://example.com]]></Url><MsgId>6</MsgId>`),
			want: &models.LinkMessage{Title: "标题", Description: "描述", URL: "http://example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(tt.xml)
			require.NoError(t, err)
			require.IsType(t, tt.want, msg)

			base := msg.Base()
			assert.Equal(t, "gh_123", base.ToUserName)
			assert.Equal(t, "userA", base.FromUserName)
			assert.Equal(t, int64(1700000000), base.CreateTime)
			assert.Equal(t, tt.name, base.MsgType)
			assert.NotEmpty(t, base.MsgID)
			assert.Equal(t, models.Kind(tt.name), msg.Kind())

			// 头部字段已比较，只比较类型相关字段
			*tt.want.Base() = *base
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestParse_Events(t *testing.T) {
	tests := []struct {
		name  string
		inner string
		kind  models.Kind
		check func(t *testing.T, msg models.Message)
	}{
		{
			name:  "subscribe",
			inner: `<Event><![CDATA[subscribe]]></Event>`,
			kind:  models.KindSubscribeEvent,
		},
		{
			name:  "unsubscribe",
			inner: `<Event><![CDATA[unsubscribe]]></Event>`,
			kind:  models.KindUnsubscribeEvent,
		},
		{
			name:  "scan subscribe",
			inner: `<Event><![CDATA[subscribe]]></Event><EventKey><![CDATA[qrscene_123123]]></EventKey><Ticket><![CDATA[TICKET]]></Ticket>`,
			kind:  models.KindScanSubscribeEvent,
			check: func(t *testing.T, msg models.Message) {
				e := msg.(*models.ScanSubscribeEvent)
				assert.Equal(t, "123123", e.SceneID())
				assert.Equal(t, "TICKET", e.Ticket)
			},
		},
		{
			name:  "scan",
			inner: `<Event><![CDATA[SCAN]]></Event><EventKey><![CDATA[SCENE_VALUE]]></EventKey><Ticket><![CDATA[TICKET]]></Ticket>`,
			kind:  models.KindScanEvent,
			check: func(t *testing.T, msg models.Message) {
				e := msg.(*models.ScanEvent)
				assert.Equal(t, "SCENE_VALUE", e.EventKey)
				assert.Equal(t, "TICKET", e.Ticket)
			},
		},
		{
			name:  "click",
			inner: `<Event><![CDATA[CLICK]]></Event><EventKey><![CDATA[V1001_TODAY_MUSIC]]></EventKey>`,
			kind:  models.KindClickEvent,
			check: func(t *testing.T, msg models.Message) {
				assert.Equal(t, "V1001_TODAY_MUSIC", msg.(*models.ClickEvent).EventKey)
			},
		},
		{
			name:  "view",
			inner: `<Event><![CDATA[VIEW]]></Event><EventKey><![CDATA[http://www.example.com/]]></EventKey>`,
			kind:  models.KindViewEvent,
			check: func(t *testing.T, msg models.Message) {
				assert.Equal(t, "http://www.example.com/", msg.(*models.ViewEvent).EventKey)
			},
		},
		{
			name:  "location",
			inner: `<Event><![CDATA[LOCATION]]></Event><Latitude>23.137466</Latitude><Longitude>113.352425</Longitude><Precision>119.385040</Precision>`,
			kind:  models.KindLocationEvent,
			check: func(t *testing.T, msg models.Message) {
				e := msg.(*models.LocationEvent)
				assert.InDelta(t, 23.137466, e.Latitude, 1e-9)
				assert.InDelta(t, 113.352425, e.Longitude, 1e-9)
				assert.InDelta(t, 119.38504, e.Precision, 1e-9)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse(wrap(`<MsgType><![CDATA[event]]></MsgType>` + tt.inner))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, msg.Kind())
			assert.Empty(t, msg.Base().MsgID)
			assert.NotEmpty(t, msg.Base().Event)
			if tt.check != nil {
				tt.check(t, msg)
			}
		})
	}
}

func TestParse_Unrecognized(t *testing.T) {
	msg, err := Parse(wrap(`<MsgType><![CDATA[miniprogrampage]]></MsgType><MsgId>9</MsgId>`))
	require.NoError(t, err)
	assert.Equal(t, models.KindUnrecognized, msg.Kind())
	assert.Equal(t, "miniprogrampage", msg.Base().MsgType)

	msg, err = Parse(wrap(`<MsgType><![CDATA[event]]></MsgType><Event><![CDATA[TEMPLATESENDJOBFINISH]]></Event>`))
	require.NoError(t, err)
	assert.Equal(t, models.KindUnrecognized, msg.Kind())
	assert.Equal(t, "TEMPLATESENDJOBFINISH", msg.Base().Event)

	msg, err = Parse(`<xml></xml>`)
	require.NoError(t, err)
	assert.Equal(t, models.KindUnrecognized, msg.Kind())
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(`<xml><MsgType a>text</MsgType></xml>`)
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrMalformedMessage)

	_, err = Parse(wrap(`<MsgType><![CDATA[location]]></MsgType><Location_X>north</Location_X>`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
