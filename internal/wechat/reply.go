package wechat

import (
	"encoding/xml"
	"fmt"

	"github.com/johnqing-424/wechat-callback/internal/models"
)

// 被动回复的公共字段
type replyHeader struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
}

type textReplyXML struct {
	replyHeader
	Content cdata `xml:"Content"`
}

type mediaXML struct {
	MediaID cdata `xml:"MediaId"`
}

type imageReplyXML struct {
	replyHeader
	Image mediaXML `xml:"Image"`
}

type voiceReplyXML struct {
	replyHeader
	Voice mediaXML `xml:"Voice"`
}

type videoReplyXML struct {
	replyHeader
	Video struct {
		MediaID     cdata `xml:"MediaId"`
		Title       cdata `xml:"Title"`
		Description cdata `xml:"Description"`
	} `xml:"Video"`
}

type musicReplyXML struct {
	replyHeader
	Music struct {
		Title        cdata `xml:"Title"`
		Description  cdata `xml:"Description"`
		MusicURL     cdata `xml:"MusicUrl"`
		HQMusicURL   cdata `xml:"HQMusicUrl"`
		ThumbMediaID cdata `xml:"ThumbMediaId"`
	} `xml:"Music"`
}

type articleXML struct {
	Title       cdata `xml:"Title"`
	Description cdata `xml:"Description"`
	PicURL      cdata `xml:"PicUrl"`
	URL         cdata `xml:"Url"`
}

type newsReplyXML struct {
	replyHeader
	ArticleCount int          `xml:"ArticleCount"`
	Articles     []articleXML `xml:"Articles>item"`
}

// Serialize 把回复实体序列化为被动回复 XML。to 是接收回复的用户（即消息的 FromUserName），
// from 是公众号（即消息的 ToUserName）。
func Serialize(reply models.Reply, to, from string, createTime int64) (string, error) {
	if reply == nil {
		return "", fmt.Errorf("%w: nil reply", ErrUnknownReply)
	}
	if err := models.Validate(reply); err != nil {
		return "", err
	}

	h := replyHeader{
		ToUserName:   cdata{to},
		FromUserName: cdata{from},
		CreateTime:   createTime,
		MsgType:      cdata{string(reply.ReplyType())},
	}

	var v any
	switch r := reply.(type) {
	case *models.TextReply:
		v = textReplyXML{replyHeader: h, Content: cdata{r.Content}}
	case *models.ImageReply:
		v = imageReplyXML{replyHeader: h, Image: mediaXML{cdata{r.MediaID}}}
	case *models.VoiceReply:
		v = voiceReplyXML{replyHeader: h, Voice: mediaXML{cdata{r.MediaID}}}
	case *models.VideoReply:
		x := videoReplyXML{replyHeader: h}
		x.Video.MediaID = cdata{r.MediaID}
		x.Video.Title = cdata{r.Title}
		x.Video.Description = cdata{r.Description}
		v = x
	case *models.MusicReply:
		x := musicReplyXML{replyHeader: h}
		x.Music.Title = cdata{r.Title}
		x.Music.Description = cdata{r.Description}
		x.Music.MusicURL = cdata{r.MusicURL}
		x.Music.HQMusicURL = cdata{r.HQMusicURL}
		x.Music.ThumbMediaID = cdata{r.ThumbMediaID}
		v = x
	case *models.NewsReply:
		x := newsReplyXML{replyHeader: h, ArticleCount: len(r.Articles)}
		for _, a := range r.Articles {
			x.Articles = append(x.Articles, articleXML{
				Title:       cdata{a.Title},
				Description: cdata{a.Description},
				PicURL:      cdata{a.PicURL},
				URL:         cdata{a.URL},
			})
		}
		v = x
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownReply, reply)
	}

	out, err := xml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s reply: %w", reply.ReplyType(), err)
	}
	return string(out), nil
}
