package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidReply 表示回复实体缺少必填字段或字段不合法
var ErrInvalidReply = errors.New("invalid reply")

// MaxArticles 是图文消息允许的最大条数
const MaxArticles = 8

// ReplyType 对应被动回复 XML 中的 MsgType
type ReplyType string

const (
	ReplyText  ReplyType = "text"
	ReplyImage ReplyType = "image"
	ReplyVoice ReplyType = "voice"
	ReplyVideo ReplyType = "video"
	ReplyMusic ReplyType = "music"
	ReplyNews  ReplyType = "news"
)

// Reply 是被动回复实体，只能由本包内的类型实现
type Reply interface {
	ReplyType() ReplyType
	reply()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// TextReply 文本回复
type TextReply struct {
	Content string `validate:"required"`
}

// ImageReply 图片回复
type ImageReply struct {
	MediaID string `validate:"required"`
}

// VoiceReply 语音回复
type VoiceReply struct {
	MediaID string `validate:"required"`
}

// VideoReply 视频回复
type VideoReply struct {
	MediaID     string `validate:"required"`
	Title       string
	Description string
}

// MusicReply 音乐回复
type MusicReply struct {
	Title        string
	Description  string
	MusicURL     string `validate:"omitempty,url"`
	HQMusicURL   string `validate:"omitempty,url"`
	ThumbMediaID string `validate:"required"`
}

// Article 是图文消息中的一条
type Article struct {
	Title       string `validate:"required"`
	Description string
	PicURL      string `validate:"omitempty,url"`
	URL         string `validate:"omitempty,url"`
}

// NewsReply 图文回复，Articles 保持调用方给出的顺序
type NewsReply struct {
	Articles []Article `validate:"required,min=1,max=8,dive"`
}

func (*TextReply) ReplyType() ReplyType  { return ReplyText }
func (*ImageReply) ReplyType() ReplyType { return ReplyImage }
func (*VoiceReply) ReplyType() ReplyType { return ReplyVoice }
func (*VideoReply) ReplyType() ReplyType { return ReplyVideo }
func (*MusicReply) ReplyType() ReplyType { return ReplyMusic }
func (*NewsReply) ReplyType() ReplyType  { return ReplyNews }

func (*TextReply) reply()  {}
func (*ImageReply) reply() {}
func (*VoiceReply) reply() {}
func (*VideoReply) reply() {}
func (*MusicReply) reply() {}
func (*NewsReply) reply()  {}

func check[T Reply](r T) (T, error) {
	if err := Validate(r); err != nil {
		var zero T
		return zero, err
	}
	return r, nil
}

// NewTextReply 创建文本回复
func NewTextReply(content string) (*TextReply, error) {
	return check(&TextReply{Content: content})
}

// NewImageReply 创建图片回复
func NewImageReply(mediaID string) (*ImageReply, error) {
	return check(&ImageReply{MediaID: mediaID})
}

// NewVoiceReply 创建语音回复
func NewVoiceReply(mediaID string) (*VoiceReply, error) {
	return check(&VoiceReply{MediaID: mediaID})
}

// NewVideoReply 创建视频回复
func NewVideoReply(mediaID, title, description string) (*VideoReply, error) {
	return check(&VideoReply{MediaID: mediaID, Title: title, Description: description})
}

// NewMusicReply 创建音乐回复
func NewMusicReply(m MusicReply) (*MusicReply, error) {
	return check(&m)
}

// NewNewsReply 创建图文回复，条数必须在 1 到 MaxArticles 之间
func NewNewsReply(articles ...Article) (*NewsReply, error) {
	return check(&NewsReply{Articles: append([]Article(nil), articles...)})
}

// Validate 校验直接构造的回复实体
func Validate(r Reply) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidReply, r.ReplyType(), err)
	}
	return nil
}
