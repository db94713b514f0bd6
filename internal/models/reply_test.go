package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextReply(t *testing.T) {
	r, err := NewTextReply("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", r.Content)
	assert.Equal(t, ReplyText, r.ReplyType())

	_, err = NewTextReply("")
	assert.ErrorIs(t, err, ErrInvalidReply)
}

func TestMediaRepliesRequireMediaID(t *testing.T) {
	_, err := NewImageReply("")
	assert.ErrorIs(t, err, ErrInvalidReply)
	_, err = NewVoiceReply("")
	assert.ErrorIs(t, err, ErrInvalidReply)
	_, err = NewVideoReply("", "t", "d")
	assert.ErrorIs(t, err, ErrInvalidReply)

	v, err := NewVideoReply("media-1", "t", "d")
	require.NoError(t, err)
	assert.Equal(t, "media-1", v.MediaID)
}

func TestNewMusicReply(t *testing.T) {
	_, err := NewMusicReply(MusicReply{Title: "song", MusicURL: "http://example.com/a.mp3"})
	assert.ErrorIs(t, err, ErrInvalidReply, "thumb media id is required")

	_, err = NewMusicReply(MusicReply{ThumbMediaID: "thumb", MusicURL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidReply)

	m, err := NewMusicReply(MusicReply{Title: "song", MusicURL: "http://example.com/a.mp3", ThumbMediaID: "thumb"})
	require.NoError(t, err)
	assert.Equal(t, ReplyMusic, m.ReplyType())
}

func TestNewNewsReply(t *testing.T) {
	_, err := NewNewsReply()
	assert.ErrorIs(t, err, ErrInvalidReply)

	_, err = NewNewsReply(Article{Description: "no title"})
	assert.ErrorIs(t, err, ErrInvalidReply)

	articles := make([]Article, MaxArticles+1)
	for i := range articles {
		articles[i] = Article{Title: "t"}
	}
	_, err = NewNewsReply(articles...)
	assert.ErrorIs(t, err, ErrInvalidReply)

	n, err := NewNewsReply(articles[:MaxArticles]...)
	require.NoError(t, err)
	assert.Len(t, n.Articles, MaxArticles)
}

func TestScanSubscribeSceneID(t *testing.T) {
	e := &ScanSubscribeEvent{EventKey: "qrscene_123"}
	assert.Equal(t, "123", e.SceneID())
	assert.Equal(t, KindScanSubscribeEvent, e.Kind())
}
