package wechat

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqing-424/wechat-callback/internal/metrics"
	"github.com/johnqing-424/wechat-callback/internal/models"
)

func TestProcessor_Dispatch(t *testing.T) {
	p := NewProcessor(zerolog.Nop(), nil)

	var got []models.Kind
	record := HandlerFunc(func(_ context.Context, msg models.Message) (models.Reply, error) {
		got = append(got, msg.Kind())
		return models.NewTextReply("handled " + string(msg.Kind()))
	})
	p.Register(models.KindText, record)
	p.Register(models.KindClickEvent, record)

	reply := p.Process(context.Background(), &models.TextMessage{Content: "hi"})
	require.NotNil(t, reply)
	assert.Equal(t, "handled text", reply.(*models.TextReply).Content)

	reply = p.Process(context.Background(), &models.ClickEvent{EventKey: "K"})
	assert.Equal(t, "handled event.click", reply.(*models.TextReply).Content)

	assert.Equal(t, []models.Kind{models.KindText, models.KindClickEvent}, got)
}

func TestProcessor_DefaultHandler(t *testing.T) {
	p := NewProcessor(zerolog.Nop(), nil)
	for _, msg := range []models.Message{
		&models.TextMessage{},
		&models.SubscribeEvent{},
		&models.Unrecognized{},
	} {
		assert.Nil(t, p.Process(context.Background(), msg))
	}

	p.SetDefault(HandlerFunc(func(context.Context, models.Message) (models.Reply, error) {
		return models.NewTextReply("default")
	}))
	reply := p.Process(context.Background(), &models.Unrecognized{})
	assert.Equal(t, "default", reply.(*models.TextReply).Content)
}

func TestProcessor_RegisterOverrides(t *testing.T) {
	p := NewProcessor(zerolog.Nop(), nil)
	p.RegisterFunc(models.KindImage, func(context.Context, models.Message) (models.Reply, error) {
		return models.NewTextReply("first")
	})
	p.RegisterFunc(models.KindImage, func(context.Context, models.Message) (models.Reply, error) {
		return models.NewTextReply("second")
	})
	reply := p.Process(context.Background(), &models.ImageMessage{})
	assert.Equal(t, "second", reply.(*models.TextReply).Content)
}

func TestProcessor_HandlerFailures(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	p := NewProcessor(zerolog.New(&buf), metrics.New(reg))

	p.RegisterFunc(models.KindText, func(context.Context, models.Message) (models.Reply, error) {
		return nil, errors.New("backend down")
	})
	p.RegisterFunc(models.KindVoice, func(context.Context, models.Message) (models.Reply, error) {
		panic("boom")
	})

	assert.Nil(t, p.Process(context.Background(), &models.TextMessage{Header: models.Header{MsgID: "1"}}))
	assert.NotPanics(t, func() {
		assert.Nil(t, p.Process(context.Background(), &models.VoiceMessage{}))
	})
	assert.Contains(t, buf.String(), "backend down")
	assert.Contains(t, buf.String(), "handler panic: boom")
}
