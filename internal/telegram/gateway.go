// Package telegram implements the delivery gateway and the administrative
// command controller over the Telegram Bot API.
package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tweetrelay/internal/relay"
)

// Sender is the narrow slice of the Bot API the gateway needs; it allows
// tests to substitute a fake transport.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Gateway delivers normalized content to a Telegram channel. All transport
// failures are logged and folded into the returned Outcome; nothing
// propagates to the caller as a Go error.
type Gateway struct {
	bot    Sender
	logger *zap.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(bot Sender, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{bot: bot, logger: logger}
}

// SendText sends a plain text message with link previews disabled.
func (g *Gateway) SendText(_ context.Context, channel, text string) relay.Outcome {
	if text == "" {
		return relay.Outcome{}
	}
	msg := tgbotapi.MessageConfig{
		BaseChat:              baseChat(channel),
		Text:                  text,
		DisableWebPagePreview: true,
	}
	if _, err := g.bot.Send(msg); err != nil {
		g.logger.Error("send text failed", zap.String("channel", channel), zap.Error(err))
		return relay.Outcome{Attempted: true, Err: err}
	}
	return relay.Outcome{Attempted: true}
}

// SendMedia delivers an ordered media list: photos grouped first with the
// caption on the first item only, then each video individually without a
// caption. An empty list falls back to a plain text send of the caption.
func (g *Gateway) SendMedia(ctx context.Context, channel string, media []relay.MediaItem, caption string) relay.Outcome {
	var photos, videos []string
	for _, item := range media {
		switch item.Kind {
		case relay.MediaVideo:
			videos = append(videos, item.URL)
		default:
			photos = append(photos, item.URL)
		}
	}

	if len(photos) == 0 && len(videos) == 0 {
		return g.SendText(ctx, channel, caption)
	}

	var firstErr error
	note := func(err error, what string) {
		if err == nil {
			return
		}
		g.logger.Error("send media failed",
			zap.String("channel", channel),
			zap.String("kind", what),
			zap.Error(err),
		)
		if firstErr == nil {
			firstErr = err
		}
	}

	switch len(photos) {
	case 0:
	case 1:
		photo := tgbotapi.PhotoConfig{
			BaseFile: tgbotapi.BaseFile{
				BaseChat: baseChat(channel),
				File:     tgbotapi.FileURL(photos[0]),
			},
			Caption: caption,
		}
		_, err := g.bot.Send(photo)
		note(err, "photo")
	default:
		group := make([]interface{}, 0, len(photos))
		for i, p := range photos {
			input := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(p))
			if i == 0 {
				// The Bot API only honors a caption on the first group item.
				input.Caption = caption
			}
			group = append(group, input)
		}
		cfg := tgbotapi.MediaGroupConfig{Media: group}
		applyChannel(&cfg, channel)
		_, err := g.bot.SendMediaGroup(cfg)
		note(err, "photo_group")
	}

	for _, v := range videos {
		video := tgbotapi.VideoConfig{
			BaseFile: tgbotapi.BaseFile{
				BaseChat: baseChat(channel),
				File:     tgbotapi.FileURL(v),
			},
		}
		_, err := g.bot.Send(video)
		note(err, "video")
	}

	return relay.Outcome{Attempted: true, Err: firstErr}
}

// baseChat resolves a channel reference: @names address public channels,
// anything numeric is a chat id.
func baseChat(channel string) tgbotapi.BaseChat {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil && !strings.HasPrefix(channel, "@") {
		return tgbotapi.BaseChat{ChatID: id}
	}
	return tgbotapi.BaseChat{ChannelUsername: channel}
}

func applyChannel(cfg *tgbotapi.MediaGroupConfig, channel string) {
	bc := baseChat(channel)
	cfg.ChatID = bc.ChatID
	cfg.ChannelUsername = bc.ChannelUsername
}
