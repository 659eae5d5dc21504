package notify

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const telegramHTTPTimeout = 10 * time.Second

// TelegramChannel 通过 Telegram Bot 推送通知
type TelegramChannel struct {
	logger *zap.Logger
	conf   config.TelegramConf
	client *tele.Bot
}

// NewTelegramChannel 创建 Telegram 通知渠道
func NewTelegramChannel(conf config.TelegramConf, logger *zap.Logger) (*TelegramChannel, error) {
	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     conf.Token,
		Client:    &http.Client{Timeout: telegramHTTPTimeout},
		Offline:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramChannel{
		logger: logger,
		conf:   conf,
		client: client,
	}, nil
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

func (t *TelegramChannel) Send(title, message string, level Level) error {
	chatID := cast.ToInt64(t.conf.ChatID)
	text := fmt.Sprintf("🤖 *%s*\n\n%s", escapeMarkdown(title), escapeMarkdown(message))
	_, err := t.client.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
