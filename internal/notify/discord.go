package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
)

// 不同级别对应的 Discord embed 颜色
var discordColors = map[Level]int{
	LevelInfo:    0x3498DB,
	LevelSuccess: 0x2ECC71,
	LevelWarning: 0xF39C12,
	LevelError:   0xE74C3C,
}

// DiscordChannel 通过 Discord Webhook 推送通知
type DiscordChannel struct {
	conf   config.DiscordConf
	client *http.Client
}

// NewDiscordChannel 创建 Discord 通知渠道
func NewDiscordChannel(conf config.DiscordConf) *DiscordChannel {
	return &DiscordChannel{
		conf:   conf,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordChannel) Name() string {
	return "discord"
}

func (d *DiscordChannel) Send(title, message string, level Level) error {
	color, ok := discordColors[level]
	if !ok {
		color = discordColors[LevelInfo]
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"timestamp":   time.Now().Format(time.RFC3339),
				"footer":      map[string]string{"text": "Arbiter"},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := d.client.Post(d.conf.WebhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status: %d", resp.StatusCode)
	}
	return nil
}
