package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"go.uber.org/zap"
)

// Level 通知级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Channel 单个通知渠道
type Channel interface {
	Name() string
	Send(title, message string, level Level) error
}

// Notifier 通知分发器。所有发送都是尽力而为：
// 渠道失败只记录日志，绝不影响交易流程。
type Notifier struct {
	logger   *zap.Logger
	channels []Channel
}

// NewNotifier 根据配置创建通知分发器
func NewNotifier(conf *config.Config, logger *zap.Logger) *Notifier {
	n := &Notifier{logger: logger}

	notifications := conf.Notifications
	if notifications.Telegram.Enabled {
		tg, err := NewTelegramChannel(notifications.Telegram, logger)
		if err != nil {
			logger.Error("failed to init telegram channel", zap.Error(err))
		} else {
			n.channels = append(n.channels, tg)
		}
	}
	if notifications.Discord.Enabled {
		n.channels = append(n.channels, NewDiscordChannel(notifications.Discord))
	}
	if notifications.Email.Enabled {
		n.channels = append(n.channels, NewEmailChannel(notifications.Email))
	}

	if len(n.channels) == 0 {
		logger.Info("no notification channels enabled, alerts will only be logged")
	}

	return n
}

// dispatch 异步发送到所有渠道，失败只记录日志
func (n *Notifier) dispatch(title, message string, level Level) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formatted := fmt.Sprintf("[%s] %s\n\n%s", timestamp, title, message)

	if len(n.channels) == 0 {
		n.logger.Info("notification", zap.String("title", title), zap.String("level", string(level)))
		return
	}

	for _, ch := range n.channels {
		go func(ch Channel) {
			if err := ch.Send(title, formatted, level); err != nil {
				n.logger.Warn("notification channel failed",
					zap.String("channel", ch.Name()),
					zap.String("title", title),
					zap.Error(err))
			}
		}(ch)
	}
}

// SendTradeAlert 发送成交通知
func (n *Notifier) SendTradeAlert(symbol, side string, amount, price, profit float64) {
	emoji := "📈"
	if strings.EqualFold(side, "sell") {
		emoji = "📉"
	}

	title := fmt.Sprintf("%s Trade Executed: %s", emoji, symbol)
	message := fmt.Sprintf("Side: %s\nAmount: %.6f\nPrice: $%.4f\nProfit: $%.4f",
		strings.ToUpper(side), amount, price, profit)

	level := LevelInfo
	if profit > 0 {
		level = LevelSuccess
	} else if profit < 0 {
		level = LevelWarning
	}
	n.dispatch(title, message, level)
}

// SendSystemAlert 发送系统状态通知
func (n *Notifier) SendSystemAlert(alertType, details string, level Level) {
	emojiMap := map[string]string{
		"startup":     "🚀",
		"shutdown":    "🛑",
		"emergency":   "🚨",
		"error":       "❌",
		"warning":     "⚠️",
		"performance": "📊",
		"update":      "ℹ️",
	}
	emoji, ok := emojiMap[alertType]
	if !ok {
		emoji = "ℹ️"
	}

	title := fmt.Sprintf("%s System Alert: %s", emoji, alertType)
	n.dispatch(title, details, level)
}

// SendProfitMilestone 发送盈利里程碑通知
func (n *Notifier) SendProfitMilestone(dailyProfit, totalProfit float64) {
	title := "💰 Profit Milestone Reached!"
	message := fmt.Sprintf("Daily Profit: $%.2f\nTotal Profit: $%.2f", dailyProfit, totalProfit)
	n.dispatch(title, message, LevelSuccess)
}

// SendRiskAlert 发送风控告警
func (n *Notifier) SendRiskAlert(alertType, details string) {
	title := fmt.Sprintf("⚠️ Risk Alert: %s", alertType)
	n.dispatch(title, details, LevelWarning)
}
