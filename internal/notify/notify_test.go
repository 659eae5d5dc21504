package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEscapeMarkdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BTC/USDT", escapeMarkdown("BTC/USDT"))
	assert.Equal(t, "\\*bold\\*", escapeMarkdown("*bold*"))
	assert.Equal(t, "a\\_b \\`c\\` \\[d", escapeMarkdown("a_b `c` [d"))
}

func TestNewNotifierWithoutChannels(t *testing.T) {
	t.Parallel()

	n := NewNotifier(&config.Config{}, zap.NewNop())
	require.NotNil(t, n)
	assert.Empty(t, n.channels)

	// 无渠道时发送不会panic
	n.SendTradeAlert("BTC/USDT", "buy", 0.01, 45000, 0)
	n.SendSystemAlert("startup", "all good", LevelSuccess)
	n.SendProfitMilestone(10, 100)
	n.SendRiskAlert("cooldown", "details")
}

func TestDiscordChannelSendsEmbed(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var payload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewDiscordChannel(config.DiscordConf{Enabled: true, WebhookURL: srv.URL})
	require.NoError(t, ch.Send("Test Alert", "hello", LevelWarning))

	mu.Lock()
	defer mu.Unlock()
	embeds, ok := payload["embeds"].([]interface{})
	require.True(t, ok)
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]interface{})
	assert.Equal(t, "Test Alert", embed["title"])
	assert.Equal(t, "hello", embed["description"])
}

func TestDiscordChannelErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ch := NewDiscordChannel(config.DiscordConf{Enabled: true, WebhookURL: srv.URL})
	assert.Error(t, ch.Send("Test", "msg", LevelError))
}

func TestNotifierDispatchSwallowsChannelFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	conf := &config.Config{}
	conf.Notifications.Discord = config.DiscordConf{Enabled: true, WebhookURL: srv.URL}
	n := NewNotifier(conf, zap.NewNop())
	require.Len(t, n.channels, 1)

	// 渠道失败不会影响调用方
	n.SendSystemAlert("error", "something failed", LevelError)
	time.Sleep(50 * time.Millisecond)
}
