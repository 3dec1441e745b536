package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortexconv/internal/config"
)

func valid() config.TelegramConfig {
	return config.TelegramConfig{
		Enabled:  true,
		AppID:    12345,
		AppHash:  "hash",
		BotToken: "123:abc",
		Chat:     "@ops",
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(config.TelegramConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	tests := map[string]func(*config.TelegramConfig){
		"app_id":    func(c *config.TelegramConfig) { c.AppID = 0 },
		"app_hash":  func(c *config.TelegramConfig) { c.AppHash = "" },
		"bot_token": func(c *config.TelegramConfig) { c.BotToken = "" },
		"chat":      func(c *config.TelegramConfig) { c.Chat = "" },
		"proxy_url": func(c *config.TelegramConfig) { c.ProxyURL = "gopher://x:1" },
	}
	for field, mutate := range tests {
		cfg := valid()
		mutate(&cfg)
		_, err := New(cfg)
		assert.ErrorContains(t, err, field, field)
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := valid()
	cfg.ProxyURL = "socks5://127.0.0.1:1080"
	n, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "telegram.session", n.cfg.SessionFile)
	assert.NotNil(t, n.dialer)
}
