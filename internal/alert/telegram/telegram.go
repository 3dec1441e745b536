package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"golang.org/x/net/proxy"

	"vortexconv/internal/config"
	"vortexconv/internal/logger"
)

var ErrDisabled = errors.New("telegram alerts are disabled")

// Notifier sends alerts as a Telegram bot. Each Notify opens a short-lived
// MTProto session; the bot authorization is cached in the session file.
type Notifier struct {
	cfg    config.TelegramConfig
	dialer proxy.Dialer
}

// New validates cfg. It does not touch the network.
func New(cfg config.TelegramConfig) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.AppID == 0 || cfg.AppHash == "" {
		return nil, fmt.Errorf("missing app_id or app_hash")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("missing bot_token")
	}
	if cfg.Chat == "" {
		return nil, fmt.Errorf("missing chat")
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = "telegram.session"
	}

	n := &Notifier{cfg: cfg, dialer: proxy.Direct}
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram proxy_url: %w", err)
		}
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("unsupported telegram proxy_url: %w", err)
		}
		n.dialer = d
		logger.Log.Infof("Telegram using proxy: %s", cfg.ProxyURL)
	}
	return n, nil
}

func (n *Notifier) Notify(ctx context.Context, msg string) error {
	if dir := filepath.Dir(n.cfg.SessionFile); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0700)
	}

	client := telegram.NewClient(n.cfg.AppID, n.cfg.AppHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: n.cfg.SessionFile},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: n.dial,
		}),
		Logger: logger.Named("telegram"),
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, n.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login failed: %w", err)
			}
			logger.Log.Debug("Telegram bot authorized")
		}

		sender := message.NewSender(client.API())
		if _, err := sender.Resolve(n.cfg.Chat).Text(ctx, msg); err != nil {
			return fmt.Errorf("send to %s: %w", n.cfg.Chat, err)
		}
		return nil
	})
}

func (n *Notifier) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := n.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return n.dialer.Dial(network, addr)
}
