package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Converter ConverterConfig `yaml:"converter"`
	Templates TemplatesConfig `yaml:"templates"`
	Database  DatabaseConfig  `yaml:"database"`
	Probe     ProbeConfig     `yaml:"probe"`
	Alert     AlertConfig     `yaml:"alert"`
	Sources   []SourceConfig  `yaml:"sources"`
}

type ServerConfig struct {
	Listen       string          `yaml:"listen"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
}

// RateLimitConfig is a per client IP token bucket. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ConverterConfig struct {
	MaxLinkLength int    `yaml:"max_link_length"`
	Brand         string `yaml:"brand"`
	Workers       int    `yaml:"workers"`
	MaxLinks      int    `yaml:"max_links"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type DatabaseConfig struct {
	// Path to the sqlite file. Empty disables conversion history.
	Path    string `yaml:"path"`
	MaxRuns int    `yaml:"max_runs"`
}

type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
	// ProxyURL routes probes through an upstream (socks5://...) proxy.
	ProxyURL string `yaml:"proxy_url"`

	GeoIPASNPath     string `yaml:"geoip_asn_path"`
	GeoIPCountryPath string `yaml:"geoip_country_path"`
}

type AlertConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AppID       int    `yaml:"app_id"`
	AppHash     string `yaml:"app_hash"`
	BotToken    string `yaml:"bot_token"`
	Chat        string `yaml:"chat"` // @username or t.me link
	SessionFile string `yaml:"session_file"`
	ProxyURL    string `yaml:"proxy_url"`
}

type SourceConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       ":3000",
			RateLimit:    RateLimitConfig{RPS: 5, Burst: 20},
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  15 * time.Second,
		},
		Converter: ConverterConfig{
			MaxLinkLength: 2000,
			Brand:         "vortexVpn",
			Workers:       8,
			MaxLinks:      500,
		},
		Templates: TemplatesConfig{Dir: "templates"},
		Database:  DatabaseConfig{Path: "vortexconv.db", MaxRuns: 1000},
		Probe: ProbeConfig{
			Timeout:          5 * time.Second,
			Retries:          1,
			GeoIPASNPath:     "GeoLite2-ASN.mmdb",
			GeoIPCountryPath: "GeoLite2-Country.mmdb",
		},
		Alert: AlertConfig{
			Telegram: TelegramConfig{SessionFile: "telegram.session"},
		},
	}
}

// Load reads path over the defaults. An empty path means config.yaml,
// which may be absent; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if cfg.Converter.Workers <= 0 {
		cfg.Converter.Workers = 1
	}
	if cfg.Converter.MaxLinkLength <= 0 {
		cfg.Converter.MaxLinkLength = 2000
	}
	if cfg.Probe.Timeout <= 0 {
		cfg.Probe.Timeout = 5 * time.Second
	}
	if cfg.Probe.Retries < 0 {
		cfg.Probe.Retries = 0
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Type == "" {
			cfg.Sources[i].Type = "http"
		}
	}

	return cfg, nil
}

// FilterSources keeps only the named sources. No names keeps all.
func (c *Config) FilterSources(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []SourceConfig
	for _, item := range c.Sources {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Sources = filtered
}
