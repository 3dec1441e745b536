package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"

	"vortexconv/internal/alert"
	"vortexconv/internal/alert/telegram"
	"vortexconv/internal/config"
	"vortexconv/internal/db"
	"vortexconv/internal/history"
	"vortexconv/internal/logger"
)

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// openHistory connects the history database. It returns a nil recorder
// and a no-op closer when no database path is configured.
func openHistory(cfg *config.Config) (*history.Recorder, func()) {
	if cfg.Database.Path == "" {
		return nil, func() {}
	}
	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		logger.Log.Warnf("History disabled: %v", err)
		return nil, func() {}
	}
	if err := db.Migrate(database); err != nil {
		logger.Log.Warnf("History disabled, migration failed: %v", err)
		db.Close(database)
		return nil, func() {}
	}
	return history.NewRecorder(database), func() { db.Close(database) }
}

// newNotifier returns the Telegram notifier when configured, otherwise
// fallback.
func newNotifier(cfg config.TelegramConfig, fallback alert.Notifier) alert.Notifier {
	n, err := telegram.New(cfg)
	if errors.Is(err, telegram.ErrDisabled) {
		return fallback
	}
	if err != nil {
		logger.Log.Warnf("Telegram alerts disabled: %v", err)
		return fallback
	}
	return n
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// applyParams merges -p overrides into a source's params. Numeric values
// become ints so they read the same as YAML-loaded ones.
func applyParams(params map[string]interface{}, overrides map[string]string) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}
	for k, v := range overrides {
		if intVal, err := strconv.Atoi(v); err == nil {
			params[k] = intVal
		} else {
			params[k] = v
		}
	}
	return params
}

func getFileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func getFlagEmoji(countryCode string) string {
	if len(countryCode) != 2 {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}
