package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyParams(t *testing.T) {
	params := applyParams(nil, map[string]string{"limit": "50", "user_agent": "clash"})
	assert.Equal(t, 50, params["limit"])
	assert.Equal(t, "clash", params["user_agent"])

	existing := map[string]interface{}{"url": "https://a"}
	assert.Equal(t, "https://a", applyParams(existing, nil)["url"])
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}

func TestGetFlagEmoji(t *testing.T) {
	assert.Equal(t, "🇩🇪", getFlagEmoji("de"))
	assert.Equal(t, "🌐", getFlagEmoji("XX1"))
}
