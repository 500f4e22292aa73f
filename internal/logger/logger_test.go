package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"stationery-storefront/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.Log{Level: "warn", Format: "json"}, &buf)

	log.Info("hidden")
	log.Warn("shown", "merchant_order_id", "ORD_1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"merchant_order_id":"ORD_1"`)

	buf.Reset()
	log = NewWithWriter(config.Log{Level: "debug", Format: "text"}, &buf)
	log.Debug("poll", "attempt", 3)
	assert.Contains(t, buf.String(), "attempt=3")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
}
