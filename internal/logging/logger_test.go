package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func capture(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: format, Output: &buf})
	t.Cleanup(func() { Init(Config{}) })
	return &buf
}

func TestInitJSON(t *testing.T) {
	buf := capture(t, "json")
	Info().Str("recipe", "borscht").Msg("created")

	assert.Contains(t, buf.String(), `"recipe":"borscht"`)
	assert.Contains(t, buf.String(), `"message":"created"`)
}

func TestParseLevel(t *testing.T) {
	buf := capture(t, "json")
	Init(Config{Level: "error", Output: buf})

	Info().Msg("hidden")
	Error().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestGormLoggerSkipsNotFound(t *testing.T) {
	buf := capture(t, "json")
	l := NewGormLogger(time.Second)
	sql := func() (string, int64) { return "SELECT 1", 0 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "query failed")
}

func TestGormLoggerSilent(t *testing.T) {
	buf := capture(t, "json")
	l := NewGormLogger(0).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	assert.Empty(t, buf.String())
}
