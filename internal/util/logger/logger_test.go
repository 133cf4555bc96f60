package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return buf
}

func TestSetOutput(t *testing.T) {
	buf := captureOutput(t)

	Logger("test").Info("test message", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "test message")
	assert.Contains(t, out, "key=value")
	assert.Contains(t, out, "subsystem=test")
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("test2")

	buf := captureOutput(t)
	log.Info("after switch", "key", "value")

	assert.Contains(t, buf.String(), "after switch")
}

func TestRedaction(t *testing.T) {
	buf := captureOutput(t)

	Logger("test/redact").Info("签名完成", "did", "did:key:z6Mk", "proofValue", "z3secret", "privateKey", []byte{1, 2})

	out := buf.String()
	assert.Contains(t, out, "did=did:key:z6Mk")
	assert.NotContains(t, out, "z3secret")
	assert.Contains(t, out, "proofValue="+Redacted)
	assert.Contains(t, out, "privateKey="+Redacted)
}

func TestSetLevel_AppliesToDerivedLoggers(t *testing.T) {
	buf := captureOutput(t)

	derived := Logger("test/level").With("batch", "b1")
	SetLevel("test/level", slog.LevelError)
	derived.Info("hidden")
	assert.Empty(t, buf.String())

	SetLevel("test/level", slog.LevelDebug)
	derived.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "level=debug")
}

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig("core/keystate=debug, storage/badger=warn ,error", "JSON")

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("core/keystate"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("storage/badger"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("core/merkle"))
	assert.Equal(t, FormatJSON, cfg.Format)

	def := ParseConfig("", "")
	assert.Equal(t, slog.LevelInfo, def.DefaultLevel)
	assert.Equal(t, FormatText, def.Format)

	bad := ParseConfig("loud,x=verbose", "")
	assert.Equal(t, slog.LevelInfo, bad.DefaultLevel)
	assert.Empty(t, bad.SubsystemLevels)
}

func TestApply(t *testing.T) {
	t.Setenv(EnvLevel, "")
	buf := captureOutput(t)

	log := Logger("test/apply")
	Apply("test/apply=error,info")
	log.Warn("suppressed")
	assert.Empty(t, buf.String())

	Apply("test/apply=debug")
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetFormat(t *testing.T) {
	t.Setenv(EnvFormat, "")
	ResetConfig()
	t.Cleanup(ResetConfig)
	buf := captureOutput(t)

	SetFormat("json")
	Logger("test/format").Info("结构化输出", "key", "value")

	out := buf.String()
	assert.Contains(t, out, `"key":"value"`)
	assert.Contains(t, out, `"subsystem":"test/format"`)
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
