package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLazyLogger_FollowsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	l := Logger("core/test")

	buf := &bytes.Buffer{}
	SetOutputWithLevel(buf, LevelDebug)
	l.Debug("追加事件", "sequence", 3)

	out := buf.String()
	assert.Contains(t, out, "component=core/test")
	assert.Contains(t, out, "sequence=3")

	buf.Reset()
	SetDefault(New(buf, &slog.HandlerOptions{Level: LevelWarn}))
	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestShortDID(t *testing.T) {
	assert.Equal(t, "did:key:z6Mkha…2doK", ShortDID("did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"))
	assert.Equal(t, "did:web:a", ShortDID("did:web:a"))
}
