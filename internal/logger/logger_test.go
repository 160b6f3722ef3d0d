package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/ticketbot/internal/chat"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMiddlewareLogsInteraction(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", true)

	called := false
	h := Middleware(log)(func(context.Context, *chat.Interaction) { called = true })
	h(context.Background(), &chat.Interaction{
		ID:        "i1",
		Kind:      chat.KindComponent,
		Name:      "close-ticket",
		ChannelID: "c1",
		Member:    chat.Member{User: chat.User{ID: "u1", Username: "alice"}},
	})

	require.True(t, called)
	out := buf.String()
	assert.Contains(t, out, `"interaction_id":"i1"`)
	assert.Contains(t, out, `"name":"close-ticket"`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, "duration")
}

func TestRecoverSwallowsPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", false)

	h := Recover(log)(func(context.Context, *chat.Interaction) { panic("boom") })
	assert.NotPanics(t, func() { h(context.Background(), &chat.Interaction{ID: "i2", Name: "setup-tickets"}) })
	assert.True(t, strings.Contains(buf.String(), "boom"))
}

func TestRecoverMessagesSwallowsPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", true)
	handler := RecoverMessages(log, func(context.Context, *chat.Message) { panic("keyword file vanished") })

	require.NotPanics(t, func() {
		handler(context.Background(), &chat.Message{ID: "m1", ChannelID: "c1"})
	})
	assert.Contains(t, buf.String(), "Message handler panicked")
	assert.Contains(t, buf.String(), "keyword file vanished")
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdef...", truncateString("abcdefghijkl", 9))
	assert.Equal(t, "...", truncateString("abcdef", 2))
}
