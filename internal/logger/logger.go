// Package logger provides structured logging for the ticket bot.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/edgard/ticketbot/internal/chat"
)

// NewLogger creates a new slog Logger writing to stdout with the specified
// level and format, and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware logs every interaction with its identifier, invoker, channel and
// duration.
func Middleware(log *slog.Logger) chat.Middleware {
	return func(next chat.InteractionHandler) chat.InteractionHandler {
		return func(ctx context.Context, ix *chat.Interaction) {
			startTime := time.Now()

			logEntry := log.With(
				"interaction_id", ix.ID,
				"kind", ix.Kind.String(),
				"name", truncateString(ix.Name, 64),
				"guild_id", ix.GuildID,
				"channel_id", ix.ChannelID,
				"user_id", ix.Member.ID,
				"username", ix.Member.Username,
			)

			logEntry.DebugContext(ctx, "Processing interaction")
			next(ctx, ix)
			logEntry.InfoContext(ctx, "Finished processing interaction", "duration", time.Since(startTime))
		}
	}
}

// Recover stops a panicking handler from taking down the event loop.
func Recover(log *slog.Logger) chat.Middleware {
	return func(next chat.InteractionHandler) chat.InteractionHandler {
		return func(ctx context.Context, ix *chat.Interaction) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "Interaction handler panicked",
						"interaction_id", ix.ID,
						"name", ix.Name,
						"panic", r,
						"stack", string(debug.Stack()))
				}
			}()
			next(ctx, ix)
		}
	}
}

// RecoverMessages is Recover for message handlers.
func RecoverMessages(log *slog.Logger, next chat.MessageHandler) chat.MessageHandler {
	return func(ctx context.Context, msg *chat.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "Message handler panicked",
					"message_id", msg.ID,
					"channel_id", msg.ChannelID,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		next(ctx, msg)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
