// Package transcript renders a ticket channel's message history into the
// plain-text log that is archived when a ticket is closed.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/ticketbot/internal/chat"
)

const (
	// EmptyPlaceholder is the whole transcript of a channel without messages.
	EmptyPlaceholder = "No messages in this ticket."
	// TimestampLayout is the layout of the bracketed timestamp on each line.
	TimestampLayout = "2006-01-02 15:04:05"
	// DefaultLimit is the default cap on the number of messages fetched.
	DefaultLimit = 1000

	attachmentsOpen = " [Attachments: "
	attachmentsSep  = " | "
	fileStampLayout = "20060102150405"
)

var flattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Source supplies channel history, oldest first.
type Source interface {
	History(ctx context.Context, channelID string, limit int) ([]chat.Message, error)
}

// Document is the rendered transcript of one ticket channel.
type Document struct {
	ChannelID   string
	ChannelName string
	Text        string
	// Messages is the number of messages rendered.
	Messages int
	// Truncated is set when the history held more messages than the cap.
	Truncated   bool
	GeneratedAt time.Time
}

// FileName returns the archive file name for the document.
func (d *Document) FileName() string {
	return fmt.Sprintf("transcript-%s-%s.txt", d.ChannelName, d.GeneratedAt.UTC().Format(fileStampLayout))
}

// Builder fetches history and renders documents.
type Builder struct {
	source   Source
	limit    int
	location *time.Location
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewBuilder creates a Builder. A non-positive limit selects DefaultLimit and
// a nil location selects UTC.
func NewBuilder(source Source, limit int, location *time.Location, clock clockwork.Clock, logger *slog.Logger) *Builder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if location == nil {
		location = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{
		source:   source,
		limit:    limit,
		location: location,
		clock:    clock,
		logger:   logger.With("component", "transcript"),
	}
}

// Limit returns the configured message cap.
func (b *Builder) Limit() int {
	return b.limit
}

// Build fetches the channel history and renders it. One message beyond the
// cap is requested so truncation can be detected and flagged.
func (b *Builder) Build(ctx context.Context, channel chat.Channel) (*Document, error) {
	msgs, err := b.source.History(ctx, channel.ID, b.limit+1)
	if err != nil {
		return nil, fmt.Errorf("fetch history of %s: %w", channel.ID, err)
	}

	doc := &Document{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		GeneratedAt: b.clock.Now(),
	}
	if len(msgs) > b.limit {
		msgs = msgs[:b.limit]
		doc.Truncated = true
		b.logger.WarnContext(ctx, "Transcript truncated at message cap",
			"channel_id", channel.ID, "channel_name", channel.Name, "limit", b.limit)
	}
	doc.Messages = len(msgs)
	doc.Text = Render(msgs, b.location)

	b.logger.DebugContext(ctx, "Transcript built",
		"channel_id", channel.ID, "messages", doc.Messages, "truncated", doc.Truncated)
	return doc, nil
}

// Render joins one line per message. An empty history renders as
// EmptyPlaceholder.
func Render(msgs []chat.Message, location *time.Location) string {
	if len(msgs) == 0 {
		return EmptyPlaceholder
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, FormatLine(m, location))
	}
	return strings.Join(lines, "\n")
}

// FormatLine renders a single message:
//
//	[2006-01-02 15:04:05] author: content [Attachments: url1 | url2]
func FormatLine(m chat.Message, location *time.Location) string {
	if location == nil {
		location = time.UTC
	}
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(m.Timestamp.In(location).Format(TimestampLayout))
	sb.WriteString("] ")
	sb.WriteString(flattener.Replace(m.Author.Name()))
	sb.WriteString(": ")
	sb.WriteString(flattener.Replace(m.Content))
	if len(m.Attachments) > 0 {
		urls := make([]string, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			urls = append(urls, a.URL)
		}
		sb.WriteString(attachmentsOpen)
		sb.WriteString(strings.Join(urls, attachmentsSep))
		sb.WriteByte(']')
	}
	return sb.String()
}

// Entry is a parsed transcript line.
type Entry struct {
	Timestamp   time.Time
	Author      string
	Content     string
	Attachments []string
}

// ErrMalformedLine is returned by ParseLine for text that FormatLine cannot
// have produced.
var ErrMalformedLine = errors.New("malformed transcript line")

// ParseLine inverts FormatLine. The author ends at the first ": ", so author
// names containing that sequence do not round-trip. Likewise a trailing
// " [Attachments: ...]" is always read as the attachment list, so content
// that itself ends with that text is split even when the message had no
// attachments.
func ParseLine(line string, location *time.Location) (Entry, error) {
	if location == nil {
		location = time.UTC
	}
	if !strings.HasPrefix(line, "[") {
		return Entry{}, fmt.Errorf("%w: missing timestamp", ErrMalformedLine)
	}
	stamp, rest, ok := strings.Cut(line[1:], "] ")
	if !ok {
		return Entry{}, fmt.Errorf("%w: unterminated timestamp", ErrMalformedLine)
	}
	ts, err := time.ParseInLocation(TimestampLayout, stamp, location)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	author, body, ok := strings.Cut(rest, ": ")
	if !ok {
		return Entry{}, fmt.Errorf("%w: missing author separator", ErrMalformedLine)
	}

	e := Entry{Timestamp: ts, Author: author, Content: body}
	if strings.HasSuffix(body, "]") {
		if idx := strings.LastIndex(body, attachmentsOpen); idx >= 0 {
			e.Content = body[:idx]
			e.Attachments = strings.Split(body[idx+len(attachmentsOpen):len(body)-1], attachmentsSep)
		}
	}
	return e, nil
}

// Parse splits a rendered transcript into entries. The empty placeholder
// yields no entries.
func Parse(text string, location *time.Location) ([]Entry, error) {
	if text == EmptyPlaceholder {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	entries := make([]Entry, 0, len(lines))
	for i, line := range lines {
		e, err := ParseLine(line, location)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
