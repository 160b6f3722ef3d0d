package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/chat/chattest"
	"github.com/edgard/ticketbot/internal/config"
	"github.com/edgard/ticketbot/internal/database"
	"github.com/edgard/ticketbot/internal/keyword"
	"github.com/edgard/ticketbot/internal/logger"
	"github.com/edgard/ticketbot/internal/ticket"
	"github.com/edgard/ticketbot/internal/transcript"
)

const (
	guildID   = "1"
	category  = "2"
	staffRole = "3"
	archiveID = "4"
	lobbyID   = "5"
)

var (
	staff  = chat.Member{User: chat.User{ID: "50", Username: "mod"}, Roles: []string{staffRole}}
	member = chat.Member{User: chat.User{ID: "60", Username: "alice"}}
)

type testEnv struct {
	fake   *chattest.Fake
	deps   HandlerDeps
	router *Router
	seq    int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := chattest.New()
	fake.AddChannel(chat.Channel{ID: category, GuildID: guildID, Name: "Tickets"})
	fake.AddChannel(chat.Channel{ID: archiveID, GuildID: guildID, Name: "transcripts"})
	fake.AddChannel(chat.Channel{ID: lobbyID, GuildID: guildID, Name: "lobby"})
	fake.AddRole(guildID, staffRole)

	cfg := &config.Config{
		Ticket: config.TicketConfig{ConfirmTimeout: time.Minute, TranscriptLimit: 1000, Timezone: "UTC"},
		Messages: config.MessagesConfig{
			PermissionDenied: "You do not have permission to use this command.",
			GeneralError:     "Something went wrong.",
		},
	}
	settings := ticket.Settings{
		GuildID:          guildID,
		CategoryID:       category,
		StaffRoleID:      staffRole,
		ArchiveChannelID: archiveID,
		ConfirmTimeout:   cfg.Ticket.ConfirmTimeout,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()
	manager := ticket.NewManager(fake, settings, log)

	deps := HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Client:   fake,
		Channels: manager,
		Tickets: ticket.NewController(ticket.ControllerDeps{
			Client:     fake,
			Manager:    manager,
			Transcript: transcript.NewBuilder(fake, cfg.Ticket.TranscriptLimit, time.UTC, clock, log),
			Settings:   settings,
			Clock:      clock,
			Logger:     log,
		}),
		Keywords: keyword.New(keyword.DefaultRules),
	}
	env := &testEnv{fake: fake, deps: deps}
	env.router = NewRouter(log, fake, RegisterAllHandlers(deps), logger.Recover(log))
	return env
}

func (e *testEnv) interaction(kind chat.InteractionKind, name, channelID string, m chat.Member, opts map[string]string) *chat.Interaction {
	e.seq++
	return &chat.Interaction{
		ID:        fmt.Sprintf("ix%d", e.seq),
		GuildID:   guildID,
		ChannelID: channelID,
		Kind:      kind,
		Name:      name,
		Options:   opts,
		Member:    m,
	}
}

func (e *testEnv) press(name, channelID string, m chat.Member) *chat.Interaction {
	ix := e.interaction(chat.KindComponent, name, channelID, m, nil)
	e.router.Handle(context.Background(), ix)
	return ix
}

func (e *testEnv) run(name, channelID string, m chat.Member, opts map[string]string) *chat.Interaction {
	ix := e.interaction(chat.KindCommand, name, channelID, m, opts)
	e.router.Handle(context.Background(), ix)
	return ix
}

func (e *testEnv) repliesTo(ix *chat.Interaction) []chattest.InteractionReply {
	var out []chattest.InteractionReply
	for _, r := range e.fake.Replies() {
		if r.InteractionID == ix.ID {
			out = append(out, r)
		}
	}
	return out
}

func (e *testEnv) openTicket(t *testing.T) *chat.Channel {
	t.Helper()
	ch, err := e.deps.Tickets.RequestOpen(context.Background(), "help", member.User)
	require.NoError(t, err)
	return ch
}

func (e *testEnv) promptButton(t *testing.T, channelID, prefix string) string {
	t.Helper()
	sent := e.fake.Sent(channelID)
	for i := len(sent) - 1; i >= 0; i-- {
		for _, b := range sent[i].Buttons {
			if strings.HasPrefix(b.CustomID, prefix) {
				return b.CustomID
			}
		}
	}
	t.Fatalf("no %s button in channel %s", prefix, channelID)
	return ""
}

func TestSetupRequiresStaff(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	denied := env.repliesTo(env.run("setup-tickets", lobbyID, member, nil))
	require.Len(t, denied, 1)
	assert.Equal(t, chattest.OpRespond, denied[0].Op)
	assert.True(t, denied[0].Reply.Ephemeral)
	assert.Equal(t, "You do not have permission to setup tickets.", denied[0].Reply.Content)

	panel := env.repliesTo(env.run("setup-tickets", lobbyID, staff, nil))
	require.Len(t, panel, 1)
	assert.False(t, panel[0].Reply.Ephemeral)
	require.Len(t, panel[0].Reply.Buttons, 2)
	assert.Equal(t, "open-help", panel[0].Reply.Buttons[0].CustomID)
	assert.Equal(t, "open-lft", panel[0].Reply.Buttons[1].CustomID)
}

func TestOpenTicketButton(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	replies := env.repliesTo(env.press("open-lft", lobbyID, member))
	require.Len(t, replies, 2)
	assert.Equal(t, chattest.OpAcknowledge, replies[0].Op)
	assert.Equal(t, chattest.OpFollowUp, replies[1].Op)
	assert.True(t, replies[1].Reply.Ephemeral)

	ch, ok := env.fake.ChannelByName("lft-ticket-alice")
	require.True(t, ok)
	assert.Equal(t, "Your ticket has been created: "+ch.Mention(), replies[1].Reply.Content)
	assert.Equal(t, []string{member.ID}, ch.Members)
}

func TestOpenTicketMissingCategory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, env.fake.DeleteChannel(context.Background(), category))

	replies := env.repliesTo(env.press("open-help", lobbyID, member))
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1].Reply.Content, "misconfigured")
	assert.Empty(t, env.fake.EventsFor(chattest.OpCreate))
}

func TestCloseButtonRequiresStaff(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)

	replies := env.repliesTo(env.press(ticket.CloseButtonID, ch.ID, member))
	require.Len(t, replies, 1)
	assert.Equal(t, "You do not have permission to close this ticket.", replies[0].Reply.Content)
	assert.True(t, replies[0].Reply.Ephemeral)
	assert.Equal(t, ticket.StateOpen, env.deps.Tickets.State(ch.ID))
}

func TestCloseAndConfirm(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)
	env.fake.AddMessage(ch.ID, chat.Message{Author: member.User, Content: "help me", Timestamp: time.Now()})

	replies := env.repliesTo(env.press(ticket.CloseButtonID, ch.ID, staff))
	require.Len(t, replies, 1)
	assert.Equal(t, chattest.OpAcknowledge, replies[0].Op)
	assert.Equal(t, ticket.StateConfirmPending, env.deps.Tickets.State(ch.ID))

	again := env.repliesTo(env.press(ticket.CloseButtonID, ch.ID, staff))
	require.Len(t, again, 1)
	assert.Equal(t, "A close request is already pending for this ticket.", again[0].Reply.Content)

	confirm := env.promptButton(t, ch.ID, ticket.ConfirmButtonPrefix)
	denied := env.repliesTo(env.press(confirm, ch.ID, member))
	require.Len(t, denied, 1)
	assert.Equal(t, "You do not have permission to close this ticket.", denied[0].Reply.Content)
	assert.True(t, env.fake.HasChannel(ch.ID))

	done := env.repliesTo(env.press(confirm, ch.ID, staff))
	require.Len(t, done, 1)
	assert.Equal(t, chattest.OpAcknowledge, done[0].Op)
	assert.False(t, env.fake.HasChannel(ch.ID))
	require.Len(t, env.fake.SentFiles(archiveID), 1)
}

func TestConfirmWithMissingArchive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)
	require.NoError(t, env.fake.DeleteChannel(context.Background(), archiveID))

	env.press(ticket.CloseButtonID, ch.ID, staff)
	replies := env.repliesTo(env.press(env.promptButton(t, ch.ID, ticket.ConfirmButtonPrefix), ch.ID, staff))
	require.Len(t, replies, 2)
	assert.Equal(t, chattest.OpFollowUp, replies[1].Op)
	assert.True(t, replies[1].Reply.Ephemeral)
	assert.Contains(t, replies[1].Reply.Content, "⚠️")
	assert.True(t, env.fake.HasChannel(ch.ID))
}

func TestCancelClose(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)

	env.press(ticket.CloseButtonID, ch.ID, staff)
	cancel := env.promptButton(t, ch.ID, ticket.CancelButtonPrefix)
	confirm := env.promptButton(t, ch.ID, ticket.ConfirmButtonPrefix)

	replies := env.repliesTo(env.press(cancel, ch.ID, staff))
	require.Len(t, replies, 2)
	assert.Equal(t, "Ticket close canceled.", replies[1].Reply.Content)
	assert.Equal(t, ticket.StateOpen, env.deps.Tickets.State(ch.ID))

	late := env.repliesTo(env.press(confirm, ch.ID, staff))
	require.Len(t, late, 1, "expired confirmations are acknowledged silently")
	assert.True(t, env.fake.HasChannel(ch.ID))
}

func TestRenameTicket(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)

	ok := env.repliesTo(env.run("rename-ticket", ch.ID, staff, map[string]string{optionNewName: "Billing Issue"}))
	require.Len(t, ok, 1)
	assert.Equal(t, "Ticket renamed to `billing-issue`.", ok[0].Reply.Content)
	assert.False(t, ok[0].Reply.Ephemeral)

	bad := env.repliesTo(env.run("rename-ticket", ch.ID, staff, map[string]string{optionNewName: "no/slashes"}))
	require.Len(t, bad, 1)
	assert.True(t, bad[0].Reply.Ephemeral)
	assert.True(t, strings.HasPrefix(bad[0].Reply.Content, "Failed to rename ticket: "))

	env.fake.FailOn(chattest.OpRename, errors.New("Missing Permissions"))
	rejected := env.repliesTo(env.run("rename-ticket", ch.ID, staff, map[string]string{optionNewName: "other"}))
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Reply.Content, "Missing Permissions")

	denied := env.repliesTo(env.run("rename-ticket", ch.ID, member, map[string]string{optionNewName: "mine"}))
	require.Len(t, denied, 1)
	assert.Equal(t, "You do not have permission to rename tickets.", denied[0].Reply.Content)
	assert.Len(t, env.fake.EventsFor(chattest.OpRename), 1)
}

func TestAddAndRemoveUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ch := env.openTicket(t)
	ctx := context.Background()

	added := env.repliesTo(env.run("add-user", ch.ID, staff, map[string]string{optionUser: "70"}))
	require.Len(t, added, 1)
	assert.Equal(t, "Added <@70> to the ticket.", added[0].Reply.Content)
	got, err := env.fake.Channel(ctx, ch.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Members, "70")

	removed := env.repliesTo(env.run("remove-user", ch.ID, staff, map[string]string{optionUser: "70"}))
	require.Len(t, removed, 1)
	assert.Equal(t, "Removed <@70> from the ticket.", removed[0].Reply.Content)
	got, err = env.fake.Channel(ctx, ch.ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Members, "70")

	denied := env.repliesTo(env.run("add-user", ch.ID, member, map[string]string{optionUser: "71"}))
	require.Len(t, denied, 1)
	assert.Equal(t, "You do not have permission to add users to tickets.", denied[0].Reply.Content)
}

func TestUnknownInteraction(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	replies := env.repliesTo(env.press("legacy-button", lobbyID, member))
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Reply.Ephemeral)

	// A command named like a button is not routed to the button handler.
	replies = env.repliesTo(env.run(ticket.CloseButtonID, lobbyID, staff, nil))
	require.Len(t, replies, 1)
	assert.Equal(t, "This action is no longer available.", replies[0].Reply.Content)
}

func TestRouterRecoversFromPanics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	log := env.deps.Logger

	registered := map[string]RegisteredHandler{
		"boom": {
			Kind:    chat.KindCommand,
			Pattern: "boom",
			Handler: func(context.Context, *chat.Interaction) { panic("handler bug") },
		},
	}
	router := NewRouter(log, env.fake, registered, logger.Recover(log))
	assert.NotPanics(t, func() {
		router.Handle(context.Background(), &chat.Interaction{ID: "x", Kind: chat.KindCommand, Name: "boom"})
	})
}

func TestKeywordHandler(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	handle := NewKeywordHandler(env.deps)
	ctx := context.Background()

	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "well SHIT happens"})
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: env.fake.BotUser, Content: "shit"})
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "   "})
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "good morning"})

	sent := env.fake.Sent(lobbyID)
	require.Len(t, sent, 1)
	assert.Equal(t, "💩", sent[0].Content)
}

func TestKeywordHandlerRepliesToEveryMatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.deps.Keywords = keyword.New(keyword.DefaultRules, keyword.WithCooldown(env.deps.Config.KeywordCooldown))
	handle := NewKeywordHandler(env.deps)
	ctx := context.Background()

	other := chat.User{ID: "61", Username: "carol"}
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "shit"})
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: other, Content: "oh shit"})

	assert.Len(t, env.fake.Sent(lobbyID), 2)
}

func TestKeywordHandlerCooldown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.deps.Keywords = keyword.New(keyword.DefaultRules, keyword.WithCooldown(time.Hour))
	handle := NewKeywordHandler(env.deps)
	ctx := context.Background()

	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "shit"})
	handle(ctx, &chat.Message{ChannelID: lobbyID, Author: member.User, Content: "shit again"})

	assert.Len(t, env.fake.Sent(lobbyID), 1)
}

type stubStore struct {
	database.Store
	records []database.ArchiveRecord
	err     error
}

func (s stubStore) RecentArchives(context.Context, int) ([]database.ArchiveRecord, error) {
	return s.records, s.err
}

func TestTranscriptsCommand(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	empty := env.repliesTo(env.run("transcripts", lobbyID, staff, nil))
	require.Len(t, empty, 1)
	assert.Equal(t, "No transcripts have been archived yet.", empty[0].Reply.Content)

	env.deps.Store = stubStore{records: []database.ArchiveRecord{{
		ChannelName:  "help-ticket-alice",
		TicketType:   "help",
		ClosedByID:   "50",
		MessageCount: 12,
		Truncated:    true,
		ArchivedAt:   time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
	}}}
	router := NewRouter(env.deps.Logger, env.fake, RegisterAllHandlers(env.deps))

	ix := env.interaction(chat.KindCommand, "transcripts", lobbyID, staff, nil)
	router.Handle(context.Background(), ix)
	listed := env.repliesTo(ix)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Reply.Ephemeral)
	assert.Equal(t, "Recent transcripts:\n- `help-ticket-alice` (help) closed by <@50> at 2025-05-01 09:30, 12 messages, truncated",
		listed[0].Reply.Content)

	env.deps.Store = stubStore{err: errors.New("disk full")}
	router = NewRouter(env.deps.Logger, env.fake, RegisterAllHandlers(env.deps))
	ix = env.interaction(chat.KindCommand, "transcripts", lobbyID, staff, nil)
	router.Handle(context.Background(), ix)
	failed := env.repliesTo(ix)
	require.Len(t, failed, 1)
	assert.Equal(t, "Something went wrong.", failed[0].Reply.Content)
}

func TestCommands(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	var names []string
	for _, c := range Commands(RegisterAllHandlers(env.deps)) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"add-user", "remove-user", "rename-ticket", "setup-tickets", "transcripts"}, names)
}

func TestUserMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		err  error
		want string
	}{
		{ticket.ErrPermissionDenied, "You do not have permission to use this command."},
		{fmt.Errorf("%w: category %q not found", ticket.ErrConfiguration, "2"), `⚠️ The ticket system is misconfigured: category "2" not found.`},
		{&ticket.PlatformError{Op: "rename", Err: errors.New("rate limited")}, "Discord rejected the request: rate limited"},
		{&ticket.ArchiveError{Err: errors.New("upload")}, "⚠️ The transcript could not be archived, so the ticket was kept open."},
		{ticket.ErrInvalidName, "Channel names must be 1-100 letters, numbers, dashes or underscores."},
		{errors.New("something odd"), "Something went wrong."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, env.deps.userMessage(tc.err))
	}
}
