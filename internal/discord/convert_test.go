package discord

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/ticketbot/internal/chat"
)

func TestToChannelMembers(t *testing.T) {
	t.Parallel()

	ch := toChannel(&discordgo.Channel{
		ID:       "10",
		GuildID:  "1",
		ParentID: "5",
		Name:     "help-ticket-alice",
		Topic:    "ticket:help:42",
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: "1", Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
			{ID: "42", Type: discordgo.PermissionOverwriteTypeMember, Allow: memberPermissions},
			{ID: "43", Type: discordgo.PermissionOverwriteTypeMember, Deny: discordgo.PermissionViewChannel},
			{ID: "7", Type: discordgo.PermissionOverwriteTypeRole, Allow: memberPermissions},
		},
	})
	assert.Equal(t, "5", ch.ParentID)
	assert.Equal(t, []string{"42"}, ch.Members)
}

func TestToMessage(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	msg := toMessage(&discordgo.Message{
		ID:        "99",
		ChannelID: "10",
		Author:    &discordgo.User{ID: "42", Username: "alice", GlobalName: "Alice"},
		Member:    &discordgo.Member{Nick: "Ally"},
		Content:   "hi",
		Timestamp: ts,
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn/a.png", Filename: "a.png"},
		},
	})
	assert.Equal(t, "Ally", msg.Author.Name())
	assert.Equal(t, ts, msg.Timestamp)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "https://cdn/a.png", msg.Attachments[0].URL)
}

func TestToChatInteraction(t *testing.T) {
	t.Parallel()

	member := &discordgo.Member{User: &discordgo.User{ID: "42", Username: "mod"}, Roles: []string{"staff"}}

	cmd, ok := toChatInteraction(&discordgo.Interaction{
		ID:      "i1",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "1",
		Member:  member,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "add-user",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "77"},
			},
		},
	})
	require.True(t, ok)
	assert.Equal(t, chat.KindCommand, cmd.Kind)
	assert.Equal(t, "add-user", cmd.Name)
	assert.Equal(t, "77", cmd.Option("user"))
	assert.True(t, cmd.Member.HasRole("staff"))

	btn, ok := toChatInteraction(&discordgo.Interaction{
		ID:     "i2",
		Type:   discordgo.InteractionMessageComponent,
		Member: member,
		Data:   discordgo.MessageComponentInteractionData{CustomID: "open-help"},
	})
	require.True(t, ok)
	assert.Equal(t, chat.KindComponent, btn.Kind)
	assert.Equal(t, "open-help", btn.Name)

	_, ok = toChatInteraction(&discordgo.Interaction{Type: discordgo.InteractionPing})
	assert.False(t, ok)
}

func TestToComponentsChunksRows(t *testing.T) {
	t.Parallel()

	buttons := make([]chat.Button, 7)
	for i := range buttons {
		buttons[i] = chat.Button{Label: "b", CustomID: "id", Style: chat.ButtonDanger}
	}
	rows := toComponents(buttons)
	require.Len(t, rows, 2)
	first := rows[0].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	assert.Equal(t, discordgo.DangerButton, first.Components[0].(discordgo.Button).Style)
	assert.Len(t, rows[1].(discordgo.ActionsRow).Components, 2)

	assert.Nil(t, toComponents(nil))
}

func TestToMessageSendFiles(t *testing.T) {
	t.Parallel()

	send := toMessageSend(chat.OutgoingMessage{
		Content: "Transcript",
		Files:   []chat.File{{Name: "t.txt", ContentType: "text/plain", Data: []byte("log")}},
	})
	require.Len(t, send.Files, 1)
	data, err := io.ReadAll(send.Files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "log", string(data))
}

func TestOverwrites(t *testing.T) {
	t.Parallel()

	ows := overwrites("1", chat.ChannelSpec{Members: []string{"42"}, Roles: []string{"7"}})
	require.Len(t, ows, 3)
	assert.Equal(t, "1", ows[0].ID)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), ows[0].Deny)
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, ows[1].Type)
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, ows[2].Type)
	assert.NotZero(t, ows[2].Allow&discordgo.PermissionViewChannel)
}

func TestToApplicationCommands(t *testing.T) {
	t.Parallel()

	cmds := toApplicationCommands([]chat.Command{{
		Name:        "rename-ticket",
		Description: "Rename the ticket",
		Options:     []chat.CommandOption{{Name: "new_name", Type: chat.OptionString, Required: true}},
	}})
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionString, cmds[0].Options[0].Type)
	assert.True(t, cmds[0].Options[0].Required)
}

func TestSortOldestFirst(t *testing.T) {
	t.Parallel()

	msgs := []*discordgo.Message{{ID: "1000"}, {ID: "999"}, {ID: "1001"}}
	sortOldestFirst(msgs)
	assert.Equal(t, "999", msgs[0].ID)
	assert.Equal(t, "1001", msgs[2].ID)
}

func TestMapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapError(nil))

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	assert.ErrorIs(t, mapError(notFound), chat.ErrNotFound)

	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	assert.NotErrorIs(t, mapError(forbidden), chat.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
